package orkestrel

import "github.com/rs/zerolog"

// ContainerOption configures a Container at construction time.
type ContainerOption interface {
	apply(*containerOptions)
}

type containerOptions struct {
	logger *zerolog.Logger
}

type containerOptionFunc func(*containerOptions)

func (f containerOptionFunc) apply(o *containerOptions) { f(o) }

// WithLogger overrides the zerolog.Logger the container's Diagnostic
// sink writes to.
func WithLogger(logger zerolog.Logger) ContainerOption {
	return containerOptionFunc(func(o *containerOptions) {
		o.logger = &logger
	})
}

// NewContainerWithOptions is NewContainer with functional-option
// configuration, for callers that want more than the zero-value
// default logger.
func NewContainerWithOptions(opts ...ContainerOption) *Container {
	o := &containerOptions{}
	for _, opt := range opts {
		opt.apply(o)
	}

	logger := defaultLogger()
	if o.logger != nil {
		logger = *o.logger
	}
	return NewContainer(NewDiagnostic(logger))
}
