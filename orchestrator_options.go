package orkestrel

import "github.com/rs/zerolog"

// Option configures an Orchestrator at construction time.
type Option interface {
	apply(*orchestratorOptions)
}

type orchestratorOptions struct {
	logger      *zerolog.Logger
	concurrency int
	defaults    PhaseTimeouts
}

type orchestratorOptionFunc func(*orchestratorOptions)

func (f orchestratorOptionFunc) apply(o *orchestratorOptions) { f(o) }

// WithOrchestratorLogger overrides the zerolog.Logger the orchestrator's
// Diagnostic sink writes to, and that its backing Container inherits.
func WithOrchestratorLogger(logger zerolog.Logger) Option {
	return orchestratorOptionFunc(func(o *orchestratorOptions) {
		o.logger = &logger
	})
}

// WithConcurrency bounds how many jobs within one layer may run at
// once. 0 (the default) means unbounded — every job in the layer runs
// concurrently.
func WithConcurrency(c int) Option {
	return orchestratorOptionFunc(func(o *orchestratorOptions) {
		o.concurrency = c
	})
}

// WithDefaultTimeouts sets the orchestrator-wide per-phase timeouts
// applied to any entry that doesn't declare its own override.
func WithDefaultTimeouts(t PhaseTimeouts) Option {
	return orchestratorOptionFunc(func(o *orchestratorOptions) {
		o.defaults = t
	})
}
