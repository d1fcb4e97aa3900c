package orkestrel

import "time"

// NodeTimeouts carries the per-phase timeout overrides for one entry.
// A nil field falls back to the orchestrator's default for that phase;
// a non-nil zero value explicitly disables the timeout for that phase
// on that entry.
type NodeTimeouts struct {
	Start   *time.Duration
	Stop    *time.Duration
	Destroy *time.Duration
}

// PhaseTimeouts is the orchestrator-wide default applied whenever an
// entry doesn't override a phase.
type PhaseTimeouts struct {
	Start   time.Duration
	Stop    time.Duration
	Destroy time.Duration
}

// Entry is the type-erased per-token registration the orchestrator
// stores, since Register accepts entries for many different component
// types T within one graph.
type Entry interface {
	anyToken() AnyToken
	dependencies() []AnyToken
	nodeTimeouts() NodeTimeouts
	registerProvider(c *Container) error
	buildKernel(c *Container) (kernelHandle, error)
}

type entryImpl[T any] struct {
	token    Token[T]
	provider *Provider[T]
	hooks    Hooks[T]
	deps     []AnyToken
	timeouts NodeTimeouts
}

// NewEntry declares one node of the orchestrator's graph: token's
// provider, its lifecycle hooks, the tokens it depends on, and any
// per-phase timeout overrides.
func NewEntry[T any](token Token[T], provider *Provider[T], hooks Hooks[T], deps []AnyToken, timeouts NodeTimeouts) Entry {
	return &entryImpl[T]{token: token, provider: provider, hooks: hooks, deps: deps, timeouts: timeouts}
}

func (e *entryImpl[T]) anyToken() AnyToken         { return e.token }
func (e *entryImpl[T]) dependencies() []AnyToken   { return e.deps }
func (e *entryImpl[T]) nodeTimeouts() NodeTimeouts { return e.timeouts }

func (e *entryImpl[T]) registerProvider(c *Container) error {
	return Register(c, e.token, e.provider, false)
}

func (e *entryImpl[T]) buildKernel(c *Container) (kernelHandle, error) {
	v, err := Resolve(c, e.token)
	if err != nil {
		return nil, err
	}
	return NewKernel(v, e.hooks), nil
}
