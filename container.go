package orkestrel

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Container is a hierarchical registry mapping opaque tokens to
// providers, guaranteeing synchronous construction, owning constructed
// components, and destroying them on teardown. A child container
// shadows its parent: resolution walks child to root and stops at the
// first container holding the token's provider.
type Container struct {
	id     string
	parent *Container
	diag   *Diagnostic

	mu         sync.Mutex
	providers  map[uint64]AnyProvider
	locked     map[uint64]bool
	values     map[uint64]any
	inProgress map[uint64]bool
	order      []uint64 // construction order, for reverse-order destroy

	destroyed bool
}

// NewContainer creates a root container with no parent.
func NewContainer(diag *Diagnostic) *Container {
	if diag == nil {
		diag = NewDiagnostic(defaultLogger())
	}
	return &Container{
		id:         uuid.NewString(),
		diag:       diag,
		providers:  make(map[uint64]AnyProvider),
		locked:     make(map[uint64]bool),
		values:     make(map[uint64]any),
		inProgress: make(map[uint64]bool),
	}
}

// ID returns this container's unique identity, stamped with uuid for
// telemetry correlation.
func (c *Container) ID() string { return c.id }

// Register adds a provider for token on this container. lock, when
// true, prevents a later CreateChild from shadowing this token inside
// its own scope with a different provider (the child may still resolve
// it normally): any descendant's own Register call for the same token
// fails ORK1007 instead of silently shadowing it. Duplicate
// registration on the same container fails ORK1007; registering after
// destroy fails ORK1005.
func Register[T any](c *Container, token Token[T], provider *Provider[T], lock bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.destroyed {
		return c.diag.FailWithCause(CodeContainerDestroyed, map[string]any{"token": token.Description()}, ErrContainerDestroyed)
	}
	if _, exists := c.providers[token.id()]; exists {
		return c.diag.FailWithCause(CodeInvalidRegistration, map[string]any{"token": token.Description(), "reason": "duplicate registration"}, ErrDuplicateToken)
	}
	if ancestorLocks(c.parent, token.id()) {
		return c.diag.FailWithCause(CodeInvalidRegistration, map[string]any{"token": token.Description(), "reason": "locked by ancestor"}, ErrDuplicateToken)
	}

	c.providers[token.id()] = provider
	c.locked[token.id()] = lock
	return nil
}

// ancestorLocks reports whether any container from parent on up has
// registered id with lock=true, in which case a descendant must not be
// allowed to shadow it with a different provider.
func ancestorLocks(parent *Container, id uint64) bool {
	for cur := parent; cur != nil; cur = cur.parent {
		cur.mu.Lock()
		locked := cur.locked[id]
		cur.mu.Unlock()
		if locked {
			return true
		}
	}
	return false
}

// Has reports whether token is registered on this container or any
// ancestor.
func (c *Container) Has(token AnyToken) bool {
	for cur := c; cur != nil; cur = cur.parent {
		cur.mu.Lock()
		_, ok := cur.providers[token.id()]
		cur.mu.Unlock()
		if ok {
			return true
		}
	}
	return false
}

// Get resolves token's constructed value, constructing it lazily on
// first call. It returns (zero, false) when the token is not
// registered anywhere up the chain, instead of an error, matching the
// "get returns nothing" contract that Resolve sharpens into ORK1006.
func Get[T any](c *Container, token Token[T]) (T, bool) {
	var zero T
	owner := c.findOwner(token)
	if owner == nil {
		return zero, false
	}

	v, err := owner.materialize(token)
	if err != nil {
		return zero, false
	}
	return v.(T), true
}

// Resolve is Get, but fails ORK1006 when token is missing anywhere up
// the chain.
func Resolve[T any](c *Container, token Token[T]) (T, error) {
	var zero T
	owner := c.findOwner(token)
	if owner == nil {
		return zero, c.diag.FailWithCause(CodeProviderNotFound, map[string]any{"token": token.Description()}, ErrProviderNotFound)
	}

	v, err := owner.materialize(token)
	if err != nil {
		return zero, err
	}
	return v.(T), nil
}

func (c *Container) findOwner(token AnyToken) *Container {
	for cur := c; cur != nil; cur = cur.parent {
		cur.mu.Lock()
		_, ok := cur.providers[token.id()]
		cur.mu.Unlock()
		if ok {
			return cur
		}
	}
	return nil
}

// materialize resolves token's value on c specifically (c must be the
// owning container). It performs cycle detection via the in-progress
// marker and resolves any declared injection tokens first, on the same
// chain c sits in.
func (c *Container) materialize(token AnyToken) (any, error) {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return nil, c.diag.FailWithCause(CodeContainerDestroyed, map[string]any{"token": token.Description()}, ErrContainerDestroyed)
	}
	if v, ok := c.values[token.id()]; ok {
		c.mu.Unlock()
		return v, nil
	}
	if c.inProgress[token.id()] {
		c.mu.Unlock()
		cause := &CycleError{Tokens: []string{token.Description()}, Resolution: true}
		return nil, &Error{Code: CodeCircularResolution, Message: messages[CodeCircularResolution].message, Context: map[string]any{"token": token.Description()}, Cause: cause}
	}
	provider, ok := c.providers[token.id()]
	if !ok {
		c.mu.Unlock()
		return nil, &Error{Code: CodeProviderNotFound, Message: messages[CodeProviderNotFound].message, Context: map[string]any{"token": token.Description()}, Cause: ErrProviderNotFound}
	}
	c.inProgress[token.id()] = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.inProgress, token.id())
		c.mu.Unlock()
	}()

	deps := provider.inject()
	args := make([]any, len(deps))
	for i, dep := range deps {
		owner := c.findOwner(dep)
		if owner == nil {
			return nil, &Error{Code: CodeProviderNotFound, Message: messages[CodeProviderNotFound].message, Context: map[string]any{"token": dep.Description()}, Cause: ErrProviderNotFound}
		}
		v, err := owner.materialize(dep)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	v, err := provider.materialize(args)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.values[token.id()] = v
	c.order = append(c.order, token.id())
	c.mu.Unlock()

	return v, nil
}

// CreateChild produces a new container whose parent pointer is c. A
// child's lifetime is independent of its parent: destroying the parent
// only tears down components the parent itself constructed, never the
// child's.
func (c *Container) CreateChild() *Container {
	return &Container{
		id:         uuid.NewString(),
		parent:     c,
		diag:       c.diag,
		providers:  make(map[uint64]AnyProvider),
		locked:     make(map[uint64]bool),
		values:     make(map[uint64]any),
		inProgress: make(map[uint64]bool),
	}
}

// Using creates a child scope, runs setup (if non-nil) for additional
// registration, then runs work against the child, and guarantees the
// child's teardown on every exit path including a panic inside work.
// The parent container is never touched.
func (c *Container) Using(ctx context.Context, setup func(*Container) error, work func(*Container) error) (err error) {
	child := c.CreateChild()
	defer func() {
		destroyErr := child.Destroy(ctx)
		if err == nil {
			err = destroyErr
		}
	}()

	if setup != nil {
		if err = setup(child); err != nil {
			return err
		}
	}
	return work(child)
}

// Destroy stops nothing on its own (the orchestrator is responsible for
// stop-before-destroy on managed components) but tears down every value
// this container materialized, in reverse construction order, closing
// any that implement Disposable. Errors are aggregated as ORK1017-ready
// details for the orchestrator to fold into its own aggregate; a bare
// Container used standalone (no orchestrator) gets an *AggregateError
// directly from this call. c is marked destroyed even when some closes
// fail; from then on Register, Resolve and a second Destroy on c fail
// ORK1005 and Get reports false. Has and CreateChild do not check the
// destroyed state.
func (c *Container) Destroy(ctx context.Context) error {
	c.mu.Lock()
	if c.destroyed {
		c.mu.Unlock()
		return c.diag.FailWithCause(CodeContainerDestroyed, nil, ErrContainerDestroyed)
	}
	c.destroyed = true
	order := make([]uint64, len(c.order))
	copy(order, c.order)
	values := c.values
	c.mu.Unlock()

	var details []Detail
	for i := len(order) - 1; i >= 0; i-- {
		id := order[i]
		v := values[id]
		if err := closeDisposable(ctx, v); err != nil {
			details = append(details, Detail{Phase: PhaseDestroy, Context: ContextContainer, Error: err})
		}
	}

	if len(details) == 0 {
		return nil
	}
	return newAggregate(CodeAggregateDestroy, messages[CodeAggregateDestroy].message, details)
}

// IsDestroyed reports whether Destroy has already completed on c.
func (c *Container) IsDestroyed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.destroyed
}
