package orkestrel

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewContainerWithOptionsUsesCustomLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	c := NewContainerWithOptions(WithLogger(logger))
	tok := NewToken[int]("missing")

	_, err := Resolve(c, tok)
	require.Error(t, err)
	assert.Contains(t, buf.String(), "no provider registered for token")
}

func TestNewContainerWithOptionsDefaultsWithoutLogger(t *testing.T) {
	c := NewContainerWithOptions()
	tok := NewToken[int]("answer")
	provider, err := Value(42)
	require.NoError(t, err)
	require.NoError(t, Register(c, tok, provider, false))

	v, err := Resolve(c, tok)
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestRegisterRejectsShadowingALockedAncestorToken(t *testing.T) {
	root := NewContainer(nil)
	tok := NewToken[int]("shared")
	rootProvider, _ := Value(1)
	require.NoError(t, Register(root, tok, rootProvider, true))

	child := root.CreateChild()
	childProvider, _ := Value(2)
	err := Register(child, tok, childProvider, false)
	require.Error(t, err)

	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, CodeInvalidRegistration, oe.Code)

	v, ok := Get(child, tok)
	require.True(t, ok)
	assert.Equal(t, 1, v, "child must still resolve the locked parent value, unshadowed")
}

func TestRegisterAllowsShadowingAnUnlockedAncestorToken(t *testing.T) {
	root := NewContainer(nil)
	tok := NewToken[int]("shared")
	rootProvider, _ := Value(1)
	require.NoError(t, Register(root, tok, rootProvider, false))

	child := root.CreateChild()
	childProvider, _ := Value(2)
	require.NoError(t, Register(child, tok, childProvider, false))

	v, ok := Get(child, tok)
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestContainerResolveReturnsIdenticalValue(t *testing.T) {
	c := NewContainer(nil)
	tok := NewToken[*int]("counter")
	calls := 0
	provider, err := Factory(func() (*int, error) {
		calls++
		v := 42
		return &v, nil
	})
	require.NoError(t, err)
	require.NoError(t, Register(c, tok, provider, false))

	a, err := Resolve(c, tok)
	require.NoError(t, err)
	b, err := Resolve(c, tok)
	require.NoError(t, err)

	assert.Same(t, a, b)
	assert.Equal(t, 1, calls)
}

func TestContainerResolveMissingFailsORK1006(t *testing.T) {
	c := NewContainer(nil)
	tok := NewToken[int]("missing")

	_, err := Resolve(c, tok)
	require.Error(t, err)

	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, CodeProviderNotFound, oe.Code)
}

func TestContainerGetReturnsFalseWhenMissing(t *testing.T) {
	c := NewContainer(nil)
	tok := NewToken[int]("missing")

	_, ok := Get(c, tok)
	assert.False(t, ok)
}

func TestContainerDuplicateRegistrationFails(t *testing.T) {
	c := NewContainer(nil)
	tok := NewToken[int]("dup")
	p1, _ := Value(1)
	p2, _ := Value(2)

	require.NoError(t, Register(c, tok, p1, false))
	err := Register(c, tok, p2, false)
	require.Error(t, err)

	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, CodeInvalidRegistration, oe.Code)
}

func TestContainerChildShadowsParent(t *testing.T) {
	c := NewContainer(nil)
	tok := NewToken[string]("greeting")
	parentProvider, _ := Value("hello")
	require.NoError(t, Register(c, tok, parentProvider, false))

	child := c.CreateChild()
	childProvider, _ := Value("bonjour")
	require.NoError(t, Register(child, tok, childProvider, false))

	v, err := Resolve(child, tok)
	require.NoError(t, err)
	assert.Equal(t, "bonjour", v)

	pv, err := Resolve(c, tok)
	require.NoError(t, err)
	assert.Equal(t, "hello", pv)
}

func TestContainerChildInheritsUnshadowedTokens(t *testing.T) {
	c := NewContainer(nil)
	tok := NewToken[int]("shared")
	provider, _ := Value(7)
	require.NoError(t, Register(c, tok, provider, false))

	child := c.CreateChild()
	v, err := Resolve(child, tok)
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestContainerDestroyedRejectsFurtherOperations(t *testing.T) {
	c := NewContainer(nil)
	require.NoError(t, c.Destroy(context.Background()))

	tok := NewToken[int]("after-destroy")
	provider, _ := Value(1)

	err := Register(c, tok, provider, false)
	require.Error(t, err)
	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, CodeContainerDestroyed, oe.Code)

	err = c.Destroy(context.Background())
	require.Error(t, err)
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, CodeContainerDestroyed, oe.Code)
}

type closeTracker struct {
	name  string
	order *[]string
}

func (c *closeTracker) Close() error {
	*c.order = append(*c.order, c.name)
	return nil
}

func TestContainerDestroyClosesDisposablesInReverseConstructionOrder(t *testing.T) {
	c := NewContainer(nil)
	var order []string

	tokA := NewToken[*closeTracker]("a")
	tokB := NewToken[*closeTracker]("b")

	pa, _ := Factory(func() (*closeTracker, error) { return &closeTracker{name: "a", order: &order}, nil })
	pb, _ := Factory(func() (*closeTracker, error) { return &closeTracker{name: "b", order: &order}, nil })
	require.NoError(t, Register(c, tokA, pa, false))
	require.NoError(t, Register(c, tokB, pb, false))

	_, err := Resolve(c, tokA)
	require.NoError(t, err)
	_, err = Resolve(c, tokB)
	require.NoError(t, err)

	require.NoError(t, c.Destroy(context.Background()))
	assert.Equal(t, []string{"b", "a"}, order)
}

func TestContainerDestroyAggregatesDisposeErrors(t *testing.T) {
	c := NewContainer(nil)
	tok := NewToken[*failingCloser]("failer")
	boom := errors.New("boom")
	p, _ := Factory(func() (*failingCloser, error) { return &failingCloser{err: boom}, nil })
	require.NoError(t, Register(c, tok, p, false))

	_, err := Resolve(c, tok)
	require.NoError(t, err)

	err = c.Destroy(context.Background())
	require.Error(t, err)

	var agg *AggregateError
	require.ErrorAs(t, err, &agg)
	require.Len(t, agg.Details, 1)
	assert.Equal(t, len(agg.Details), len(agg.Errors))
	assert.ErrorIs(t, agg.Errors[0], boom)
}

type failingCloser struct{ err error }

func (f *failingCloser) Close() error { return f.err }

func TestContainerUsingTearsDownOnEveryExit(t *testing.T) {
	c := NewContainer(nil)
	var order []string

	err := c.Using(context.Background(), func(child *Container) error {
		tok := NewToken[*closeTracker]("scoped")
		p, _ := Factory(func() (*closeTracker, error) { return &closeTracker{name: "scoped", order: &order}, nil })
		if regErr := Register(child, tok, p, false); regErr != nil {
			return regErr
		}
		_, resolveErr := Resolve(child, tok)
		return resolveErr
	}, func(child *Container) error {
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"scoped"}, order)
	assert.False(t, c.IsDestroyed())
}
