package orkestrel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueProviderRejectsChannelType(t *testing.T) {
	_, err := Value[chan int](make(chan int))
	require.Error(t, err)

	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, CodeAsyncValue, oe.Code)
}

func TestFactoryProviderRejectsChannelType(t *testing.T) {
	_, err := Factory(func() (chan int, error) { return make(chan int), nil })
	require.Error(t, err)

	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, CodeAsyncFactory, oe.Code)
}

func TestClassProviderRejectsChannelType(t *testing.T) {
	_, err := Class(func() (chan int, error) { return make(chan int), nil })
	require.Error(t, err)

	var oe *Error
	require.ErrorAs(t, err, &oe)
	assert.Equal(t, CodeAsyncClass, oe.Code)
}

func TestFactoryWithInjectCarriesDependencies(t *testing.T) {
	dep := NewToken[int]("dep")
	provider, err := FactoryWithInject[string]([]AnyToken{dep}, func(args []any) (string, error) {
		return "ok", nil
	})
	require.NoError(t, err)
	require.Len(t, provider.inject(), 1)
	assert.Equal(t, dep, provider.inject()[0])
}
