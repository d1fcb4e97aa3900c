package orkestrel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetDefaultOrchestratorRoundTrips(t *testing.T) {
	orch := NewOrchestrator()
	SetDefaultOrchestrator("test-default", orch)

	got, ok := DefaultOrchestrator()
	require.True(t, ok)
	assert.Same(t, orch, got)

	fromRegistry, ok := DefaultRegistry().Get("test-default")
	require.True(t, ok)
	assert.Same(t, orch, fromRegistry)
}

func TestSetDefaultOrchestratorOverridesPreviousDefault(t *testing.T) {
	first := NewOrchestrator()
	second := NewOrchestrator()

	SetDefaultOrchestrator("first", first)
	SetDefaultOrchestrator("second", second)

	got, ok := DefaultOrchestrator()
	require.True(t, ok)
	assert.Same(t, second, got)
}
