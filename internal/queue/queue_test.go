package queue

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunPreservesInputOrder(t *testing.T) {
	jobs := make([]Job[int], 5)
	for i := range jobs {
		i := i
		jobs[i] = Job[int]{Fn: func(ctx context.Context) (int, error) {
			return i * i, nil
		}}
	}

	outcomes := Run(context.Background(), jobs, 2)
	require.Len(t, outcomes, 5)
	for i, out := range outcomes {
		assert.NoError(t, out.Err)
		assert.Equal(t, i*i, out.Value)
	}
}

func TestRunContinuesPastFailures(t *testing.T) {
	boom := errors.New("boom")
	jobs := []Job[string]{
		{Fn: func(ctx context.Context) (string, error) { return "ok-0", nil }},
		{Fn: func(ctx context.Context) (string, error) { return "", boom }},
		{Fn: func(ctx context.Context) (string, error) { return "ok-2", nil }},
	}

	outcomes := Run(context.Background(), jobs, 0)
	require.Len(t, outcomes, 3)
	assert.Equal(t, "ok-0", outcomes[0].Value)
	assert.ErrorIs(t, outcomes[1].Err, boom)
	assert.Equal(t, "ok-2", outcomes[2].Value)
}

func TestRunRespectsConcurrencyLimit(t *testing.T) {
	var inFlight, maxSeen atomic.Int32
	jobs := make([]Job[struct{}], 10)
	for i := range jobs {
		jobs[i] = Job[struct{}]{Fn: func(ctx context.Context) (struct{}, error) {
			n := inFlight.Add(1)
			for {
				old := maxSeen.Load()
				if n <= old || maxSeen.CompareAndSwap(old, n) {
					break
				}
			}
			inFlight.Add(-1)
			return struct{}{}, nil
		}}
	}

	Run(context.Background(), jobs, 3)
	assert.LessOrEqual(t, maxSeen.Load(), int32(3))
}

func TestRunEmpty(t *testing.T) {
	outcomes := Run[int](context.Background(), nil, 4)
	assert.Empty(t, outcomes)
}
