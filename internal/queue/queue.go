// Package queue runs a bounded set of jobs concurrently and returns
// their results in input order, regardless of completion order.
package queue

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Job is one unit of work submitted to Run. Run invokes Fn with a
// context derived from the caller's and adds no deadline of its own;
// a per-job timeout is up to Fn (the orchestrator resolves each job's
// per-phase timeout inside Fn and hands it to the kernel).
type Job[T any] struct {
	Fn func(ctx context.Context) (T, error)
}

// Outcome pairs a job's result with the error it produced, if any. Run
// always produces one Outcome per job, in input order, even when a job
// fails — callers that want "run to completion, collect every error"
// (the orchestrator's own semantics) read Outcome.Err per slot instead
// of the queue aborting early.
type Outcome[T any] struct {
	Value T
	Err   error
}

// Run executes jobs with at most concurrency running at once (0 or
// negative means unbounded — "all jobs in the layer", the spec's
// default). Results preserve jobs' input order.
func Run[T any](ctx context.Context, jobs []Job[T], concurrency int) []Outcome[T] {
	outcomes := make([]Outcome[T], len(jobs))
	if len(jobs) == 0 {
		return outcomes
	}

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			v, err := job.Fn(gctx)
			outcomes[i] = Outcome[T]{Value: v, Err: err}
			return nil
		})
	}

	// Run-to-completion semantics: the queue itself never aborts early
	// on a job's own error (Fn's g.Go closure always returns nil), so
	// the returned error from Wait is always nil.
	_ = g.Wait()
	return outcomes
}
