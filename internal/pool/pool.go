// Package pool runs independent tasks with bounded concurrency.
package pool

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/JakeFAU/syllabus-crawler/internal/queue/memory"
)

// Runner executes task(ctx, i) for every i in [0, n) with bounded
// concurrency and returns once every started task has finished. After ctx
// ends no new tasks are started.
type Runner interface {
	Run(ctx context.Context, n int, task func(ctx context.Context, i int))
	Size() int
}

// Result pairs a task input with its outcome.
type Result[T, R any] struct {
	Input T
	Value R
	Err   error
}

// Map applies fn to every item through r and returns the outcomes in
// completion order. Items never started because ctx ended are absent.
func Map[T, R any](ctx context.Context, r Runner, items []T, fn func(context.Context, T) (R, error)) []Result[T, R] {
	out := make(chan Result[T, R], len(items))
	r.Run(ctx, len(items), func(ctx context.Context, i int) {
		v, err := fn(ctx, items[i])
		out <- Result[T, R]{Input: items[i], Value: v, Err: err}
	})
	close(out)

	results := make([]Result[T, R], 0, len(out))
	for res := range out {
		results = append(results, res)
	}
	return results
}

// Workers runs a fixed set of goroutines that pull task indexes from a
// shared queue.
type Workers struct {
	N int
}

// Size reports the worker count.
func (w Workers) Size() int { return max(w.N, 1) }

// Run implements Runner.
func (w Workers) Run(ctx context.Context, n int, task func(ctx context.Context, i int)) {
	if n == 0 {
		return
	}
	q := memory.NewQueue[int](n)
	for i := range n {
		if err := q.Enqueue(ctx, i); err != nil {
			break
		}
	}
	q.Close()

	var wg sync.WaitGroup
	for range min(w.Size(), n) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				i, err := q.Dequeue(ctx)
				if err != nil || ctx.Err() != nil {
					return
				}
				task(ctx, i)
			}
		}()
	}
	wg.Wait()
}

// Semaphore starts one goroutine per task, gated by a weighted semaphore.
type Semaphore struct {
	N int
}

// Size reports the concurrency limit.
func (s Semaphore) Size() int { return max(s.N, 1) }

// Run implements Runner.
func (s Semaphore) Run(ctx context.Context, n int, task func(ctx context.Context, i int)) {
	sem := semaphore.NewWeighted(int64(s.Size()))
	var wg sync.WaitGroup
	for i := range n {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		if ctx.Err() != nil {
			sem.Release(1)
			break
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			task(ctx, i)
		}()
	}
	wg.Wait()
}

// FirstError returns the first failure in results, or nil.
func FirstError[T, R any](results []Result[T, R]) error {
	for _, r := range results {
		if r.Err != nil {
			return r.Err
		}
	}
	return nil
}
