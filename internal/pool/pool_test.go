package pool

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runners(n int) map[string]Runner {
	return map[string]Runner{
		"workers":   Workers{N: n},
		"semaphore": Semaphore{N: n},
	}
}

func TestMapProcessesEveryItem(t *testing.T) {
	t.Parallel()

	items := make([]int, 50)
	for i := range items {
		items[i] = i
	}
	for name, r := range runners(4) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			results := Map(context.Background(), r, items, func(_ context.Context, v int) (int, error) {
				return v * v, nil
			})
			require.Len(t, results, len(items))
			got := make([]int, 0, len(results))
			for _, res := range results {
				require.NoError(t, res.Err)
				assert.Equal(t, res.Input*res.Input, res.Value)
				got = append(got, res.Input)
			}
			sort.Ints(got)
			assert.Equal(t, items, got)
		})
	}
}

func TestRunnerBoundsConcurrency(t *testing.T) {
	t.Parallel()

	for name, r := range runners(3) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			var current, peak atomic.Int32
			r.Run(context.Background(), 20, func(context.Context, int) {
				c := current.Add(1)
				for {
					p := peak.Load()
					if c <= p || peak.CompareAndSwap(p, c) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				current.Add(-1)
			})
			assert.LessOrEqual(t, peak.Load(), int32(3))
			assert.Positive(t, peak.Load())
		})
	}
}

func TestRunnerStopsAfterCancel(t *testing.T) {
	t.Parallel()

	for name, r := range runners(2) {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			var started atomic.Int32
			r.Run(ctx, 100, func(context.Context, int) {
				if started.Add(1) == 4 {
					cancel()
				}
				time.Sleep(time.Millisecond)
			})
			assert.Less(t, started.Load(), int32(100))
		})
	}
}

func TestMapKeepsErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	results := Map(context.Background(), Workers{N: 2}, []string{"a", "b", "c"}, func(_ context.Context, s string) (string, error) {
		if s == "b" {
			return "", boom
		}
		return s, nil
	})
	require.Len(t, results, 3)
	assert.ErrorIs(t, FirstError(results), boom)
	assert.NoError(t, FirstError(results[:0]))
}

func TestSizeDefaultsToOne(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, Workers{}.Size())
	assert.Equal(t, 1, Semaphore{N: -3}.Size())
	assert.Equal(t, 8, Workers{N: 8}.Size())
}

func TestRunWithNoTasks(t *testing.T) {
	t.Parallel()

	for _, r := range runners(2) {
		assert.Empty(t, Map(context.Background(), r, []int{}, func(context.Context, int) (int, error) { return 0, nil }))
	}
}
