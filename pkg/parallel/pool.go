// Package parallel provides the scheduling primitives the iteration
// engine uses to fan work out across goroutines: chunked range
// splitting for vertex- and edge-block-parallel schedules, and
// token-bounded task splitting for parallel DFS (spec.md §5).
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// PoolConfig configures the degree of parallelism used by ParallelFor
// and the DFS splitter.
type PoolConfig struct {
	// MaxWorkers bounds concurrently running goroutines.
	// Default: runtime.NumCPU().
	MaxWorkers int
}

// DefaultPoolConfig returns a PoolConfig sized to the host's CPU count.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{MaxWorkers: runtime.NumCPU()}
}

func (c PoolConfig) workers() int {
	if c.MaxWorkers > 0 {
		return c.MaxWorkers
	}
	return runtime.NumCPU()
}

// ParallelFor splits [0, n) into contiguous chunks, one per worker, and
// runs fn(lo, hi) for each chunk concurrently. It is the basis of both
// the vertex-parallel schedule (n = number of vertices) and the
// edge-block-parallel schedule (n = number of edge blocks).
func ParallelFor(ctx context.Context, n int, cfg PoolConfig, fn func(ctx context.Context, lo, hi int) error) error {
	if n <= 0 {
		return nil
	}

	workers := cfg.workers()
	if workers > n {
		workers = n
	}
	chunkSize := (n + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := w * chunkSize
		hi := lo + chunkSize
		if hi > n {
			hi = n
		}
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			return fn(gctx, lo, hi)
		})
	}
	return g.Wait()
}

// ForEachIndex runs fn(i) for every i in [0, n), fanned out across
// cfg.workers() goroutines via ParallelFor.
func ForEachIndex(ctx context.Context, n int, cfg PoolConfig, fn func(ctx context.Context, i int) error) error {
	return ParallelFor(ctx, n, cfg, func(ctx context.Context, lo, hi int) error {
		for i := lo; i < hi; i++ {
			if err := fn(ctx, i); err != nil {
				return err
			}
		}
		return nil
	})
}
