// Package pool provides the execution context shared by one invocation:
// a fixed-size worker pool for data-parallel maps over path collections.
package pool

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/sdejongh/cmpf/pkg/models"
)

// Pool is a fixed-size worker pool. The size is set once and never changes.
type Pool struct {
	workers int
}

// New creates a pool with the given number of workers.
// Zero selects the number of available CPUs.
func New(workers int) (*Pool, error) {
	if workers < 0 {
		return nil, &models.ValidationError{
			Field:   "workers",
			Message: fmt.Sprintf("must be at least 1, got %d", workers),
		}
	}
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{workers: workers}, nil
}

// Default returns a pool sized to the available CPUs
func Default() *Pool {
	return &Pool{workers: runtime.NumCPU()}
}

// Workers returns the pool size
func (p *Pool) Workers() int {
	if p == nil || p.workers < 1 {
		return 1
	}
	return p.workers
}

// ForEach calls fn for every index in [0, n) using at most Workers goroutines.
// The first error cancels the context passed to the remaining calls and is returned.
// Cancellation of ctx stops scheduling and is reported as ctx.Err().
func (p *Pool) ForEach(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.Workers())

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			return fn(gctx, i)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
