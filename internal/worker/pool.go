package worker

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task is one independent unit of work in a phase.
type Task func(ctx context.Context, i int) error

// RunTasks runs tasks 0..n-1 on at most limit goroutines and waits for all
// of them. After the first failure no further task is dispatched, the
// context handed to in-flight tasks is cancelled, and that first error is
// returned once every dispatched task has finished.
func RunTasks(ctx context.Context, limit, n int, task Task) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return task(gctx, i)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	// Cancelled before anything failed
	return ctx.Err()
}
