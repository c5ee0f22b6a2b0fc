package emulator

import (
	"context"
	"iter"

	"golang.org/x/sync/errgroup"
)

// Pool bounds the number of machines run concurrently by a search.
//
// Machines are independent, so each task builds and owns its own.
type Pool struct {
	Limit int // Maximum concurrent tasks; zero or less is unbounded.
}

// Each runs fn for every value of seq on the pool. The first error
// returned by a task cancels the context of the others, stops scheduling
// of new tasks, and is returned once running tasks complete. If the parent
// context is cancelled first, its error is returned.
func Each[T any](parent context.Context, pool *Pool, seq iter.Seq[T], fn func(ctx context.Context, value T) error) (err error) {
	group, ctx := errgroup.WithContext(parent)
	if pool != nil && pool.Limit > 0 {
		group.SetLimit(pool.Limit)
	}

	for value := range seq {
		if ctx.Err() != nil {
			break
		}
		group.Go(func() error {
			return fn(ctx, value)
		})
	}

	err = group.Wait()
	if err == nil {
		err = parent.Err()
	}

	return
}
