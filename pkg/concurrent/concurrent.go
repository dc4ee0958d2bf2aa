package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Partition splits items into at most workers contiguous chunks and runs fn
// on each chunk concurrently. Results come back in chunk order, so folding
// them is deterministic regardless of scheduling. The first error cancels
// the context handed to the remaining chunks.
func Partition[T any, R any](ctx context.Context, items []T, workers int, fn func(ctx context.Context, chunk []T) (R, error)) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}
	if workers < 1 {
		workers = 1
	}
	size := (len(items) + workers - 1) / workers
	chunks := (len(items) + size - 1) / size
	out := make([]R, chunks)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for c := 0; c < chunks; c++ {
		lo := c * size
		hi := min(lo+size, len(items))
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := fn(gctx, items[lo:hi])
			if err != nil {
				return err
			}
			out[c] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Fold reduces parts left to right.
func Fold[R any, A any](parts []R, init A, fn func(A, R) A) A {
	acc := init
	for _, p := range parts {
		acc = fn(acc, p)
	}
	return acc
}
