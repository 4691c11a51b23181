package batch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// FanOut runs fn for every item of a page concurrently and waits for all of them.
// At most PageSize calls are in flight. The first error is returned after the
// remaining calls finish; the context handed to fn is cancelled when one fails.
func FanOut[T any](ctx context.Context, items []T, fn func(ctx context.Context, item T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(PageSize)

	for _, item := range items {
		item := item
		g.Go(func() error {
			return fn(gctx, item)
		})
	}
	return g.Wait()
}
