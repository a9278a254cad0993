// Package workpool provides a bounded-concurrency parallel map.
package workpool

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Map runs fn over items with at most limit invocations in flight and returns
// the results in input order. The first error cancels the remaining work.
// A limit < 1 means unbounded.
func Map[T, R any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T) (R, error)) ([]R, error) {
	if len(items) == 0 {
		return nil, nil
	}

	results := make([]R, len(items))

	g, ctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			r, err := fn(ctx, item)
			if err != nil {
				return fmt.Errorf("item %d: %w", i, err)
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// Each is Map for functions with no result.
func Each[T any](ctx context.Context, limit int, items []T, fn func(ctx context.Context, item T) error) error {
	_, err := Map(ctx, limit, items, func(ctx context.Context, item T) (struct{}, error) {
		return struct{}{}, fn(ctx, item)
	})
	return err
}
