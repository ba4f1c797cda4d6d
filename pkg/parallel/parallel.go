// Package parallel runs a function over a slice with bounded concurrency.
//
// Results keep the order of the input regardless of completion order.
package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Result pairs a value with the error produced for one input item.
type Result[R any] struct {
	Value R
	Err   error
}

// Map applies fn to every item with at most limit calls in flight and
// returns the results in input order. The first error cancels the context
// passed to the remaining calls and is returned.
//
// A non-positive limit means no limit.
func Map[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) ([]R, error) {
	out := make([]R, len(items))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, item := range items {
		g.Go(func() error {
			v, err := fn(gctx, item)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// MapAll applies fn to every item with at most limit calls in flight. A
// failing item does not stop the others; its error is kept in the matching
// Result. Items that have not started when ctx ends get ctx.Err().
func MapAll[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) []Result[R] {
	out := make([]Result[R], len(items))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			out[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				out[i].Err = err
				return nil
			}
			out[i].Value, out[i].Err = fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// ForEach calls fn for every item with at most limit calls in flight and
// returns the first error.
func ForEach[T any](ctx context.Context, items []T, limit int, fn func(context.Context, T) error) error {
	_, err := Map(ctx, items, limit, func(ctx context.Context, item T) (struct{}, error) {
		return struct{}{}, fn(ctx, item)
	})
	return err
}
