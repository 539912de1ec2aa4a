package listing

import (
	"context"

	"github.com/bayleafwalker/msrv/internal/graph"
	"github.com/bayleafwalker/msrv/internal/resolver"
)

// Values is what a renderer sees of one bucket.
type Values struct {
	// Requirement is the display form of the bucket key, "unknown" for
	// unresolved packages.
	Requirement  string
	Dependencies []string
}

// Fold calls fold once per bucket of res, in order, on the accumulator
// returned by init.
func Fold[B any](res Result, init func() B, fold func(acc *B, next Values)) B {
	out := init()
	for _, b := range res.Buckets {
		fold(&out, Values{
			Requirement:  b.Requirement.String(),
			Dependencies: append([]string(nil), b.Dependencies...),
		})
	}
	return out
}

// Project traverses g and folds the resulting buckets into an accumulator of
// the caller's choosing. Renderers only decide the shape of the accumulator.
func Project[B any](ctx context.Context, g *graph.DependencyGraph, r resolver.Resolver, init func() B, fold func(acc *B, next Values)) (B, error) {
	res, err := Aggregate(ctx, g, r)
	if err != nil {
		var zero B
		return zero, err
	}
	return Fold(res, init, fold), nil
}
