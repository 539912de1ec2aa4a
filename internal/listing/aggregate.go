// Package listing groups the packages of a dependency graph by their minimum
// toolchain requirement and renders the grouping as a table or a JSON
// document.
//
// Both renderers fold over the same bucket sequence produced by Aggregate, so
// the order of requirements and members can never differ between them.
package listing

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/bayleafwalker/msrv/internal/graph"
	"github.com/bayleafwalker/msrv/internal/resolver"
	"github.com/bayleafwalker/msrv/internal/semver"
)

// Bucket is the set of packages sharing one requirement, in the order they
// were first visited.
type Bucket struct {
	Requirement  resolver.Requirement
	Dependencies []string
}

// Result is the ordered bucket sequence of one traversal: ascending by
// version, with the unknown bucket (if any) last.
type Result struct {
	Buckets []Bucket
}

// Highest returns the most restrictive requirement across the graph, that is
// the largest known version. It is unknown when no package resolved.
func (r Result) Highest() resolver.Requirement {
	versions := make([]semver.Version, 0, len(r.Buckets))
	for _, b := range r.Buckets {
		if v, ok := b.Requirement.Get(); ok {
			versions = append(versions, v)
		}
	}
	if v, ok := semver.Max(versions); ok {
		return resolver.Known(v)
	}
	return resolver.Unknown()
}

// Aggregate walks g breadth-first from its root, resolves every visited
// package and groups the package names by requirement.
func Aggregate(ctx context.Context, g *graph.DependencyGraph, r resolver.Resolver) (Result, error) {
	logger := log.FromContext(ctx)

	root, err := g.RootIndex()
	if err != nil {
		return Result{}, fmt.Errorf("listing: %w", err)
	}

	// Keyed by the canonical requirement string; build metadata makes two
	// equal-precedence versions distinct keys.
	buckets := map[string]*Bucket{}
	visited := 0

	bfs := graph.NewBFS(g, root)
	for nx, ok := bfs.Next(); ok; nx, ok = bfs.Next() {
		pkg := g.Package(nx)
		res := r.Resolve(ctx, pkg)
		visited++
		resolutionsTotal.WithLabelValues(string(res.Source)).Inc()

		key := res.Requirement.String()
		b, exists := buckets[key]
		if !exists {
			b = &Bucket{Requirement: res.Requirement}
			buckets[key] = b
		}
		b.Dependencies = append(b.Dependencies, pkg.Name)
	}

	out := Result{Buckets: make([]Bucket, 0, len(buckets))}
	for _, b := range buckets {
		out.Buckets = append(out.Buckets, *b)
	}
	slices.SortFunc(out.Buckets, func(a, b Bucket) int {
		if c := a.Requirement.Compare(b.Requirement); c != 0 {
			return c
		}
		return strings.Compare(a.Requirement.String(), b.Requirement.String())
	})

	packagesVisited.Set(float64(visited))
	if unknown, ok := buckets[resolver.UnknownLabel]; ok {
		packagesUnresolved.Set(float64(len(unknown.Dependencies)))
	} else {
		packagesUnresolved.Set(0)
	}
	logger.V(1).Info("aggregated dependency requirements", "packages", visited, "buckets", len(out.Buckets))

	return out, nil
}
