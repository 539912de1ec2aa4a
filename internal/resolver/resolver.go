package resolver

import (
	"context"

	"github.com/bayleafwalker/msrv/internal/graph"
)

// Resolver determines the minimum toolchain requirement of a single package.
//
// Implementations never fail: a package whose requirement cannot be
// determined resolves to Unknown().
type Resolver interface {
	Resolve(ctx context.Context, pkg graph.Package) Resolution
}
