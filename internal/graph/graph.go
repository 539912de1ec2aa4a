// Package graph models the resolved dependency graph of a Cargo workspace.
//
// Graphs are built once (see package metadata) and only read afterwards, so
// none of the types here are safe for concurrent mutation.
package graph

import (
	"fmt"
)

// PackageID is the identity of a package inside one graph. Two packages may
// share a name (different versions of the same crate) but never an ID.
type PackageID string

// NodeIndex is the position of a package in the graph.
type NodeIndex int

// Package is a vertex of the dependency graph.
type Package struct {
	ID      PackageID
	Name    string
	Version string

	// RustVersion is the raw package.rust-version expression, nil when the
	// manifest does not declare one.
	RustVersion *string
	// Metadata is the package.metadata table as reported by Cargo.
	Metadata     map[string]any
	ManifestPath string
}

type DependencyGraph struct {
	Root  PackageID
	Index map[PackageID]NodeIndex

	packages []Package
	edges    [][]NodeIndex
}

func New() *DependencyGraph {
	return &DependencyGraph{Index: map[PackageID]NodeIndex{}}
}

// AddPackage inserts p and returns its index.
func (g *DependencyGraph) AddPackage(p Package) (NodeIndex, error) {
	if _, exists := g.Index[p.ID]; exists {
		return 0, fmt.Errorf("graph: package %q added twice", p.ID)
	}
	idx := NodeIndex(len(g.packages))
	g.packages = append(g.packages, p)
	g.edges = append(g.edges, nil)
	g.Index[p.ID] = idx
	return idx, nil
}

// AddDependency records that from depends on to. Edge order is preserved and
// drives traversal order.
func (g *DependencyGraph) AddDependency(from, to PackageID) error {
	fi, ok := g.Index[from]
	if !ok {
		return fmt.Errorf("graph: unknown package %q", from)
	}
	ti, ok := g.Index[to]
	if !ok {
		return fmt.Errorf("graph: unknown package %q", to)
	}
	g.edges[fi] = append(g.edges[fi], ti)
	return nil
}

// SetRoot designates id as the package the traversal starts from.
func (g *DependencyGraph) SetRoot(id PackageID) error {
	if _, ok := g.Index[id]; !ok {
		return fmt.Errorf("graph: unknown root package %q", id)
	}
	g.Root = id
	return nil
}

// RootIndex returns the index of the root package.
func (g *DependencyGraph) RootIndex() (NodeIndex, error) {
	idx, ok := g.Index[g.Root]
	if !ok {
		return 0, fmt.Errorf("graph: root package %q is not part of the graph", g.Root)
	}
	return idx, nil
}

func (g *DependencyGraph) Package(i NodeIndex) Package {
	return g.packages[i]
}

func (g *DependencyGraph) Neighbors(i NodeIndex) []NodeIndex {
	return g.edges[i]
}

func (g *DependencyGraph) Len() int {
	return len(g.packages)
}
