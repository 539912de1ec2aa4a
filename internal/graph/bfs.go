package graph

import (
	"k8s.io/apimachinery/pkg/util/sets"
)

// BFS walks a graph breadth-first from a start index. Every node is yielded
// at most once, so a cyclic graph still terminates.
type BFS struct {
	graph   *DependencyGraph
	queue   []NodeIndex
	visited sets.Set[NodeIndex]
}

func NewBFS(g *DependencyGraph, start NodeIndex) *BFS {
	return &BFS{
		graph:   g,
		queue:   []NodeIndex{start},
		visited: sets.New(start),
	}
}

// Next returns the next node in breadth-first order, or false once the walk
// is exhausted.
func (b *BFS) Next() (NodeIndex, bool) {
	if len(b.queue) == 0 {
		return 0, false
	}
	nx := b.queue[0]
	b.queue = b.queue[1:]

	for _, succ := range b.graph.Neighbors(nx) {
		if b.visited.Has(succ) {
			continue
		}
		b.visited.Insert(succ)
		b.queue = append(b.queue, succ)
	}
	return nx, true
}
