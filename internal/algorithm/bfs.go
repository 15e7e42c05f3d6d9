// Package algorithm implements the graph traversal and analytics
// algorithms driven through a graph.Graph's query engine.
package algorithm

import (
	"context"
	"sync/atomic"

	"github.com/blockgraph/blockgraph/pkg/graph"
)

// BFS runs a parallel breadth-first traversal from source, returning the
// total number of vertices visited. Each frontier round is processed
// via the vertex-parallel schedule, with a compare-and-swap on a
// per-vertex atomic flag deciding which neighbor first discovers it.
func BFS(ctx context.Context, g *graph.Graph, source uint32) (int, error) {
	numNodes := int(g.GetNumNodes())
	visited := make([]atomic.Bool, numNodes)
	visited[source].Store(true)

	frontier := []uint32{source}
	total := 0

	for len(frontier) > 0 {
		total += len(frontier)

		next, err := g.ProcessQueue(ctx, frontier, func(v, w uint32, next *[]uint32) {
			if !visited[w].Swap(true) {
				*next = append(*next, w)
			}
		})
		if err != nil {
			return 0, err
		}
		frontier = next
	}
	return total, nil
}
