package algorithm

import (
	"context"
	"sync/atomic"

	"github.com/blockgraph/blockgraph/pkg/graph"
)

// WCC computes the number of weakly connected components, labeling
// each vertex with the id of the first vertex discovered in its
// component. It processes one component at a time with the
// vertex-parallel schedule. Edges are followed only in their stored
// direction, so the count is the weakly connected component count only
// when every edge is also stored reversed (as an undirected dump stores
// it); otherwise two vertices joined by a one-way edge can be counted in
// separate components.
func WCC(ctx context.Context, g *graph.Graph) (numComponents int, err error) {
	numNodes := int(g.GetNumNodes())
	labels := make([]atomic.Int32, numNodes)
	for i := range labels {
		labels[i].Store(-1)
	}

	for id := 0; id < numNodes; id++ {
		if labels[id].Load() != -1 {
			continue
		}
		numComponents++
		labels[id].Store(int32(id))
		frontier := []uint32{uint32(id)}

		for len(frontier) > 0 {
			next, perr := g.ProcessQueue(ctx, frontier, func(v, w uint32, next *[]uint32) {
				if labels[w].CompareAndSwap(-1, int32(id)) {
					*next = append(*next, w)
				}
			})
			if perr != nil {
				return 0, perr
			}
			frontier = next
		}
	}
	return numComponents, nil
}

// WCCInBlocks is WCC's edge-block-parallel variant: each frontier round
// is grouped by owning edge block via ProcessQueueInBlocks rather than
// split purely by vertex count.
func WCCInBlocks(ctx context.Context, g *graph.Graph) (numComponents int, err error) {
	numNodes := int(g.GetNumNodes())
	labels := make([]atomic.Int32, numNodes)
	for i := range labels {
		labels[i].Store(-1)
	}

	for id := 0; id < numNodes; id++ {
		if labels[id].Load() != -1 {
			continue
		}
		numComponents++
		labels[id].Store(int32(id))
		frontier := []uint32{uint32(id)}

		for len(frontier) > 0 {
			next, perr := g.ProcessQueueInBlocks(ctx, frontier, func(v uint32, neighbors []uint32, next *[]uint32) {
				for _, w := range neighbors {
					if labels[w].CompareAndSwap(-1, int32(id)) {
						*next = append(*next, w)
					}
				}
			})
			if perr != nil {
				return 0, perr
			}
			frontier = next
		}
	}
	return numComponents, nil
}
