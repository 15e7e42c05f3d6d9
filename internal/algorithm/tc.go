package algorithm

import (
	"context"
	"sync/atomic"

	"github.com/blockgraph/blockgraph/pkg/graph"
	"github.com/blockgraph/blockgraph/pkg/parallel"
)

// TriangleCount counts triangles via degree-ordered neighbor
// intersection: an edge (u, v) is only expanded from its lower-degree
// endpoint (ties broken by id), so each triangle is counted exactly
// once. Runs sequentially over the vertex set; see
// TriangleCountParallel for the worker-pool variant.
func TriangleCount(g *graph.Graph) (uint64, error) {
	numNodes := int(g.GetNumNodes())
	degree := make([]uint32, numNodes)
	for v := 0; v < numNodes; v++ {
		d, err := g.GetDegree(uint32(v))
		if err != nil {
			return 0, err
		}
		degree[v] = d
	}

	before := func(a, b uint32) bool {
		return degree[a] > degree[b] || (degree[a] == degree[b] && a > b)
	}

	var total uint64
	marked := make(map[uint32]struct{})
	for u := 0; u < numNodes; u++ {
		uEdges, err := g.GetEdges(uint32(u))
		if err != nil {
			return 0, err
		}
		for k := range marked {
			delete(marked, k)
		}
		for _, w := range uEdges {
			marked[w] = struct{}{}
		}

		for _, v := range uEdges {
			if !before(v, uint32(u)) {
				continue
			}
			vEdges, err := g.GetEdges(v)
			if err != nil {
				return 0, err
			}
			for _, w := range vEdges {
				if !before(w, v) {
					continue
				}
				if _, ok := marked[w]; ok {
					total++
				}
			}
		}
	}
	return total, nil
}

// TriangleCountParallel splits the vertex range across the worker pool
// with a per-worker local accumulator, then sums the partials. Each
// worker rebuilds its own neighbor-membership set rather than sharing
// one across goroutines.
func TriangleCountParallel(ctx context.Context, g *graph.Graph) (uint64, error) {
	numNodes := int(g.GetNumNodes())
	degree := make([]uint32, numNodes)
	for v := 0; v < numNodes; v++ {
		d, err := g.GetDegree(uint32(v))
		if err != nil {
			return 0, err
		}
		degree[v] = d
	}

	before := func(a, b uint32) bool {
		return degree[a] > degree[b] || (degree[a] == degree[b] && a > b)
	}

	var total atomic.Uint64
	err := parallel.ParallelFor(ctx, numNodes, parallel.DefaultPoolConfig(), func(ctx context.Context, lo, hi int) error {
		marked := make(map[uint32]struct{})
		var partial uint64
		for u := lo; u < hi; u++ {
			uEdges, err := g.GetEdges(uint32(u))
			if err != nil {
				return err
			}
			for k := range marked {
				delete(marked, k)
			}
			for _, w := range uEdges {
				marked[w] = struct{}{}
			}

			for _, v := range uEdges {
				if !before(v, uint32(u)) {
					continue
				}
				vEdges, err := g.GetEdges(v)
				if err != nil {
					return err
				}
				for _, w := range vEdges {
					if !before(w, v) {
						continue
					}
					if _, ok := marked[w]; ok {
						partial++
					}
				}
			}
		}
		total.Add(partial)
		return nil
	})
	return total.Load(), err
}
