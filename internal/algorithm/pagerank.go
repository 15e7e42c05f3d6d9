package algorithm

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/blockgraph/blockgraph/pkg/graph"
)

// damping and base are PageRank's standard random-walk/teleport constants.
const (
	damping = 0.85
	base    = 1 - damping
)

// PageRank runs the convergence-driven variant: a vertex whose score
// changes by more than eps puts its out-neighbors into the next round's
// frontier, and the run ends when a round activates no vertex.
// It returns every vertex's final score.
func PageRank(ctx context.Context, g *graph.Graph, eps float64) ([]float64, error) {
	numNodes := int(g.GetNumNodes())
	pr := make([]float64, numNodes)
	prNext := make([]float64, numNodes)
	degrees := make([]uint32, numNodes)
	visited := make([]atomic.Bool, numNodes)

	frontier := make([]uint32, numNodes)
	for i := 0; i < numNodes; i++ {
		deg, err := g.GetDegree(uint32(i))
		if err != nil {
			return nil, err
		}
		degrees[i] = deg
		if deg > 0 {
			pr[i] = 1 / float64(deg)
		}
		prNext[i] = pr[i]
		frontier[i] = uint32(i)
	}

	for len(frontier) > 0 {
		next, err := g.ProcessQueueStaged(ctx, frontier,
			func(v uint32) bool { prNext[v] = 0; return true },
			func(v, w uint32) { prNext[v] += pr[w] },
			func(v uint32) bool {
				if degrees[v] == 0 {
					prNext[v] = 0
					return false
				}
				prNext[v] = (base + damping*prNext[v]) / float64(degrees[v])
				return math.Abs(prNext[v]-pr[v]) > eps
			},
			func(v, w uint32, next *[]uint32) {
				if !visited[w].Swap(true) {
					*next = append(*next, w)
				}
			},
		)
		if err != nil {
			return nil, err
		}
		copy(pr, prNext)
		for _, v := range frontier {
			visited[v].Store(false)
		}
		frontier = next
	}
	return pr, nil
}

// PageRankFixedIterations runs exactly iterations rounds over the whole
// vertex set (no convergence check), matching a fixed-budget benchmark
// run. Pass inBlocks to use the edge-block-parallel schedule instead of
// the vertex-parallel one.
func PageRankFixedIterations(ctx context.Context, g *graph.Graph, iterations int, inBlocks bool) ([]float64, error) {
	numNodes := int(g.GetNumNodes())
	pr := make([]float64, numNodes)
	prNext := make([]float64, numNodes)
	degrees := make([]uint32, numNodes)

	frontier := make([]uint32, numNodes)
	for i := 0; i < numNodes; i++ {
		deg, err := g.GetDegree(uint32(i))
		if err != nil {
			return nil, err
		}
		degrees[i] = deg
		if deg > 0 {
			pr[i] = 1 / float64(deg)
		}
		prNext[i] = pr[i]
		frontier[i] = uint32(i)
	}

	finish := func(v uint32) bool {
		if degrees[v] == 0 {
			prNext[v] = 0
			return false
		}
		prNext[v] = (base + damping*prNext[v]) / float64(degrees[v])
		return false
	}
	noop := func(v, w uint32, next *[]uint32) {}

	for it := 0; it < iterations; it++ {
		var err error
		if inBlocks {
			_, err = g.ProcessQueueInBlocks(ctx, frontier, func(v uint32, neighbors []uint32, next *[]uint32) {
				prNext[v] = 0
				for _, w := range neighbors {
					prNext[v] += pr[w]
				}
				finish(v)
			})
		} else {
			_, err = g.ProcessQueueStaged(ctx, frontier,
				func(v uint32) bool { prNext[v] = 0; return true },
				func(v, w uint32) { prNext[v] += pr[w] }, finish, noop)
		}
		if err != nil {
			return nil, err
		}
		copy(pr, prNext)
	}
	return pr, nil
}
