package algorithm

import (
	"context"
	"math/rand"

	"github.com/blockgraph/blockgraph/pkg/graph"
	"github.com/blockgraph/blockgraph/pkg/parallel"
)

// pickNeighbor deterministically seeds a local PRNG from (seed, v,
// step) so concurrent callers never share mutable random state.
func pickNeighbor(seed int64, v uint32, step int, edges []uint32) uint32 {
	r := rand.New(rand.NewSource(seed ^ int64(v)<<32 ^ int64(step)))
	return edges[r.Intn(len(edges))]
}

// RandomWalk runs numWalks independent fixed-length walks, one per
// frontier slot, picking a uniformly random out-edge at each step via
// the vertex-parallel schedule. A vertex with no out-edges drops its
// walk for the remaining steps. Returns the total number of
// (walk, step) visits, matching the original's visited_node_count.
func RandomWalk(ctx context.Context, g *graph.Graph, numWalks, steps int, seed int64) (int, error) {
	numNodes := int(g.GetNumNodes())
	if numNodes == 0 || numWalks <= 0 {
		return 0, nil
	}

	seedRng := rand.New(rand.NewSource(seed))
	frontier := make([]uint32, numWalks)
	for i := range frontier {
		frontier[i] = uint32(seedRng.Intn(numNodes))
	}

	visited := 0
	for step := 0; step < steps && len(frontier) > 0; step++ {
		visited += len(frontier)

		next := make([]uint32, len(frontier))
		dropped := make([]bool, len(frontier))
		err := parallel.ParallelFor(ctx, len(frontier), parallel.DefaultPoolConfig(), func(ctx context.Context, lo, hi int) error {
			for i := lo; i < hi; i++ {
				v := frontier[i]
				edges, err := g.GetEdges(v)
				if err != nil {
					return err
				}
				if len(edges) == 0 {
					dropped[i] = true
					continue
				}
				next[i] = pickNeighbor(seed, v, step, edges)
			}
			return nil
		})
		if err != nil {
			return 0, err
		}

		stepped := next[:0]
		for i, v := range next {
			if !dropped[i] {
				stepped = append(stepped, v)
			}
		}
		frontier = stepped
	}
	return visited, nil
}

// RandomWalkInBlocks is RandomWalk's edge-block-parallel variant: each
// step groups the frontier by owning edge block via
// ProcessQueueInBlocks, so a random neighbor is chosen from the full
// per-vertex neighbor slice fetched for the group.
func RandomWalkInBlocks(ctx context.Context, g *graph.Graph, numWalks, steps int, seed int64) (int, error) {
	numNodes := int(g.GetNumNodes())
	if numNodes == 0 || numWalks <= 0 {
		return 0, nil
	}

	seedRng := rand.New(rand.NewSource(seed))
	frontier := make([]uint32, numWalks)
	for i := range frontier {
		frontier[i] = uint32(seedRng.Intn(numNodes))
	}

	visited := 0
	for step := 0; step < steps && len(frontier) > 0; step++ {
		visited += len(frontier)
		curStep := step
		next, err := g.ProcessQueueInBlocks(ctx, frontier, func(v uint32, neighbors []uint32, next *[]uint32) {
			if len(neighbors) == 0 {
				return
			}
			*next = append(*next, pickNeighbor(seed, v, curStep, neighbors))
		})
		if err != nil {
			return 0, err
		}
		frontier = next
	}
	return visited, nil
}
