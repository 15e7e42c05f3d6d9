package algorithm

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/blockgraph/blockgraph/pkg/graph"
	"github.com/blockgraph/blockgraph/pkg/parallel"
)

// DFS runs a parallel depth-first traversal from source via stack
// splitting, returning the total number of vertices visited. maxTasks
// bounds concurrently running DFS tasks (0 means NumCPU, see
// parallel.DFSConfig).
func DFS(ctx context.Context, g *graph.Graph, source uint32, maxStackSize, maxTasks int) (int, error) {
	numNodes := int(g.GetNumNodes())
	visited := make([]atomic.Bool, numNodes)
	visited[source].Store(true)

	var count atomic.Int64

	cfg := parallel.DFSConfig{MaxStackSize: maxStackSize, MaxTasks: maxTasks}
	err := parallel.RunDFS(ctx, []uint32{source}, cfg, func(ctx context.Context, v uint32) ([]uint32, error) {
		count.Add(1)
		edges, err := g.GetEdges(v)
		if err != nil {
			return nil, err
		}
		var successors []uint32
		for _, w := range edges {
			if !visited[w].Swap(true) {
				successors = append(successors, w)
			}
		}
		return successors, nil
	})
	if err != nil {
		return 0, err
	}
	return int(count.Load()), nil
}

// DFSRecursive runs a single-goroutine recursive depth-first traversal
// from source, returning the total number of vertices visited. This is
// the plain correctness baseline the parallel, stack-splitting DFS
// above is checked against.
func DFSRecursive(g *graph.Graph, source uint32) (int, error) {
	numNodes := int(g.GetNumNodes())
	visited := make([]bool, numNodes)
	count := 0

	var visit func(v uint32) error
	visit = func(v uint32) error {
		visited[v] = true
		count++
		edges, err := g.GetEdges(v)
		if err != nil {
			return err
		}
		for _, w := range edges {
			if !visited[w] {
				if err := visit(w); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if err := visit(source); err != nil {
		return 0, err
	}
	return count, nil
}

// errTargetFound cancels every in-flight DFS task as soon as one
// worker reaches the target vertex.
var errTargetFound = errors.New("target found")

// PathExists reports whether target is reachable from source, using a
// shared atomic is_found flag as the early-exit signal: the first
// worker to discover target stores it and returns errTargetFound,
// which cancels RunDFS's shared context so every other worker stops at
// its next frame instead of draining its full stack.
func PathExists(ctx context.Context, g *graph.Graph, source, target uint32, maxStackSize, maxTasks int) (bool, error) {
	if source == target {
		return true, nil
	}
	numNodes := int(g.GetNumNodes())
	visited := make([]atomic.Bool, numNodes)
	visited[source].Store(true)

	var isFound atomic.Bool

	cfg := parallel.DFSConfig{MaxStackSize: maxStackSize, MaxTasks: maxTasks}
	err := parallel.RunDFS(ctx, []uint32{source}, cfg, func(ctx context.Context, v uint32) ([]uint32, error) {
		if isFound.Load() {
			return nil, errTargetFound
		}
		edges, err := g.GetEdges(v)
		if err != nil {
			return nil, err
		}
		var successors []uint32
		for _, w := range edges {
			if w == target {
				isFound.Store(true)
				return nil, errTargetFound
			}
			if !visited[w].Swap(true) {
				successors = append(successors, w)
			}
		}
		return successors, nil
	})
	if err != nil && !errors.Is(err, errTargetFound) {
		return false, err
	}
	return isFound.Load(), nil
}
