package parallel

import (
	"context"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelFor_CoversEveryChunkExactlyOnce(t *testing.T) {
	const n = 97
	var mu sync.Mutex
	seen := make(map[int]bool)

	err := ParallelFor(context.Background(), n, PoolConfig{MaxWorkers: 8}, func(ctx context.Context, lo, hi int) error {
		mu.Lock()
		defer mu.Unlock()
		for i := lo; i < hi; i++ {
			seen[i] = true
		}
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, n)
}

func TestForEachIndex_VisitsEveryIndex(t *testing.T) {
	const n = 50
	var mu sync.Mutex
	var got []int

	err := ForEachIndex(context.Background(), n, PoolConfig{MaxWorkers: 4}, func(ctx context.Context, i int) error {
		mu.Lock()
		got = append(got, i)
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	sort.Ints(got)
	want := make([]int, n)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)
}

func TestParallelFor_ZeroElementsIsNoop(t *testing.T) {
	called := false
	err := ParallelFor(context.Background(), 0, DefaultPoolConfig(), func(ctx context.Context, lo, hi int) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.False(t, called)
}

// TestRunDFS_VisitsEveryNodeOnce walks a degenerate path graph of length
// n; each frame has one successor, so the stack never holds more than one
// frame and no split happens.
func TestRunDFS_VisitsEveryNodeOnce(t *testing.T) {
	const n = 5000
	var mu sync.Mutex
	visited := make(map[int]bool)

	err := RunDFS(context.Background(), []int{0}, DFSConfig{MaxStackSize: 8, MaxTasks: 8},
		func(ctx context.Context, frame int) ([]int, error) {
			mu.Lock()
			visited[frame] = true
			mu.Unlock()
			if frame+1 < n {
				return []int{frame + 1}, nil
			}
			return nil, nil
		})
	require.NoError(t, err)
	assert.Len(t, visited, n)
}

func TestRunDFS_BranchingTree(t *testing.T) {
	// A full binary tree of depth 12 (ids 1..8191, 8191 nodes), encoded as node ids.
	const depth = 12
	var mu sync.Mutex
	visited := make(map[int]bool)

	err := RunDFS(context.Background(), []int{1}, DFSConfig{MaxStackSize: 4, MaxTasks: 16},
		func(ctx context.Context, id int) ([]int, error) {
			mu.Lock()
			visited[id] = true
			mu.Unlock()
			if id >= 1<<depth {
				return nil, nil
			}
			return []int{id * 2, id*2 + 1}, nil
		})
	require.NoError(t, err)
	assert.Equal(t, (1<<(depth+1))-1, len(visited))
}

func TestRunDFS_EmptyRootsIsNoop(t *testing.T) {
	err := RunDFS[int](context.Background(), nil, DFSConfig{}, func(ctx context.Context, frame int) ([]int, error) {
		t.Fatal("visitor should not be called")
		return nil, nil
	})
	require.NoError(t, err)
}
