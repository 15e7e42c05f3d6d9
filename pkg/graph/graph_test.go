package graph

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockgraph/blockgraph/pkg/block"
	"github.com/blockgraph/blockgraph/pkg/logging"
	"github.com/blockgraph/blockgraph/pkg/serializer"
)

// buildGraph dumps adjacency (adjacency[v] = out-neighbors of v) to a
// fresh file and reopens it read-only via mmap, returning the ready Graph.
func buildGraph(t *testing.T, adjacency [][]uint32) *Graph {
	t.Helper()
	path := filepath.Join(t.TempDir(), "graph.bin")

	w := New(logging.Null{})
	require.NoError(t, w.InitSerializer(path, serializer.ModeWrite))
	w.InitNodes(len(adjacency))
	for v, neighbors := range adjacency {
		for _, dst := range neighbors {
			require.NoError(t, w.AddEdge(uint32(v), dst))
		}
	}
	w.FinalizeEdgelist()
	require.NoError(t, w.DumpGraph())
	require.NoError(t, w.Close())

	g := New(logging.Null{})
	require.NoError(t, g.InitSerializer(path, serializer.ModeInMemory))
	require.NoError(t, g.InitMetadata())
	require.NoError(t, g.InitVertexData())
	g.DisableCache()
	return g
}

func TestTriangleRoundTrip(t *testing.T) {
	adj := [][]uint32{
		{1, 2},
		{0, 2},
		{0, 1},
	}
	g := buildGraph(t, adj)
	defer g.Close()

	assert.Equal(t, uint32(3), g.GetNumNodes())
	for v, want := range adj {
		got, err := g.GetEdges(uint32(v))
		require.NoError(t, err)
		assertSameMultiset(t, want, got)
	}
}

func TestTwoDisjointEdges_BFSFromZeroVisitsComponent(t *testing.T) {
	adj := [][]uint32{
		{1},
		{0},
		{3},
		{2},
	}
	g := buildGraph(t, adj)
	defer g.Close()

	visited := map[uint32]bool{0: true}
	frontier := []uint32{0}
	for len(frontier) > 0 {
		next, err := g.ProcessQueue(context.Background(), frontier, func(v, w uint32, next *[]uint32) {
			*next = append(*next, w)
		})
		require.NoError(t, err)
		var nf []uint32
		for _, w := range next {
			if !visited[w] {
				visited[w] = true
				nf = append(nf, w)
			}
		}
		frontier = nf
	}
	assert.Equal(t, map[uint32]bool{0: true, 1: true}, visited)
}

func TestHubVertex_SpansFiveBlocks(t *testing.T) {
	const hubDegree = 5 * block.EdgeSlots
	adj := make([][]uint32, hubDegree+1)
	hub := make([]uint32, hubDegree)
	for i := range hub {
		hub[i] = uint32(i + 1)
	}
	adj[0] = hub

	g := buildGraph(t, adj)
	defer g.Close()

	deg, err := g.GetDegree(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(hubDegree), deg)

	edges, err := g.GetEdges(0)
	require.NoError(t, err)
	require.Len(t, edges, hubDegree)
	assert.Equal(t, hub, edges)

	rec := g.vertices[0]
	_, offset := block.UnpackLocator(rec.EdgeBlockIdxOff)
	assert.Equal(t, uint32(0), offset)
	assert.Equal(t, uint32(5), rec.NumSpannedBlocks())
}

func TestDegreeZeroVertexHasNoEdges(t *testing.T) {
	adj := [][]uint32{{1}, nil}
	g := buildGraph(t, adj)
	defer g.Close()

	edges, err := g.GetEdges(1)
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestOutOfRangeVertex(t *testing.T) {
	g := buildGraph(t, [][]uint32{{}})
	defer g.Close()

	_, err := g.GetEdges(5)
	require.Error(t, err)
}

func TestRoundTrip_PropertyAcrossRandomishAdjacency(t *testing.T) {
	adj := [][]uint32{
		{1, 2, 3},
		{0},
		{0, 3},
		{},
		{0, 1, 2},
	}
	g := buildGraph(t, adj)
	defer g.Close()

	for v, want := range adj {
		got, err := g.GetEdges(uint32(v))
		require.NoError(t, err)
		assertSameMultiset(t, want, got)

		deg, err := g.GetDegree(uint32(v))
		require.NoError(t, err)
		assert.Equal(t, uint32(len(got)), deg)
	}
}

func TestProcessQueueInBlocks_GroupsVerticesByOwningBlock(t *testing.T) {
	adj := [][]uint32{
		{1},
		{2},
		{3},
		{},
	}
	g := buildGraph(t, adj)
	defer g.Close()

	var mu sync.Mutex
	var touched []uint32

	next, err := g.ProcessQueueInBlocks(context.Background(), []uint32{0, 1, 2}, func(v uint32, neighbors []uint32, next *[]uint32) {
		mu.Lock()
		touched = append(touched, v)
		mu.Unlock()
		*next = append(*next, neighbors...)
	})
	require.NoError(t, err)
	sort.Slice(touched, func(i, j int) bool { return touched[i] < touched[j] })
	assert.Equal(t, []uint32{0, 1, 2}, touched)
	assertSameMultiset(t, []uint32{1, 2, 3}, next)
}

func assertSameMultiset(t *testing.T, want, got []uint32) {
	t.Helper()
	w := append([]uint32(nil), want...)
	g := append([]uint32(nil), got...)
	sort.Slice(w, func(i, j int) bool { return w[i] < w[j] })
	sort.Slice(g, func(i, j int) bool { return g[i] < g[j] })
	assert.Equal(t, w, g)
}
