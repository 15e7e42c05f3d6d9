package graph

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockgraph/blockgraph/pkg/block"
	"github.com/blockgraph/blockgraph/pkg/logging"
	"github.com/blockgraph/blockgraph/pkg/serializer"
)

func TestDumpGraph_RejectsUnfinalizedEdgelist(t *testing.T) {
	g := New(logging.Null{})
	path := filepath.Join(t.TempDir(), "graph.bin")
	require.NoError(t, g.InitSerializer(path, serializer.ModeWrite))
	defer g.Close()

	g.InitNodes(2)
	require.NoError(t, g.AddEdge(0, 1))
	err := g.DumpGraph()
	require.Error(t, err)
}

func TestAddEdge_RejectsOutOfRangeEndpoint(t *testing.T) {
	g := New(logging.Null{})
	path := filepath.Join(t.TempDir(), "graph.bin")
	require.NoError(t, g.InitSerializer(path, serializer.ModeWrite))
	defer g.Close()

	g.InitNodes(2)
	err := g.AddEdge(0, 5)
	require.Error(t, err)
}

// TestDumpGraph_ExactlyOneFullBlock pins down the boundary where a
// vertex's degree exactly fills one edge block (no leftover capacity
// should ever be registered into the segment tree for it).
func TestDumpGraph_ExactlyOneFullBlock(t *testing.T) {
	adj := make([][]uint32, block.EdgeSlots+1)
	full := make([]uint32, block.EdgeSlots)
	for i := range full {
		full[i] = uint32((i + 1) % len(adj))
	}
	adj[0] = full

	g := buildGraph(t, adj)
	defer g.Close()

	deg, err := g.GetDegree(0)
	require.NoError(t, err)
	assert.Equal(t, uint32(block.EdgeSlots), deg)

	edges, err := g.GetEdges(0)
	require.NoError(t, err)
	assert.Equal(t, full, edges)

	rec := g.vertices[0]
	assert.False(t, rec.IsMultiBlock())
}

// TestDumpGraph_OneOverFullBlock pins down the boundary one past a full
// block: degree EdgeSlots+1 must become a two-block hub.
func TestDumpGraph_OneOverFullBlock(t *testing.T) {
	n := block.EdgeSlots + 2
	adj := make([][]uint32, n)
	hub := make([]uint32, block.EdgeSlots+1)
	for i := range hub {
		hub[i] = uint32((i + 1) % n)
	}
	adj[0] = hub

	g := buildGraph(t, adj)
	defer g.Close()

	edges, err := g.GetEdges(0)
	require.NoError(t, err)
	assert.Equal(t, hub, edges)

	rec := g.vertices[0]
	assert.True(t, rec.IsMultiBlock())
	assert.Equal(t, uint32(2), rec.NumSpannedBlocks())
}

// TestDumpGraph_EmptyGraphHasZeroEdgeBlocks covers num_edge_blocks == 0.
func TestDumpGraph_EmptyGraphHasZeroEdgeBlocks(t *testing.T) {
	g := New(logging.Null{})
	path := filepath.Join(t.TempDir(), "graph.bin")
	require.NoError(t, g.InitSerializer(path, serializer.ModeWrite))

	g.InitNodes(3)
	g.FinalizeEdgelist()
	require.NoError(t, g.DumpGraph())
	require.NoError(t, g.Close())

	r := New(logging.Null{})
	require.NoError(t, r.InitSerializer(path, serializer.ModeInMemory))
	require.NoError(t, r.InitMetadata())
	require.NoError(t, r.InitVertexData())
	defer r.Close()

	assert.Equal(t, uint32(0), r.meta.NumEdgeBlocks)
	assert.Equal(t, uint32(3), r.GetNumNodes())
	for v := uint32(0); v < 3; v++ {
		deg, err := r.GetDegree(v)
		require.NoError(t, err)
		assert.Equal(t, uint32(0), deg)
	}
}

// TestDumpGraph_PacksLowDegreeVerticesWhenTreeIsActive verifies the
// segment tree reuses a single edge block's leftover capacity across
// several low-degree vertices once total degree is large enough to
// stand up a tree, rather than allocating one block per vertex.
func TestDumpGraph_PacksLowDegreeVerticesWhenTreeIsActive(t *testing.T) {
	// One hub vertex forces the tree into existence (totalDeg >=
	// EdgeSlots); the remaining single-edge vertices should then share
	// the hub's single leftover block rather than each getting one.
	n := block.EdgeSlots + 5
	adj := make([][]uint32, n)
	hub := make([]uint32, block.EdgeSlots-3)
	for i := range hub {
		hub[i] = uint32((i + 1) % n)
	}
	adj[0] = hub
	for v := 1; v < 4; v++ {
		adj[v] = []uint32{uint32((v + 1) % n)}
	}

	g := buildGraph(t, adj)
	defer g.Close()

	// The hub leaves 3 leftover slots in its block; the three
	// single-edge vertices (degree 1 each) fit into that leftover
	// capacity, so no additional edge block should be allocated.
	assert.Equal(t, uint32(1), g.meta.NumEdgeBlocks)
	for v, want := range adj {
		got, err := g.GetEdges(uint32(v))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}
