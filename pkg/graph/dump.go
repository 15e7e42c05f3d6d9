package graph

import (
	"github.com/blockgraph/blockgraph/pkg/block"
	"github.com/blockgraph/blockgraph/pkg/graphErr"
	"github.com/blockgraph/blockgraph/pkg/segtree"
)

// writeBatchSize bounds how many blocks are queued per WriteBlocks call
// during dump, per spec.md §4.4 step 4.
const writeBatchSize = 1024

// InitNodes declares the number of vertices for a graph under
// construction, resetting any adjacency previously recorded.
func (g *Graph) InitNodes(n int) {
	g.dump = dumpState{
		numNodes:  n,
		adjacency: make([][]uint32, n),
	}
}

// AddEdge records a directed edge src -> dst. Both ids must be in
// [0, n) as declared by InitNodes.
func (g *Graph) AddEdge(src, dst uint32) error {
	if int(src) >= g.dump.numNodes || int(dst) >= g.dump.numNodes {
		return graphErr.New(graphErr.CodeOutOfRange, "edge endpoint >= declared node count")
	}
	g.dump.adjacency[src] = append(g.dump.adjacency[src], dst)
	return nil
}

// FinalizeEdgelist freezes the adjacency lists built via AddEdge,
// readying the graph for DumpGraph.
func (g *Graph) FinalizeEdgelist() {
	g.dump.finalized = true
}

// DumpGraph packs the finalized adjacency lists into vertex and edge
// blocks via SegmentTree bin-packing, and writes them through the
// Serializer (which must already be open in serializer.ModeWrite).
func (g *Graph) DumpGraph() error {
	if !g.dump.finalized {
		return graphErr.New(graphErr.CodeInvalidState, "finalize_edgelist not called before dump_graph")
	}
	if g.ser == nil {
		return graphErr.New(graphErr.CodeInvalidState, "serializer not opened")
	}

	n := g.dump.numNodes
	totalDeg := 0
	for _, adj := range g.dump.adjacency {
		totalDeg += len(adj)
	}

	var tree *segtree.SegmentTree
	maxLeaves := 2 * (totalDeg / block.EdgeSlots)
	if maxLeaves > 0 {
		tree = segtree.New(maxLeaves, block.EdgeSlots)
	}

	var edgeBlocks []block.EdgeBlock
	allocBlock := func() int {
		edgeBlocks = append(edgeBlocks, block.EdgeBlock{})
		return len(edgeBlocks) - 1
	}

	vertexRecords := make([]block.VertexRecord, n)

	for v := 0; v < n; v++ {
		edges := g.dump.adjacency[v]
		degree := len(edges)
		if degree == 0 {
			vertexRecords[v] = block.VertexRecord{Degree: 0, EdgeBlockIdxOff: block.PackLocator(0, 0)}
			continue
		}

		if degree > block.EdgeSlots {
			firstBlock := len(edgeBlocks)
			degOffset := 0
			for degOffset < degree {
				tmpDeg := degree - degOffset
				if tmpDeg > block.EdgeSlots {
					tmpDeg = block.EdgeSlots
				}
				bid := allocBlock()
				for i := 0; i < tmpDeg; i++ {
					edgeBlocks[bid][i] = edges[degOffset+i]
				}
				degOffset += tmpDeg

				newCapa := block.EdgeSlots - tmpDeg
				if newCapa > 0 {
					if tree == nil {
						return graphErr.New(graphErr.CodeConfiguration, "segment tree undersized for hub vertex leftover capacity")
					}
					leaf := tree.QueryFirstLarger(block.EdgeSlots)
					if leaf == -1 {
						return graphErr.New(graphErr.CodeConfiguration, "segment tree exhausted while registering hub remainder")
					}
					tree.Update(leaf, newCapa, bid)
				}
			}
			vertexRecords[v] = block.VertexRecord{
				Degree:          uint32(degree),
				EdgeBlockIdxOff: block.PackLocator(uint32(firstBlock), 0),
			}
			continue
		}

		var bid, offset int
		leaf := -1
		switch {
		case tree == nil:
			bid = allocBlock()
			offset = 0
		default:
			leaf = tree.QueryFirstLarger(degree)
			if leaf == -1 {
				return graphErr.New(graphErr.CodeConfiguration, "segment tree exhausted while packing vertex")
			}
			bid = tree.GetBlockID(leaf)
			offset = block.EdgeSlots - tree.GetCapacity(leaf)
			if bid == -1 {
				bid = allocBlock()
				offset = 0
			}
		}

		for i := 0; i < degree; i++ {
			edgeBlocks[bid][offset+i] = edges[i]
		}

		if tree != nil {
			newCapa := block.EdgeSlots - offset - degree
			tree.Update(leaf, newCapa, bid)
		}

		vertexRecords[v] = block.VertexRecord{
			Degree:          uint32(degree),
			EdgeBlockIdxOff: block.PackLocator(uint32(bid), uint32(offset)),
		}
	}

	numVertexBlocks := 0
	if n > 0 {
		numVertexBlocks = (n + block.RecordsPerBlock - 1) / block.RecordsPerBlock
	}

	if err := g.writeVertexBlocks(vertexRecords, numVertexBlocks); err != nil {
		return err
	}
	if err := g.writeEdgeBlocks(edgeBlocks, numVertexBlocks); err != nil {
		return err
	}

	meta := block.Meta{
		NumNodes:        uint32(n),
		NumBlocks:       uint32(1 + numVertexBlocks + len(edgeBlocks)),
		NumVertexBlocks: uint32(numVertexBlocks),
		NumEdgeBlocks:   uint32(len(edgeBlocks)),
	}
	if err := g.ser.WriteMeta(meta); err != nil {
		return err
	}
	g.meta = meta

	return g.ser.FinishWrite()
}

func (g *Graph) writeVertexBlocks(records []block.VertexRecord, numVertexBlocks int) error {
	for batchStart := 0; batchStart < numVertexBlocks; batchStart += writeBatchSize {
		batchEnd := batchStart + writeBatchSize
		if batchEnd > numVertexBlocks {
			batchEnd = numVertexBlocks
		}
		bufs := make([][]byte, 0, batchEnd-batchStart)
		for i := batchStart; i < batchEnd; i++ {
			lo := i * block.RecordsPerBlock
			hi := lo + block.RecordsPerBlock
			if hi > len(records) {
				hi = len(records)
			}
			bufs = append(bufs, block.EncodeVertexBlock(records[lo:hi]))
		}
		if err := g.ser.WriteBlocks(1+batchStart, bufs, len(bufs)); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) writeEdgeBlocks(edgeBlocks []block.EdgeBlock, numVertexBlocks int) error {
	base := 1 + numVertexBlocks
	for batchStart := 0; batchStart < len(edgeBlocks); batchStart += writeBatchSize {
		batchEnd := batchStart + writeBatchSize
		if batchEnd > len(edgeBlocks) {
			batchEnd = len(edgeBlocks)
		}
		bufs := make([][]byte, 0, batchEnd-batchStart)
		for i := batchStart; i < batchEnd; i++ {
			eb := edgeBlocks[i]
			bufs = append(bufs, eb.Encode())
		}
		if err := g.ser.WriteBlocks(base+batchStart, bufs, len(bufs)); err != nil {
			return err
		}
	}
	return nil
}
