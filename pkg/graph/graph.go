// Package graph implements the on-disk graph, its construction via
// SegmentTree bin-packing, and the cached, parallel query engine that
// sits on top of it (spec.md §4.4).
package graph

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/blockgraph/blockgraph/pkg/block"
	"github.com/blockgraph/blockgraph/pkg/blockcache"
	"github.com/blockgraph/blockgraph/pkg/graphErr"
	"github.com/blockgraph/blockgraph/pkg/logging"
	"github.com/blockgraph/blockgraph/pkg/parallel"
	"github.com/blockgraph/blockgraph/pkg/serializer"
)

var tracer = otel.Tracer("blockgraph/graph")

// MinSlots is the smallest cache size the engine will honor; requests
// below this are clamped with a warning (spec.md §7, ConfigurationError).
const MinSlots = 16

// CacheMode selects which cache implementation (if any) backs edge-block
// reads.
type CacheMode int

const (
	CacheModeNormal CacheMode = iota
	CacheModeSimple
	CacheModeNone
)

func (m CacheMode) String() string {
	switch m {
	case CacheModeNormal:
		return "normal"
	case CacheModeSimple:
		return "simple"
	case CacheModeNone:
		return "none"
	default:
		return "unknown"
	}
}

// edgeSource adapts a Serializer into a blockcache.Source[block.EdgeBlock]
// keyed by logical edge-block id (0-based, offset from the on-disk edge
// block region's start).
type edgeSource struct {
	ser  *serializer.Serializer
	base int
}

func (s edgeSource) ReadBlock(logicalID int) (block.EdgeBlock, error) {
	buf, err := s.ser.ReadBlock(s.base + logicalID)
	if err != nil {
		return block.EdgeBlock{}, err
	}
	return block.DecodeEdgeBlock(buf), nil
}

// Graph is the query-time engine: vertex records held in memory, edge
// blocks fetched through a Serializer and (optionally) a block cache.
type Graph struct {
	mu sync.RWMutex

	ser  *serializer.Serializer
	meta block.Meta

	vertices []block.VertexRecord
	source   edgeSource

	cacheMode   CacheMode
	cacheSlots  int
	normalCache *blockcache.NormalCache[block.EdgeBlock]
	simpleCache *blockcache.SimpleCache[block.EdgeBlock]

	pool parallel.PoolConfig

	logger logging.Logger

	dump dumpState
}

type dumpState struct {
	numNodes  int
	adjacency [][]uint32
	finalized bool
}

// New creates an unopened Graph. Pass logging.Null{} for a silent logger.
func New(logger logging.Logger) *Graph {
	if logger == nil {
		logger = logging.Null{}
	}
	return &Graph{
		cacheMode: CacheModeNone,
		pool:      parallel.DefaultPoolConfig(),
		logger:    logger,
	}
}

// InitSerializer opens the graph file at path in the given mode.
func (g *Graph) InitSerializer(path string, mode serializer.Mode) error {
	ser, err := serializer.Open(path, mode)
	if err != nil {
		return err
	}
	g.ser = ser
	return nil
}

// InitMetadata reads the meta block.
func (g *Graph) InitMetadata() error {
	m, err := g.ser.ReadMeta()
	if err != nil {
		return err
	}
	g.meta = m
	g.source = edgeSource{ser: g.ser, base: g.edgeBlockBase()}
	return nil
}

func (g *Graph) edgeBlockBase() int {
	return 1 + int(g.meta.NumVertexBlocks)
}

// InitVertexData loads every vertex block into one contiguous in-memory
// slice, trimmed to exactly NumNodes records.
func (g *Graph) InitVertexData() error {
	records := make([]block.VertexRecord, 0, int(g.meta.NumVertexBlocks)*block.RecordsPerBlock)
	for i := 0; i < int(g.meta.NumVertexBlocks); i++ {
		buf, err := g.ser.ReadBlock(1 + i)
		if err != nil {
			return err
		}
		vb := block.DecodeVertexBlock(buf)
		records = append(records, vb[:]...)
	}
	if uint32(len(records)) < g.meta.NumNodes {
		return graphErr.New(graphErr.CodeCorruption, "vertex block region shorter than num_nodes")
	}
	g.vertices = records[:g.meta.NumNodes]
	return nil
}

// SetCacheSizeSlots sets the cache capacity directly, clamped to
// [MinSlots, NumEdgeBlocks].
func (g *Graph) SetCacheSizeSlots(n int) {
	max := int(g.meta.NumEdgeBlocks)
	clamped := n
	if clamped < MinSlots {
		g.logger.Warn("cache size %d below minimum, clamping to %d", n, MinSlots)
		clamped = MinSlots
	}
	if max > 0 && clamped > max {
		clamped = max
	}
	g.cacheSlots = clamped
	g.rebuildCache()
}

// SetCacheSizeMB sizes the cache from a byte budget.
func (g *Graph) SetCacheSizeMB(mb int) {
	slots := (mb * 1024 * 1024) / block.Size
	g.SetCacheSizeSlots(slots)
}

// SetCacheSizeRatio sizes the cache as a fraction of the total edge blocks.
func (g *Graph) SetCacheSizeRatio(ratio float64) {
	slots := int(ratio * float64(g.meta.NumEdgeBlocks))
	g.SetCacheSizeSlots(slots)
}

// SetCacheMode selects the active cache implementation and (re)allocates
// it at the currently configured size.
func (g *Graph) SetCacheMode(mode CacheMode) {
	g.cacheMode = mode
	g.rebuildCache()
}

// DisableCache switches to CacheModeNone; every get_edges call reads
// directly through the Serializer.
func (g *Graph) DisableCache() {
	g.SetCacheMode(CacheModeNone)
}

// ClearCache drops all residency in the active cache.
func (g *Graph) ClearCache() {
	switch g.cacheMode {
	case CacheModeNormal:
		if g.normalCache != nil {
			g.normalCache.Clear()
		}
	case CacheModeSimple:
		if g.simpleCache != nil {
			g.simpleCache.Clear()
		}
	}
}

func (g *Graph) rebuildCache() {
	if g.cacheSlots <= 0 {
		return
	}
	switch g.cacheMode {
	case CacheModeNormal:
		g.normalCache = blockcache.NewNormalCache[block.EdgeBlock](g.cacheSlots, g.source)
	case CacheModeSimple:
		g.simpleCache = blockcache.NewSimpleCache[block.EdgeBlock](g.cacheSlots, g.source)
	}
}

// SetThreadPoolSize bounds the worker-pool concurrency used by
// ProcessQueue, ProcessQueueStaged, and ProcessQueueInBlocks. The DFS
// drivers take their task bound from parallel.DFSConfig instead.
func (g *Graph) SetThreadPoolSize(n int) {
	g.pool = parallel.PoolConfig{MaxWorkers: n}
}

// PoolConfig returns the engine's current worker-pool configuration.
func (g *Graph) PoolConfig() parallel.PoolConfig { return g.pool }

// GetNumNodes returns the number of vertices in the graph.
func (g *Graph) GetNumNodes() uint32 { return g.meta.NumNodes }

// GetDegree returns v's out-degree.
func (g *Graph) GetDegree(v uint32) (uint32, error) {
	if v >= g.meta.NumNodes {
		return 0, graphErr.New(graphErr.CodeOutOfRange, fmt.Sprintf("vertex %d >= %d nodes", v, g.meta.NumNodes))
	}
	return g.vertices[v].Degree, nil
}

func (g *Graph) requestEdgeBlock(logicalID, ref int) int {
	switch g.cacheMode {
	case CacheModeNormal:
		return g.normalCache.RequestBlock(logicalID)
	case CacheModeSimple:
		return g.simpleCache.RequestBlock(logicalID, ref)
	default:
		return -1
	}
}

func (g *Graph) getEdgeBlock(slotIdx, logicalID int) (block.EdgeBlock, error) {
	switch g.cacheMode {
	case CacheModeNormal:
		return g.normalCache.GetCacheBlock(slotIdx, logicalID)
	case CacheModeSimple:
		if slotIdx == -1 {
			return g.source.ReadBlock(logicalID)
		}
		if err := g.simpleCache.FillBlock(slotIdx, logicalID); err != nil {
			return block.EdgeBlock{}, err
		}
		return g.simpleCache.GetBlock(logicalID), nil
	default:
		return g.source.ReadBlock(logicalID)
	}
}

func (g *Graph) releaseEdgeBlock(slotIdx, logicalID int) {
	switch g.cacheMode {
	case CacheModeNormal:
		g.normalCache.ReleaseCacheBlock(slotIdx)
	case CacheModeSimple:
		if slotIdx != -1 {
			g.simpleCache.ReleaseCacheBlock(logicalID)
		}
	}
}

// GetEdges returns v's out-neighbors, in on-disk order.
func (g *Graph) GetEdges(v uint32) ([]uint32, error) {
	if v >= g.meta.NumNodes {
		return nil, graphErr.New(graphErr.CodeOutOfRange, fmt.Sprintf("vertex %d >= %d nodes", v, g.meta.NumNodes))
	}
	rec := g.vertices[v]
	if rec.Degree == 0 {
		return nil, nil
	}
	firstBlock, offset := block.UnpackLocator(rec.EdgeBlockIdxOff)

	if !rec.IsMultiBlock() {
		slot := g.requestEdgeBlock(int(firstBlock), 1)
		eb, err := g.getEdgeBlock(slot, int(firstBlock))
		if err != nil {
			g.releaseEdgeBlock(slot, int(firstBlock))
			return nil, err
		}
		out := make([]uint32, rec.Degree)
		copy(out, eb[offset:offset+rec.Degree])
		g.releaseEdgeBlock(slot, int(firstBlock))
		return out, nil
	}

	// Multi-block: head blocks are full-block streams used exactly once
	// this call, so they are read directly rather than cached; only the
	// tail block goes through the cache, per spec.md §4.4.
	spanned := rec.NumSpannedBlocks()
	out := make([]uint32, 0, rec.Degree)
	for i := uint32(0); i < spanned-1; i++ {
		eb, err := g.source.ReadBlock(int(firstBlock) + int(i))
		if err != nil {
			return nil, err
		}
		out = append(out, eb[:]...)
	}
	lastBlockID := int(firstBlock) + int(spanned) - 1
	remaining := rec.Degree - (spanned-1)*block.EdgeSlots

	slot := g.requestEdgeBlock(lastBlockID, 1)
	eb, err := g.getEdgeBlock(slot, lastBlockID)
	if err != nil {
		g.releaseEdgeBlock(slot, lastBlockID)
		return nil, err
	}
	out = append(out, eb[:remaining]...)
	g.releaseEdgeBlock(slot, lastBlockID)
	return out, nil
}

// UpdateFunc is invoked once per (v, w) edge during ProcessQueue.
type UpdateFunc func(v, w uint32, next *[]uint32)

// ProcessQueue is the vertex-parallel schedule: the frontier is
// partitioned across the worker pool, each worker fetches get_edges for
// its assigned vertices and calls update for every resulting edge, then
// appends its private results to the shared next slice under one lock.
func (g *Graph) ProcessQueue(ctx context.Context, frontier []uint32, update UpdateFunc) ([]uint32, error) {
	ctx, span := tracer.Start(ctx, "graph.ProcessQueue", trace.WithAttributes(
		attribute.Int("frontier_size", len(frontier)),
	))
	defer span.End()

	var next []uint32
	var mu sync.Mutex

	err := parallel.ParallelFor(ctx, len(frontier), g.pool, func(ctx context.Context, lo, hi int) error {
		var private []uint32
		for i := lo; i < hi; i++ {
			v := frontier[i]
			edges, err := g.GetEdges(v)
			if err != nil {
				return err
			}
			for _, w := range edges {
				update(v, w, &private)
			}
		}
		mu.Lock()
		next = append(next, private...)
		mu.Unlock()
		return nil
	})
	return next, err
}

// ProcessQueueStaged is the (ready, compute, finish, update) overload of
// ProcessQueue: ready gates whether v participates this iteration,
// compute runs once per neighbor before finish decides whether to
// activate v's own update pass (e.g. PageRank's summation-then-emit
// shape).
func (g *Graph) ProcessQueueStaged(
	ctx context.Context,
	frontier []uint32,
	ready func(v uint32) bool,
	compute func(v, w uint32),
	finish func(v uint32) bool,
	update UpdateFunc,
) ([]uint32, error) {
	ctx, span := tracer.Start(ctx, "graph.ProcessQueueStaged", trace.WithAttributes(
		attribute.Int("frontier_size", len(frontier)),
	))
	defer span.End()

	var next []uint32
	var mu sync.Mutex

	err := parallel.ParallelFor(ctx, len(frontier), g.pool, func(ctx context.Context, lo, hi int) error {
		var private []uint32
		for i := lo; i < hi; i++ {
			v := frontier[i]
			if ready != nil && !ready(v) {
				continue
			}
			edges, err := g.GetEdges(v)
			if err != nil {
				return err
			}
			if compute != nil {
				for _, w := range edges {
					compute(v, w)
				}
			}
			if finish == nil || finish(v) {
				for _, w := range edges {
					update(v, w, &private)
				}
			}
		}
		mu.Lock()
		next = append(next, private...)
		mu.Unlock()
		return nil
	})
	return next, err
}

// BlockUpdateFunc is invoked once per vertex during ProcessQueueInBlocks,
// given the full neighbor list fetched for that vertex.
type BlockUpdateFunc func(v uint32, neighbors []uint32, next *[]uint32)

func (g *Graph) owningBlock(rec block.VertexRecord) int {
	firstBlock, _ := block.UnpackLocator(rec.EdgeBlockIdxOff)
	if !rec.IsMultiBlock() {
		return int(firstBlock)
	}
	return int(firstBlock) + int(rec.NumSpannedBlocks()) - 1
}

func (g *Graph) neighborsUsingGroupBlock(rec block.VertexRecord, eb block.EdgeBlock) ([]uint32, error) {
	firstBlock, offset := block.UnpackLocator(rec.EdgeBlockIdxOff)
	if !rec.IsMultiBlock() {
		out := make([]uint32, rec.Degree)
		copy(out, eb[offset:offset+rec.Degree])
		return out, nil
	}
	spanned := rec.NumSpannedBlocks()
	out := make([]uint32, 0, rec.Degree)
	for i := uint32(0); i < spanned-1; i++ {
		blk, err := g.source.ReadBlock(int(firstBlock) + int(i))
		if err != nil {
			return nil, err
		}
		out = append(out, blk[:]...)
	}
	remaining := rec.Degree - (spanned-1)*block.EdgeSlots
	out = append(out, eb[:remaining]...)
	return out, nil
}

// ProcessQueueInBlocks is the edge-block-parallel schedule: vertices in
// frontier are grouped by the edge block that owns their last chunk, and
// every vertex in a group is processed together on one worker with a
// single cache request sized to the group (spec.md §4.4).
func (g *Graph) ProcessQueueInBlocks(ctx context.Context, frontier []uint32, update BlockUpdateFunc) ([]uint32, error) {
	ctx, span := tracer.Start(ctx, "graph.ProcessQueueInBlocks", trace.WithAttributes(
		attribute.Int("frontier_size", len(frontier)),
	))
	defer span.End()

	groups := make(map[int][]uint32)
	var order []int
	for _, v := range frontier {
		rec := g.vertices[v]
		blockID := g.owningBlock(rec)
		if _, ok := groups[blockID]; !ok {
			order = append(order, blockID)
		}
		groups[blockID] = append(groups[blockID], v)
	}

	var next []uint32
	var mu sync.Mutex

	err := parallel.ForEachIndex(ctx, len(order), g.pool, func(ctx context.Context, i int) error {
		blockID := order[i]
		members := groups[blockID]

		slot := g.requestEdgeBlock(blockID, len(members))
		eb, err := g.getEdgeBlock(slot, blockID)
		if err != nil {
			g.releaseEdgeBlock(slot, blockID)
			return err
		}

		var private []uint32
		for _, v := range members {
			rec := g.vertices[v]
			neighbors, err := g.neighborsUsingGroupBlock(rec, eb)
			if err != nil {
				g.releaseEdgeBlock(slot, blockID)
				return err
			}
			update(v, neighbors, &private)
		}
		g.releaseEdgeBlock(slot, blockID)

		mu.Lock()
		next = append(next, private...)
		mu.Unlock()
		return nil
	})
	return next, err
}

// Close releases the underlying serializer.
func (g *Graph) Close() error {
	if g.ser == nil {
		return nil
	}
	return g.ser.Close()
}
