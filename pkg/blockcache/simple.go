package blockcache

import "sync"

// SimpleCache is the reservation-based cache variant used for
// block-grouped iteration: callers declare how many readers will share
// a block up front (the ref argument to RequestBlock). A single
// ReleaseCacheBlock unpins the slot; the declared count then serves as
// the slot's CLOCK counter, which each eviction pass decrements until it
// reaches zero and the slot is replaced.
type SimpleCache[T any] struct {
	mu sync.Mutex

	size     int
	data     []T
	blockID  []int
	status   []int // -1 empty, 0 filling, 1 ready
	pinned   []bool
	refCount []int
	index    map[int]int
	hand     int
	free     int
	source   Source[T]
}

// NewSimpleCache creates a reservation-based cache of the given slot
// capacity, reading misses from source.
func NewSimpleCache[T any](size int, source Source[T]) *SimpleCache[T] {
	c := &SimpleCache[T]{
		size:     size,
		data:     make([]T, size),
		blockID:  make([]int, size),
		status:   make([]int, size),
		pinned:   make([]bool, size),
		refCount: make([]int, size),
		index:    make(map[int]int, size),
		free:     size,
		source:   source,
	}
	for i := range c.blockID {
		c.blockID[i] = -1
		c.status[i] = -1
	}
	return c
}

// Clear resets the cache to its initial, fully-empty state.
func (c *SimpleCache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.blockID {
		c.blockID[i] = -1
		c.status[i] = -1
		c.pinned[i] = false
		c.refCount[i] = 0
		var zero T
		c.data[i] = zero
	}
	c.index = make(map[int]int, c.size)
	c.free = c.size
	c.hand = 0
}

// RequestBlock reserves block_id for ref concurrent readers, returning
// the slot index. If already cached and unpinned, it is claimed and its
// reference count is bumped by ref; otherwise a slot is allocated or
// evicted, seeded with reference count ref.
func (c *SimpleCache[T]) RequestBlock(blockID, ref int) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if idx, ok := c.index[blockID]; ok && !c.pinned[idx] {
		c.pinned[idx] = true
		c.refCount[idx] += ref
		return idx
	}

	if c.free > 0 {
		c.free--
		for {
			idx := c.hand
			if c.status[idx] == -1 {
				c.index[blockID] = idx
				c.blockID[idx] = blockID
				c.pinned[idx] = true
				c.refCount[idx] = ref
				c.status[idx] = 0
				c.hand = (idx + 1) % c.size
				return idx
			}
			c.hand = (c.hand + 1) % c.size
		}
	}

	for {
		idx := c.hand
		if !c.pinned[idx] {
			c.refCount[idx]--
			if c.refCount[idx] == 0 {
				oldBlockID := c.blockID[idx]
				delete(c.index, oldBlockID)
				c.index[blockID] = idx
				c.blockID[idx] = blockID
				c.pinned[idx] = true
				c.refCount[idx] = ref
				c.status[idx] = 0
				c.hand = (idx + 1) % c.size
				return idx
			}
		}
		c.hand = (c.hand + 1) % c.size
	}
}

// FillBlock reads blockID into slot cbIdx from source, if not already
// filled.
func (c *SimpleCache[T]) FillBlock(cbIdx, blockID int) error {
	c.mu.Lock()
	status := c.status[cbIdx]
	c.mu.Unlock()
	if status == 1 {
		return nil
	}

	v, err := c.source.ReadBlock(blockID)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.data[cbIdx] = v
	c.status[cbIdx] = 1
	c.mu.Unlock()
	return nil
}

// GetBlock returns the (already filled) payload cached for blockID.
func (c *SimpleCache[T]) GetBlock(blockID int) T {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.index[blockID]
	return c.data[idx]
}

// ReleaseCacheBlock marks blockID's slot as unpinned, making it
// eligible for eviction again.
func (c *SimpleCache[T]) ReleaseCacheBlock(blockID int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.index[blockID]
	c.pinned[idx] = false
}
