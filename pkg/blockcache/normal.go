// Package blockcache implements the concurrent, CLOCK-eviction block
// cache that sits in front of a serializer (spec.md §4.3).
package blockcache

import (
	"strconv"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

const slotEmpty int32 = -1

// pinEvicting is the pin_count sentinel value a slot holds while an
// eviction is claiming it. CAS from pinEvicting back to a non-negative
// value is forbidden; only the evictor (who set it) transitions out.
const pinEvicting int32 = -1

const (
	statusFilling int32 = iota
	statusReady
)

// Source reads one block of T from backing storage.
type Source[T any] interface {
	ReadBlock(blockID int) (T, error)
}

type slot[T any] struct {
	blockID     atomic.Int32
	pinnedCount atomic.Int32
	refCount    atomic.Int32
	status      atomic.Int32
	fillMu      sync.Mutex
	data        T
}

// NormalCache is a CLOCK-eviction block cache with pin/ref counting.
// The hit path takes no mutex: residency lookup, the pin CAS, and the
// re-check for eviction races are all atomic. Only the miss path (a
// fresh allocation or an eviction scan) holds a lock, to serialize
// clock-hand advancement across concurrent misses.
type NormalCache[T any] struct {
	size   int
	slots  []slot[T]
	index  sync.Map // block_id (int) -> slot index (int)
	handMu sync.Mutex
	hand   int
	free   int

	source    Source[T]
	fillGroup singleflight.Group
}

// NewNormalCache creates a cache of the given slot capacity, reading
// misses from source.
func NewNormalCache[T any](size int, source Source[T]) *NormalCache[T] {
	c := &NormalCache[T]{
		size:   size,
		slots:  make([]slot[T], size),
		free:   size,
		source: source,
	}
	for i := range c.slots {
		c.slots[i].blockID.Store(slotEmpty)
	}
	return c
}

// Clear resets the cache to its initial, fully-empty state. Not safe
// to call concurrently with in-flight requests.
func (c *NormalCache[T]) Clear() {
	c.index = sync.Map{}
	c.hand = 0
	c.free = c.size
	c.slots = make([]slot[T], c.size)
	for i := range c.slots {
		c.slots[i].blockID.Store(slotEmpty)
	}
}

// RequestBlock pins block_id into the cache, returning the slot index
// to pass to GetCacheBlock/ReleaseCacheBlock. Every successful call
// increments that slot's pin and reference counts; the caller must
// release exactly once.
func (c *NormalCache[T]) RequestBlock(blockID int) int {
	if idx, ok := c.tryPinHit(blockID); ok {
		return idx
	}

	c.handMu.Lock()
	defer c.handMu.Unlock()

	// Re-check: another goroutine may have filled it, or claimed it
	// for eviction and released the hand lock, while we waited.
	if idx, ok := c.tryPinHit(blockID); ok {
		return idx
	}

	if c.free > 0 {
		c.free--
		for {
			idx := c.hand
			s := &c.slots[idx]
			if s.blockID.Load() == slotEmpty {
				s.blockID.Store(int32(blockID))
				s.refCount.Store(1)
				s.status.Store(statusFilling)
				s.pinnedCount.Store(1)
				c.index.Store(blockID, idx)
				c.advanceHand()
				return idx
			}
			c.advanceHand()
		}
	}

	for {
		idx := c.hand
		s := &c.slots[idx]
		if s.pinnedCount.Load() == 0 && s.refCount.Add(-1) == 0 {
			if !s.pinnedCount.CompareAndSwap(0, pinEvicting) {
				c.advanceHand()
				continue
			}

			oldBlockID := int(s.blockID.Load())
			c.index.Delete(oldBlockID)

			s.blockID.Store(int32(blockID))
			s.refCount.Store(1)
			s.status.Store(statusFilling)
			c.index.Store(blockID, idx)

			c.advanceHand()
			s.pinnedCount.Store(1)
			return idx
		}
		c.advanceHand()
	}
}

// tryPinHit attempts the lock-free hit path: find blockID in the
// residency index, then CAS pin_count up by one. A pin_count of
// pinEvicting means the slot is mid-eviction and is not a hit. After a
// successful CAS, block_id is re-read to guard against the slot being
// evicted and refilled with a different block between the index
// lookup and the pin increment (A-B-A); on that race the spurious pin
// is undone and the caller falls through to the miss path.
func (c *NormalCache[T]) tryPinHit(blockID int) (int, bool) {
	v, ok := c.index.Load(blockID)
	if !ok {
		return 0, false
	}
	idx := v.(int)
	s := &c.slots[idx]

	for {
		pc := s.pinnedCount.Load()
		if pc == pinEvicting {
			return 0, false
		}
		if int(s.blockID.Load()) != blockID {
			return 0, false
		}
		if s.pinnedCount.CompareAndSwap(pc, pc+1) {
			s.refCount.Add(1)
			if int(s.blockID.Load()) != blockID {
				s.pinnedCount.Add(-1)
				s.refCount.Add(-1)
				return 0, false
			}
			return idx, true
		}
	}
}

func (c *NormalCache[T]) advanceHand() {
	c.hand = (c.hand + 1) % c.size
}

// GetCacheBlock returns the cached payload for slotIdx/blockID, filling
// it from the source on first access. slotIdx of -1 means the block
// could not be cached (cache disabled); the caller gets an unpinned,
// directly-read copy.
func (c *NormalCache[T]) GetCacheBlock(slotIdx, blockID int) (T, error) {
	if slotIdx == -1 {
		return c.source.ReadBlock(blockID)
	}

	s := &c.slots[slotIdx]
	if s.status.Load() == statusReady {
		s.fillMu.Lock()
		v := s.data
		s.fillMu.Unlock()
		return v, nil
	}

	key := strconv.Itoa(blockID)
	_, err, _ := c.fillGroup.Do(key, func() (interface{}, error) {
		if s.status.Load() == statusReady {
			return nil, nil
		}
		v, err := c.source.ReadBlock(blockID)
		if err != nil {
			return nil, err
		}
		s.fillMu.Lock()
		s.data = v
		s.fillMu.Unlock()
		s.status.Store(statusReady)
		return nil, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}

	s.fillMu.Lock()
	v := s.data
	s.fillMu.Unlock()
	return v, nil
}

// ReleaseCacheBlock unpins slotIdx. Pass -1 for an uncached direct
// read; it is then a no-op.
func (c *NormalCache[T]) ReleaseCacheBlock(slotIdx int) {
	if slotIdx == -1 {
		return
	}
	c.slots[slotIdx].pinnedCount.Add(-1)
}

// Size returns the cache's slot capacity.
func (c *NormalCache[T]) Size() int { return c.size }
