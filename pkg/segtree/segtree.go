// Package segtree implements the offline bin-packer used during graph
// dump to find an edge block with at least k free entries in one pass
// per vertex (spec.md §4.2).
package segtree

// node is one slot of the segment tree: a max-segment-tree over the
// remaining capacity of each leaf (edge block), plus a leaf-only
// block id payload.
type node struct {
	maxVal  int
	blockID int
}

// SegmentTree is a max-segment-tree indexed by edge-block id. Leaves
// hold (remaining_capacity, block_id); internal nodes hold the max
// remaining capacity over their subtree.
type SegmentTree struct {
	length int
	nodes  []node
}

// New initializes a segment tree with numLeaves leaves, each starting
// at initialCapacity free entries and an unset block id (-1).
func New(numLeaves, initialCapacity int) *SegmentTree {
	t := &SegmentTree{
		length: numLeaves,
		nodes:  make([]node, numLeaves<<2),
	}
	for i := range t.nodes {
		t.nodes[i] = node{maxVal: initialCapacity, blockID: -1}
	}
	return t
}

// leafID descends the tree to find the array index backing logical
// leaf position pos, mirroring update's interval narrowing.
func (t *SegmentTree) leafID(pos int) int {
	id, l, r := 1, 0, t.length
	for r-l > 1 {
		mid := (l + r) >> 1
		if pos < mid {
			r = mid
			id = id << 1
		} else {
			l = mid
			id = (id << 1) + 1
		}
	}
	return id
}

// GetCapacity returns the remaining capacity of the leaf at logical
// position pos (as returned by QueryFirstLarger), or -1 if pos is out
// of range.
func (t *SegmentTree) GetCapacity(pos int) int {
	if pos < 0 || pos >= t.length {
		return -1
	}
	return t.nodes[t.leafID(pos)].maxVal
}

// GetBlockID returns the block id stored at the leaf at logical
// position pos, or -1 if unset or out of range.
func (t *SegmentTree) GetBlockID(pos int) int {
	if pos < 0 || pos >= t.length {
		return -1
	}
	return t.nodes[t.leafID(pos)].blockID
}

// QueryFirstLarger returns the logical position (in [0, length)) of
// the leftmost leaf whose remaining capacity is >= k, or -1 if none
// qualifies. The returned position is what Update/GetCapacity/
// GetBlockID expect, not the internal heap array index.
func (t *SegmentTree) QueryFirstLarger(k int) int {
	if t.nodes[1].maxVal < k {
		return -1
	}

	id := 1
	l, r := 0, t.length
	for r-l > 1 {
		mid := (l + r) >> 1
		if t.nodes[id<<1].maxVal >= k {
			r = mid
			id = id << 1
		} else {
			l = mid
			id = (id << 1) + 1
		}
	}
	return l
}

// maintain recomputes node id's max from its two children.
func (t *SegmentTree) maintain(id int) {
	if id<<1 >= len(t.nodes) {
		return
	}
	left, right := t.nodes[id<<1].maxVal, t.nodes[(id<<1)+1].maxVal
	if left > right {
		t.nodes[id].maxVal = left
	} else {
		t.nodes[id].maxVal = right
	}
}

// Update sets the leaf at position pos (a leaf index in [0, length)) to
// newCapacity free entries holding blockID, and re-maintains ancestor
// maxes up to the root.
func (t *SegmentTree) Update(pos, newCapacity, blockID int) {
	t.update(1, 0, t.length, pos, newCapacity, blockID)
}

func (t *SegmentTree) update(id, l, r, pos, val, blockID int) {
	if r-l == 1 {
		t.nodes[id] = node{maxVal: val, blockID: blockID}
		return
	}
	mid := (l + r) >> 1
	if pos < mid {
		t.update(id<<1, l, mid, pos, val, blockID)
	} else {
		t.update((id<<1)+1, mid, r, pos, val, blockID)
	}
	t.maintain(id)
}
