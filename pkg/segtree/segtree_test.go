package segtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryFirstLarger_AllFull(t *testing.T) {
	tr := New(8, 100)
	assert.Equal(t, 0, tr.QueryFirstLarger(50))
}

func TestQueryFirstLarger_LeftmostTieBreak(t *testing.T) {
	tr := New(8, 0)
	tr.Update(3, 50, 30)
	tr.Update(5, 50, 50)
	assert.Equal(t, 3, tr.QueryFirstLarger(50))
}

func TestQueryFirstLarger_NoneQualify(t *testing.T) {
	tr := New(4, 10)
	assert.Equal(t, -1, tr.QueryFirstLarger(20))
}

func TestUpdate_ReducesCapacityAndPropagates(t *testing.T) {
	tr := New(4, 100)
	tr.Update(0, 30, 0)
	tr.Update(1, 10, 1)
	tr.Update(2, 100, 2)
	tr.Update(3, 5, 3)

	assert.Equal(t, 2, tr.QueryFirstLarger(90))

	tr.Update(2, 0, 2)
	assert.Equal(t, -1, tr.QueryFirstLarger(90))
	assert.Equal(t, 0, tr.QueryFirstLarger(30))
}

func TestGetCapacityAndBlockID(t *testing.T) {
	tr := New(4, 10)
	tr.Update(2, 7, 99)
	assert.Equal(t, 7, tr.GetCapacity(2))
	assert.Equal(t, 99, tr.GetBlockID(2))
}

func TestSequentialBinPacking(t *testing.T) {
	// Simulates repeatedly packing vertices of varying degree into
	// fixed-capacity edge blocks, always filling the leftmost block
	// that still fits.
	const blockCap = 16
	const numLeaves = 4
	tr := New(numLeaves, blockCap)

	degrees := []int{5, 10, 3, 16, 1}
	for _, d := range degrees {
		leaf := tr.QueryFirstLarger(d)
		if leaf == -1 {
			continue
		}
		remaining := tr.GetCapacity(leaf) - d
		tr.Update(leaf, remaining, leaf)
	}
	assert.GreaterOrEqual(t, tr.GetCapacity(0), 0)
}
