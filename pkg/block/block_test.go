package block

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetaRoundTrip(t *testing.T) {
	m := Meta{NumNodes: 42, NumBlocks: 10, NumVertexBlocks: 2, NumEdgeBlocks: 7}
	buf := m.Encode()
	require.Len(t, buf, Size)
	got := DecodeMeta(buf)
	assert.Equal(t, m, got)
}

func TestPackUnpackLocator(t *testing.T) {
	tests := []struct {
		blockID, offset uint32
	}{
		{0, 0},
		{1, 5},
		{1234, EdgeSlots - 1},
	}
	for _, tt := range tests {
		packed := PackLocator(tt.blockID, tt.offset)
		gotBlock, gotOffset := UnpackLocator(packed)
		assert.Equal(t, tt.blockID, gotBlock)
		assert.Equal(t, tt.offset, gotOffset)
	}
}

func TestVertexRecordMultiBlock(t *testing.T) {
	single := VertexRecord{Degree: EdgeSlots}
	assert.False(t, single.IsMultiBlock())

	multi := VertexRecord{Degree: EdgeSlots + 1}
	assert.True(t, multi.IsMultiBlock())
	assert.Equal(t, uint32(2), multi.NumSpannedBlocks())

	hub := VertexRecord{Degree: 5 * EdgeSlots}
	assert.Equal(t, uint32(5), hub.NumSpannedBlocks())
}

func TestVertexBlockRoundTrip(t *testing.T) {
	records := []VertexRecord{
		{Degree: 3, EdgeBlockIdxOff: PackLocator(0, 0)},
		{Degree: 0, EdgeBlockIdxOff: PackLocator(0, 3)},
	}
	buf := EncodeVertexBlock(records)
	require.Len(t, buf, Size)
	decoded := DecodeVertexBlock(buf)
	assert.Equal(t, records[0], decoded[0])
	assert.Equal(t, records[1], decoded[1])
	// Remaining records are zero-padded.
	assert.Equal(t, VertexRecord{}, decoded[2])
}

func TestEdgeBlockRoundTrip(t *testing.T) {
	var eb EdgeBlock
	eb[0] = 7
	eb[1] = 9
	eb[EdgeSlots-1] = 123456
	buf := eb.Encode()
	require.Len(t, buf, Size)
	got := DecodeEdgeBlock(buf)
	assert.Equal(t, eb, got)
}
