package graphErr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGraphError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *GraphError
		expected string
	}{
		{
			name:     "without underlying error",
			err:      New(CodeOutOfRange, "vertex 9 >= 5 nodes"),
			expected: "[OUT_OF_RANGE] vertex 9 >= 5 nodes",
		},
		{
			name:     "with underlying error",
			err:      Wrap(CodeIO, "short read", errors.New("pread: 10 of 4096 bytes")),
			expected: "[IO_ERROR] short read: pread: 10 of 4096 bytes",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestIsHelpers(t *testing.T) {
	assert.True(t, IsIOError(Wrap(CodeIO, "x", nil)))
	assert.False(t, IsIOError(Wrap(CodeCorruption, "x", nil)))
	assert.True(t, IsCorruption(New(CodeCorruption, "bad vertex record")))
	assert.True(t, IsOutOfRange(New(CodeOutOfRange, "v >= numNodes")))
}

func TestCode(t *testing.T) {
	assert.Equal(t, CodeConfiguration, Code(New(CodeConfiguration, "cache too small")))
	assert.Equal(t, "UNKNOWN_ERROR", Code(errors.New("plain error")))
}
