package fwriter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAllocator(t *testing.T) {
	tests := []struct {
		name          string
		initialOffset uint64
	}{
		{"file start", 0},
		{"after preamble", 512},
		{"first dataset position", 1640},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alloc := NewAllocator(tt.initialOffset)
			assert.Equal(t, tt.initialOffset, alloc.EndOfFile())
			assert.Empty(t, alloc.Blocks())
		})
	}
}

func TestAllocateSequential(t *testing.T) {
	alloc := NewAllocator(0)

	// The container's fixed prefix: preamble, superblock, root STE.
	addr, err := alloc.Allocate(512)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), addr)

	addr, err = alloc.Allocate(56)
	require.NoError(t, err)
	assert.Equal(t, uint64(512), addr)

	addr, err = alloc.Allocate(40)
	require.NoError(t, err)
	assert.Equal(t, uint64(568), addr)
	assert.Equal(t, uint64(608), alloc.EndOfFile())
}

func TestAllocateZeroSizeFails(t *testing.T) {
	alloc := NewAllocator(0)
	_, err := alloc.Allocate(0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "zero bytes")
}

func TestBlocksReturnsSortedCopy(t *testing.T) {
	alloc := NewAllocator(512)
	_, _ = alloc.Allocate(56)
	_, _ = alloc.Allocate(40)

	blocks := alloc.Blocks()
	require.Len(t, blocks, 2)
	assert.Equal(t, Block{Offset: 512, Size: 56}, blocks[0])
	assert.Equal(t, Block{Offset: 568, Size: 40}, blocks[1])

	// Mutating the copy must not reach the allocator's own records.
	blocks[0].Size = 999
	assert.Equal(t, uint64(56), alloc.Blocks()[0].Size)
}

func TestValidateNoOverlaps(t *testing.T) {
	alloc := NewAllocator(0)
	_, _ = alloc.Allocate(512)
	_, _ = alloc.Allocate(96)
	_, _ = alloc.Allocate(544)

	require.NoError(t, alloc.ValidateNoOverlaps())
}

func TestValidateNoOverlapsEmpty(t *testing.T) {
	require.NoError(t, NewAllocator(0).ValidateNoOverlaps())
}
