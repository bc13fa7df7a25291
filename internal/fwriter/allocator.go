// Package fwriter provides the file-offset writing layer for the MATLAB
// v7.3 container builder: an os.File paired with an end-of-file allocator
// and a scratch buffer, so callers can compute the absolute address a
// structure will land at before its bytes reach the disk.
package fwriter

import (
	"fmt"
	"sort"
)

// Block records one contiguous region handed out by the Allocator. Blocks
// are append-only; the container format never frees or reuses space.
type Block struct {
	Offset uint64
	Size   uint64
}

// Allocator hands out file space strictly at the end of the file. Every
// structure in the container (superblock, root group, dataset object
// headers) is laid down sequentially, so end-of-file allocation yields the
// exact fixed offsets the format requires with no fragmentation.
//
// Not thread-safe; the builder drives it from a single goroutine.
type Allocator struct {
	blocks     []Block
	nextOffset uint64
}

// NewAllocator returns an allocator whose first allocation lands at
// initialOffset. The builder passes 0 and writes the textual preamble as
// its first allocation; tests that skip the preamble pass the offset of
// the structure they start from instead.
func NewAllocator(initialOffset uint64) *Allocator {
	return &Allocator{
		blocks:     make([]Block, 0, 16),
		nextOffset: initialOffset,
	}
}

// Allocate reserves size bytes at the current end of file and returns the
// address of the reserved region. The region is not zeroed; the caller
// writes it.
func (a *Allocator) Allocate(size uint64) (uint64, error) {
	if size == 0 {
		return 0, fmt.Errorf("cannot allocate zero bytes")
	}

	addr := a.nextOffset
	a.blocks = append(a.blocks, Block{Offset: addr, Size: size})
	a.nextOffset = addr + size

	return addr, nil
}

// EndOfFile returns the address the next allocation would land at, which
// is also the current total file size. The superblock's EOF field is
// patched with this value at close.
func (a *Allocator) EndOfFile() uint64 {
	return a.nextOffset
}

// Blocks returns a defensive copy of every allocation so far, sorted by
// offset. Used by tests and debugging tools to inspect the file layout.
func (a *Allocator) Blocks() []Block {
	blocks := make([]Block, len(a.blocks))
	copy(blocks, a.blocks)

	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].Offset < blocks[j].Offset
	})

	return blocks
}

// ValidateNoOverlaps reports an error if any two allocated regions
// overlap. With strict end-of-file allocation this can only fire on an
// allocator bug; tests call it after sequential allocations to confirm
// no region was double-booked.
func (a *Allocator) ValidateNoOverlaps() error {
	blocks := a.Blocks()

	for i := 0; i < len(blocks)-1; i++ {
		end := blocks[i].Offset + blocks[i].Size
		if end > blocks[i+1].Offset {
			return fmt.Errorf("overlap detected: block at %d (size %d) overlaps block at %d",
				blocks[i].Offset, blocks[i].Size, blocks[i+1].Offset)
		}
	}

	return nil
}
