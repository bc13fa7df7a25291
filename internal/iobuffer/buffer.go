// Package iobuffer provides a growable in-memory scratch buffer used to
// assemble HDF5 object headers before they are flushed to the output file.
//
// Several fields inside an object header (its size, an attribute message's
// length) are only known after the rest of the message has been written.
// Assembling the header in a Buffer first lets the builder seek backward
// and patch those fields cheaply, without touching the file.
package iobuffer

import "fmt"

// Buffer is a growable byte buffer with a write cursor and a high-water
// mark. Writes at the cursor grow the backing array by doubling; Flush
// callers use Bytes(), which returns exactly the high-water region, so
// that a Seek back to patch a field does not truncate already-written
// tail bytes.
type Buffer struct {
	data   []byte
	cursor int
	count  int // high-water mark: the flushable length
}

// New returns an empty Buffer with no pre-allocated capacity.
func New() *Buffer {
	return &Buffer{}
}

// Write appends p at the cursor, growing storage as needed, and advances
// the cursor by len(p). The high-water count is updated if the cursor
// moves past it.
func (b *Buffer) Write(p []byte) (int, error) {
	end := b.cursor + len(p)
	b.grow(end)
	if b.cursor > b.count {
		clear(b.data[b.count:b.cursor])
	}
	copy(b.data[b.cursor:end], p)
	b.cursor = end
	if b.cursor > b.count {
		b.count = b.cursor
	}
	return len(p), nil
}

// grow ensures the backing array has at least n bytes of capacity,
// doubling the previous capacity until it fits.
func (b *Buffer) grow(n int) {
	if n <= len(b.data) {
		return
	}
	newCap := len(b.data)
	if newCap == 0 {
		newCap = 64
	}
	for newCap < n {
		newCap *= 2
	}
	grown := make([]byte, newCap)
	copy(grown, b.data[:b.count])
	b.data = grown
}

// Seek moves the write cursor to an absolute position within the buffer.
// Seeking past the current high-water mark is allowed; the gap is zeroed
// by the next Write, even when the backing array is reused after Reset.
func (b *Buffer) Seek(pos int) error {
	if pos < 0 {
		return fmt.Errorf("iobuffer: negative seek position %d", pos)
	}
	b.grow(pos)
	b.cursor = pos
	return nil
}

// SeekEnd moves the write cursor to the current high-water mark, i.e. the
// position the next append will occupy.
func (b *Buffer) SeekEnd() {
	b.cursor = b.count
}

// Tell returns the current cursor position.
func (b *Buffer) Tell() int {
	return b.cursor
}

// AlignTo8 appends zero bytes until the high-water count is a multiple of 8.
// HDF5 object-header messages are required to start on an 8-byte boundary.
func (b *Buffer) AlignTo8() {
	b.SeekEnd()
	pad := (8 - b.count%8) % 8
	if pad == 0 {
		return
	}
	_, _ = b.Write(make([]byte, pad))
}

// Len returns the number of flushable bytes currently held (the high-water
// mark), regardless of where the cursor currently sits.
func (b *Buffer) Len() int {
	return b.count
}

// Bytes returns the flushable region of the buffer: everything from the
// start up to the high-water mark, not just up to the cursor.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.count]
}

// Reset clears the cursor and high-water mark, discarding logical content
// while keeping the backing array for reuse. Called after a flush.
func (b *Buffer) Reset() {
	b.cursor = 0
	b.count = 0
}
