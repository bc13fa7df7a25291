package fwriter

import (
	"fmt"
	"io"
	"os"

	"github.com/scigolib/mat73/internal/iobuffer"
)

// FileWriter combines the output file, the end-of-file allocator, and a
// scratch Buffer for assembling object headers that need internal
// back-patching before they reach the file.
//
// Invariant: direct file writes (DirectWrite, WriteAtAddress) are only
// valid while Buffer is empty, so the file's current end of file stays
// unambiguous. FlushBuffer is the only path that moves Buffer content
// into the file.
//
// Not thread-safe; the builder holds exclusive access for its lifetime.
type FileWriter struct {
	file      *os.File
	allocator *Allocator
	Buffer    *iobuffer.Buffer
}

// CreateMode specifies the file creation behavior.
type CreateMode int

const (
	// ModeTruncate creates a new file, truncating if it exists.
	ModeTruncate CreateMode = iota

	// ModeExclusive creates a new file, fails if it exists.
	ModeExclusive
)

// NewFileWriter opens filename for reading and writing and starts the
// allocator at initialOffset. The builder passes 0 and writes the textual
// preamble as its first allocation; tests exercising a single structure
// pass that structure's fixed offset instead.
func NewFileWriter(filename string, mode CreateMode, initialOffset uint64) (*FileWriter, error) {
	var osFile *os.File
	var err error

	switch mode {
	case ModeTruncate:
		osFile, err = os.Create(filename)

	case ModeExclusive:
		osFile, err = os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0666)

	default:
		return nil, fmt.Errorf("invalid create mode: %d", mode)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return &FileWriter{
		file:      osFile,
		allocator: NewAllocator(initialOffset),
		Buffer:    iobuffer.New(),
	}, nil
}

// FlushBuffer appends the current Buffer contents to the end of the file,
// resets the Buffer, and returns the absolute file offset where the flushed
// bytes begin. Returns the current end-of-file with no write if the Buffer
// is empty.
func (w *FileWriter) FlushBuffer() (uint64, error) {
	if w.file == nil {
		return 0, fmt.Errorf("writer is closed")
	}

	data := w.Buffer.Bytes()
	if len(data) == 0 {
		return w.allocator.EndOfFile(), nil
	}

	addr, err := w.allocator.Allocate(uint64(len(data)))
	if err != nil {
		return 0, err
	}
	if err := w.WriteAtAddress(data, addr); err != nil {
		return 0, err
	}
	w.Buffer.Reset()
	return addr, nil
}

// DirectWrite appends data to the file at the current end of file,
// bypassing Buffer. Used for structures (the fixed prefix, heap name
// bytes) whose contents are final when written. Returns the address the
// data was written at.
//
// Refuses to run while Buffer holds unflushed bytes; a direct write in
// that state would land in the middle of where the buffered object header
// is about to go.
func (w *FileWriter) DirectWrite(data []byte) (uint64, error) {
	if w.Buffer.Len() != 0 {
		return 0, fmt.Errorf("direct write attempted while buffer is non-empty")
	}
	addr, err := w.Allocate(uint64(len(data)))
	if err != nil {
		return 0, err
	}
	if err := w.WriteAtAddress(data, addr); err != nil {
		return 0, err
	}
	return addr, nil
}

// Allocate reserves size bytes at the end of the file and returns their
// address. The space is not zeroed; the heap shift uses this to extend the
// file after relocating the tail.
func (w *FileWriter) Allocate(size uint64) (uint64, error) {
	if w.file == nil {
		return 0, fmt.Errorf("writer is closed")
	}

	return w.allocator.Allocate(size)
}

// WriteAt writes data at a specific address in the file. Implements
// io.WriterAt. Back-patches (symbol-table entries, the superblock EOF
// field) land here at addresses recorded when their placeholders were
// emitted.
func (w *FileWriter) WriteAt(data []byte, offset int64) (int, error) {
	if w.file == nil {
		return 0, fmt.Errorf("writer is closed")
	}

	if len(data) == 0 {
		return 0, nil
	}

	n, err := w.file.WriteAt(data, offset)
	if err != nil {
		return n, fmt.Errorf("write at address %d failed: %w", offset, err)
	}

	if n != len(data) {
		return n, fmt.Errorf("incomplete write at address %d: wrote %d of %d bytes", offset, n, len(data))
	}

	return n, nil
}

// WriteAtAddress writes data at a specific address (convenience method with uint64 address).
func (w *FileWriter) WriteAtAddress(data []byte, addr uint64) error {
	_, err := w.WriteAt(data, int64(addr))
	return err
}

// ReadAt reads data at a specific address. The heap shift uses it to load
// the file tail before relocating it. Implements io.ReaderAt.
func (w *FileWriter) ReadAt(buf []byte, addr int64) (int, error) {
	if w.file == nil {
		return 0, fmt.Errorf("writer is closed")
	}

	return w.file.ReadAt(buf, addr)
}

// EndOfFile returns the current end-of-file address, where the next
// allocation would occur.
func (w *FileWriter) EndOfFile() uint64 {
	return w.allocator.EndOfFile()
}

// Flush ensures all writes are committed to disk.
func (w *FileWriter) Flush() error {
	if w.file == nil {
		return fmt.Errorf("writer is closed")
	}

	return w.file.Sync()
}

// Close closes the underlying file. Safe to call more than once; after
// Close the writer cannot be used.
func (w *FileWriter) Close() error {
	if w.file == nil {
		return nil
	}

	err := w.file.Close()
	w.file = nil
	return err
}

// Allocator returns the space allocator, for tests inspecting the file
// layout.
func (w *FileWriter) Allocator() *Allocator {
	return w.allocator
}

// Ensure FileWriter implements io.ReaderAt and io.WriterAt
var (
	_ io.ReaderAt = (*FileWriter)(nil)
	_ io.WriterAt = (*FileWriter)(nil)
)
