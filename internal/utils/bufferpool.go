// Package utils provides the error, overflow, and scratch-buffer helpers
// shared across the container builder's packages.
package utils

import "sync"

// bufferPool recycles the scratch slices used when the local heap
// overflows and the file tail has to be read into memory before being
// rewritten at its shifted position.
var bufferPool = sync.Pool{
	New: func() interface{} {
		return make([]byte, 0, 4096)
	},
}

// GetBuffer returns a slice of exactly size bytes, reusing a pooled
// backing array when one is large enough. Contents are unspecified; the
// caller overwrites the whole slice.
func GetBuffer(size int) []byte {
	buf := bufferPool.Get().([]byte)
	if cap(buf) < size {
		return make([]byte, size, size*2)
	}
	return buf[:size]
}

// ReleaseBuffer returns a buffer obtained from GetBuffer to the pool.
func ReleaseBuffer(buf []byte) {
	//nolint:staticcheck // SA6002: slice descriptor copy is acceptable for sync.Pool
	bufferPool.Put(buf[:0])
}
