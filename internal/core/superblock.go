// Package core provides low-level HDF5 object-header and superblock
// encoding for the MATLAB v7.3 container format: superblock version 0,
// object-header version 1, written starting after a 512-byte textual
// preamble. Reading is out of scope — this package only emits bytes.
package core

import (
	"encoding/binary"
	"time"
)

// Signature is the 8-byte HDF5 format signature.
const Signature = "\x89HDF\r\n\x1a\n"

// Undefined is the HDF5 sentinel for "no address"/"no value".
const Undefined uint64 = 0xFFFFFFFFFFFFFFFF

// PreambleSize is the fixed size of the textual preamble, version word,
// endian tag, and zero padding that precedes the superblock.
const PreambleSize = 512

// BaseAddress is the absolute file offset of the superblock signature.
// Every HDF5 address stored in this dialect's metadata (symbol-table
// entries, the root object header's b-tree/heap pointers) is relative to
// BaseAddress; a conforming reader adds BaseAddress back to resolve it.
const BaseAddress uint64 = PreambleSize

// Superblock-relative offsets, fixed by this dialect's layout.
const (
	RootObjectHeaderRelAddr uint64 = 0x60
	RootBTreeRelAddr        uint64 = 0x88
	RootHeapRelAddr         uint64 = 0x2A8
)

// WritePreamble writes the 124-byte textual preamble, the version word,
// the endian tag, and zero padding, totalling exactly PreambleSize bytes.
// The timestamp comes from the local clock, so the preamble bytes vary
// between runs; everything from the superblock on is deterministic.
func WritePreamble() []byte {
	buf := make([]byte, PreambleSize)

	text := "MATLAB 7.3 MAT-file, Created by: APL_MATWRITE, Created on: " +
		time.Now().Format("Mon Jan 02 15:04:05 2006") +
		" HDF5 schema 1.00 ."
	copy(buf[:124], text)

	// Version word: 0x0200 little-endian -> bytes 0x00, 0x02.
	buf[124] = 0x00
	buf[125] = 0x02

	// Endian tag "IM".
	buf[126] = 0x4D
	buf[127] = 0x49

	// Bytes 128..511 are already zero.
	return buf
}

// SuperblockSize is the fixed size of the version-0 superblock body,
// not including the root symbol-table entry that immediately follows it.
// 0x60 (the reserved relative address of the root object header) equals
// SuperblockSize + 40 (the root STE size) — the two regions back to back.
const SuperblockSize = 56

// WriteSuperblock encodes the 56-byte version-0 superblock. eofPatchOffset
// is the byte offset within the returned buffer of the EOF-address
// placeholder field, so the caller can compute its absolute file position
// and seek back to patch it once the final file size is known.
func WriteSuperblock() (buf []byte, eofPatchOffset int) {
	buf = make([]byte, SuperblockSize)
	copy(buf[0:8], Signature)

	buf[8] = 0  // superblock version
	buf[9] = 0  // free-space storage version
	buf[10] = 0 // root-group symbol-table-entry version
	buf[11] = 0 // reserved
	buf[12] = 0 // shared-header-message-format version
	buf[13] = 8 // offset size
	buf[14] = 8 // length size
	buf[15] = 0 // reserved

	binary.LittleEndian.PutUint16(buf[16:18], 4)  // group leaf node K
	binary.LittleEndian.PutUint16(buf[18:20], 16) // group internal node K

	binary.LittleEndian.PutUint32(buf[20:24], 0) // file consistency flags

	binary.LittleEndian.PutUint64(buf[24:32], BaseAddress)
	binary.LittleEndian.PutUint64(buf[32:40], Undefined) // free-space info

	eofPatchOffset = 40 // relative to buf start
	binary.LittleEndian.PutUint64(buf[40:48], Undefined) // EOF address placeholder

	binary.LittleEndian.PutUint64(buf[48:56], Undefined) // driver info address

	return buf, eofPatchOffset
}

// WriteRootSTE encodes the 40-byte root-group symbol-table entry.
func WriteRootSTE() []byte {
	buf := make([]byte, 40)
	binary.LittleEndian.PutUint64(buf[0:8], 0)                        // link_name_offset
	binary.LittleEndian.PutUint64(buf[8:16], RootObjectHeaderRelAddr) // object_header_addr
	binary.LittleEndian.PutUint32(buf[16:20], 1)                      // cache_type = 1 (cached STAB)
	binary.LittleEndian.PutUint32(buf[20:24], 0)                      // reserved
	binary.LittleEndian.PutUint64(buf[24:32], RootBTreeRelAddr)       // b_tree_addr
	binary.LittleEndian.PutUint64(buf[32:40], RootHeapRelAddr)        // heap_addr
	return buf
}
