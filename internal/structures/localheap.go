package structures

import "encoding/binary"

// LocalHeapDataAreaSize is the fixed initial size of the heap's data
// segment, reserved up front: the empty-string entry at offset 0 plus
// room for member names before a shift is needed.
const LocalHeapDataAreaSize = 0x58

// LocalHeapHeaderSize is the signature/version/sizes/offset prefix.
const LocalHeapHeaderSize = 32

// DataSegmentSizeOffset is the byte offset, relative to the heap's start,
// of the data_segment_size field — patched once at close with the final
// data-area size.
const DataSegmentSizeOffset = 8

// EncodeLocalHeapHeader returns the 32-byte local heap header. dataStart
// is the base-relative address of the data segment that immediately
// follows the header (heap address + LocalHeapHeaderSize); like every
// stored address in this dialect, the reader adds the base address back
// when following it.
func EncodeLocalHeapHeader(dataStart uint64) []byte {
	buf := make([]byte, LocalHeapHeaderSize)
	copy(buf[0:4], "HEAP")
	buf[4] = 0 // version
	// buf[5:8] reserved
	binary.LittleEndian.PutUint64(buf[8:16], 0)  // data_segment_size: patched at close
	binary.LittleEndian.PutUint64(buf[16:24], 0) // free_list_head: 0 (no free list tracking)
	binary.LittleEndian.PutUint64(buf[24:32], dataStart)
	return buf
}

// EncodeLocalHeapDataArea returns the zero-filled initial data area. The
// first 8 bytes are reserved for the empty-string entry at heap offset 0;
// member names are appended starting at offset 8.
func EncodeLocalHeapDataArea() []byte {
	return make([]byte, LocalHeapDataAreaSize)
}
