package structures

import "encoding/binary"

// SNODLeafK mirrors BTreeLeafK: a symbol node holds up to 2*LeafK entries.
const SNODLeafK = BTreeLeafK

// SNODEntryCount is the fixed number of blank symbol-table-entry slots
// reserved in the symbol node.
const SNODEntryCount = 2 * SNODLeafK

// SNODEntrySize is the size in bytes of one symbol-table entry.
const SNODEntrySize = 40

// SNODHeaderSize is the signature/version/reserved/count prefix.
const SNODHeaderSize = 8

// SNODSize is the total fixed size of the symbol node.
const SNODSize = SNODHeaderSize + SNODEntryCount*SNODEntrySize

// NumSymbolsOffset is the byte offset, relative to the node's start, of
// the num_symbols field — patched at close with the final member count.
const NumSymbolsOffset = 6

// EncodeSymbolNode returns the symbol node with num_symbols left at 0 and
// every entry slot zeroed; entries are patched in place as datasets end,
// and num_symbols is patched once at close.
func EncodeSymbolNode() []byte {
	buf := make([]byte, SNODSize)
	copy(buf[0:4], "SNOD")
	buf[4] = 1 // version
	buf[5] = 0 // reserved
	binary.LittleEndian.PutUint16(buf[6:8], 0)
	return buf
}

// EncodeSTE returns a 40-byte symbol-table entry for one member: its heap
// offset (link name offset) and its object header's address relative to
// the base address.
// cache_type is 0 (uncached) and the 16-byte scratch pad is zero, matching
// a plain hard link with no cached group info.
func EncodeSTE(linkNameOffset, objectHeaderAddr uint64) []byte {
	buf := make([]byte, SNODEntrySize)
	binary.LittleEndian.PutUint64(buf[0:8], linkNameOffset)
	binary.LittleEndian.PutUint64(buf[8:16], objectHeaderAddr)
	return buf
}
