// Package structures encodes the fixed-size group B-tree, local heap, and
// symbol node that back the root group in this MATLAB-v7.3 dialect. The
// B-tree never splits in this dialect: a single leaf node, entries used
// fixed at 1, holds every member via the one symbol node it points at.
package structures

import (
	"encoding/binary"

	"github.com/scigolib/mat73/internal/core"
)

// BTreeLeafK and BTreeInternalK are the group B-tree's K values, written
// into the superblock; InternalK governs the slot count reserved below
// even though the tree never actually grows past one leaf.
const (
	BTreeLeafK     = 4
	BTreeInternalK = 16
)

// bTreeSlotCount is 1 key + 2*InternalK (key, child) pairs = 1 + 4*InternalK.
const bTreeSlotCount = 1 + 4*BTreeInternalK

// BTreeHeaderSize is the signature/type/level/count/siblings prefix.
const BTreeHeaderSize = 24

// BTreeNodeSize is the total fixed size of the group B-tree leaf node.
const BTreeNodeSize = BTreeHeaderSize + bTreeSlotCount*8

// FirstKeyOffset and FirstChildOffset are the byte offsets, relative to
// the node's start, of the first (key, child) pair — the only slot this
// dialect ever populates. It is re-patched on every dataset-end with the
// running maximum member heap offset and the symbol node's current
// address; a heap expansion moves the symbol node and re-patches the child.
const (
	FirstKeyOffset   = BTreeHeaderSize
	FirstChildOffset = BTreeHeaderSize + 8
)

// EncodeBTreeNode returns the B-tree leaf node with entries_used fixed at
// 1 and every key/child slot zeroed; the caller patches FirstKeyOffset and
// FirstChildOffset once the symbol node address and first member are known.
func EncodeBTreeNode() []byte {
	buf := make([]byte, BTreeNodeSize)
	copy(buf[0:4], "TREE")
	buf[4] = 0 // node type: group
	buf[5] = 0 // node level: leaf
	binary.LittleEndian.PutUint16(buf[6:8], 1)
	binary.LittleEndian.PutUint64(buf[8:16], core.Undefined)  // left sibling
	binary.LittleEndian.PutUint64(buf[16:24], core.Undefined) // right sibling
	return buf
}
