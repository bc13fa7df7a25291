// Package rootgroup drives the root group's B-tree, local heap, and symbol
// node through the life of a container: it is the one place that knows how
// a dataset's name lands in the heap, how its symbol-table entry is placed,
// and how the heap's fixed data area is relocated when it overflows.
package rootgroup

import (
	"encoding/binary"
	"fmt"

	"github.com/scigolib/mat73/internal/core"
	"github.com/scigolib/mat73/internal/fwriter"
	"github.com/scigolib/mat73/internal/structures"
	"github.com/scigolib/mat73/internal/utils"
)

// Member records one dataset's slot in the root group: its name's heap
// offset, the absolute file address of its own symbol-table entry, and the
// element geometry needed to size its data-layout message.
type Member struct {
	Name         string
	HeapOffset   uint64
	STEPos       uint64
	ElementCount uint64
	ElementSize  uint64
}

// State owns the root group's fixed structures once they've been written:
// the B-tree node, the local heap (header, data area, and write cursor),
// and the symbol node, plus the ordered list of members recorded so far.
type State struct {
	BTreeAddr     uint64
	HeapAddr      uint64
	HeapDataStart uint64
	HeapEnd       uint64
	HeapCursor    uint64
	SNODAddr      uint64

	Members []Member
}

// rel converts an absolute file address into this dialect's stored form:
// an offset relative to core.BaseAddress.
func rel(addr uint64) uint64 {
	return addr - core.BaseAddress
}

// Init writes the root object header, the group B-tree node, the local
// heap (header and reserved data area), and the symbol node, in that
// order, directly at the file's current end of file. fw.Buffer must be
// empty. The root object header's single symbol-table message points at
// the dialect's fixed reserved addresses (core.RootBTreeRelAddr and
// core.RootHeapRelAddr), so the caller must invoke Init immediately after
// writing the preamble, superblock, and root symbol-table entry, with no
// other allocations in between.
func Init(fw *fwriter.FileWriter) (*State, error) {
	bodySize := 16
	prefix := core.EncodeObjectHeaderV1Prefix(1, 1, uint32(core.MessageHeaderSize+bodySize))
	msgHeader := core.EncodeMessageHeader(core.MsgSymbolTable, uint16(bodySize), 0)
	body := make([]byte, bodySize)
	binary.LittleEndian.PutUint64(body[0:8], core.RootBTreeRelAddr)
	binary.LittleEndian.PutUint64(body[8:16], core.RootHeapRelAddr)

	objHeader := append(append(append([]byte{}, prefix...), msgHeader...), body...)
	if _, err := fw.DirectWrite(objHeader); err != nil {
		return nil, utils.WrapError("root object header", err)
	}

	btreeAddr, err := fw.DirectWrite(structures.EncodeBTreeNode())
	if err != nil {
		return nil, utils.WrapError("root b-tree node", err)
	}

	heapAddr := fw.EndOfFile()
	heapDataStart := heapAddr + structures.LocalHeapHeaderSize
	if _, err := fw.DirectWrite(structures.EncodeLocalHeapHeader(rel(heapDataStart))); err != nil {
		return nil, utils.WrapError("local heap header", err)
	}

	if _, err := fw.DirectWrite(structures.EncodeLocalHeapDataArea()); err != nil {
		return nil, utils.WrapError("local heap data area", err)
	}
	heapEnd := heapDataStart + structures.LocalHeapDataAreaSize

	snodAddr, err := fw.DirectWrite(structures.EncodeSymbolNode())
	if err != nil {
		return nil, utils.WrapError("symbol node", err)
	}

	return &State{
		BTreeAddr:     btreeAddr,
		HeapAddr:      heapAddr,
		HeapDataStart: heapDataStart,
		HeapEnd:       heapEnd,
		HeapCursor:    heapDataStart + 8, // first 8 bytes of the heap data area are reserved, always NUL
		SNODAddr:      snodAddr,
	}, nil
}

func encodeUint64(v uint64) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return buf
}

// AddName writes name (NUL-terminated) into the local heap's data area,
// growing the heap via a file shift if there isn't enough room, and
// returns the heap offset (relative to the data area's first byte) that a
// symbol-table entry should use as its link_name_offset.
func (s *State) AddName(fw *fwriter.FileWriter, name string) (uint64, error) {
	if len(name) > 255 {
		return 0, fmt.Errorf("%w: %q is %d bytes", utils.ErrNameTooLong, name, len(name))
	}

	// Each expansion doubles the data area; a near-limit name on a fresh
	// heap can need more than one.
	needed := uint64(len(name) + 1)
	for needed > s.HeapEnd-s.HeapCursor {
		if err := s.expandHeap(fw); err != nil {
			return 0, err
		}
	}

	offset := s.HeapCursor - s.HeapDataStart
	payload := append([]byte(name), 0)
	if err := fw.WriteAtAddress(payload, s.HeapCursor); err != nil {
		return 0, utils.WrapError("heap name write", err)
	}
	s.HeapCursor = align8(s.HeapCursor + needed)
	return offset, nil
}

// expandHeap doubles the heap's data area by shifting every byte from
// HeapEnd to the current end of file forward by the heap's current data
// size, zeroing the vacated region, and patching every already-finalized
// member's symbol-table entry (its own position and the object-header
// address it stores) plus the B-tree's cached pointer to the symbol node.
func (s *State) expandHeap(fw *fwriter.FileWriter) error {
	amount := s.HeapEnd - s.HeapDataStart
	eof := fw.EndOfFile()
	tailLen := eof - s.HeapEnd

	if tailLen > 0 {
		tail := utils.GetBuffer(int(tailLen))
		defer utils.ReleaseBuffer(tail)
		if _, err := fw.ReadAt(tail, int64(s.HeapEnd)); err != nil {
			return utils.WrapError("heap shift: read tail", err)
		}
		if err := fw.WriteAtAddress(tail, s.HeapEnd+amount); err != nil {
			return utils.WrapError("heap shift: write shifted tail", err)
		}
	}
	if err := fw.WriteAtAddress(make([]byte, amount), s.HeapEnd); err != nil {
		return utils.WrapError("heap shift: zero vacated region", err)
	}
	if _, err := fw.Allocate(amount); err != nil {
		return utils.WrapError("heap shift: extend end of file", err)
	}

	for i := range s.Members {
		s.Members[i].STEPos += amount
		var addrBytes [8]byte
		if _, err := fw.ReadAt(addrBytes[:], int64(s.Members[i].STEPos+8)); err != nil {
			return utils.WrapError("heap shift: read member object-header address", err)
		}
		binary.LittleEndian.PutUint64(addrBytes[:], binary.LittleEndian.Uint64(addrBytes[:])+amount)
		if err := fw.WriteAtAddress(addrBytes[:], s.Members[i].STEPos+8); err != nil {
			return utils.WrapError("heap shift: patch member object-header address", err)
		}
	}

	s.SNODAddr += amount
	s.HeapEnd += amount

	childBytes := encodeUint64(rel(s.SNODAddr))
	if err := fw.WriteAtAddress(childBytes, s.BTreeAddr+structures.FirstChildOffset); err != nil {
		return utils.WrapError("heap shift: patch b-tree child pointer", err)
	}
	return nil
}

func align8(n uint64) uint64 {
	return (n + 7) &^ 7
}

// NewMember records a fresh dataset entry: its symbol-table-entry position
// is fixed the moment the member is recorded, derived from the current
// heap_end and the member's index among siblings recorded so far.
func (s *State) NewMember(name string, heapOffset uint64) *Member {
	idx := len(s.Members)
	s.Members = append(s.Members, Member{
		Name:       name,
		HeapOffset: heapOffset,
		STEPos:     s.HeapEnd + uint64(structures.SNODHeaderSize) + uint64(idx)*uint64(structures.SNODEntrySize),
	})
	return &s.Members[len(s.Members)-1]
}

// FinalizeMember writes m's symbol-table entry at its reserved position
// and re-patches the B-tree's first key (the maximum name heap-offset
// among all recorded members) and first child (the symbol node's
// address), both stored relative to core.BaseAddress. objStart is the
// absolute file address of the dataset's object header.
func (s *State) FinalizeMember(fw *fwriter.FileWriter, m *Member, objStart uint64) error {
	ste := structures.EncodeSTE(m.HeapOffset, rel(objStart))
	if err := fw.WriteAtAddress(ste, m.STEPos); err != nil {
		return utils.WrapError("write member symbol-table entry", err)
	}

	var maxOffset uint64
	for _, mem := range s.Members {
		if mem.HeapOffset > maxOffset {
			maxOffset = mem.HeapOffset
		}
	}
	keyAndChild := make([]byte, 16)
	binary.LittleEndian.PutUint64(keyAndChild[0:8], maxOffset)
	binary.LittleEndian.PutUint64(keyAndChild[8:16], rel(s.SNODAddr))
	if err := fw.WriteAtAddress(keyAndChild, s.BTreeAddr+structures.FirstKeyOffset); err != nil {
		return utils.WrapError("patch b-tree first key/child", err)
	}
	return nil
}

// Finalize patches the local heap's data_segment_size and the symbol
// node's num_symbols with their final values. Called once, when the
// container is closed.
func (s *State) Finalize(fw *fwriter.FileWriter) error {
	segSize := encodeUint64(s.HeapEnd - s.HeapDataStart)
	if err := fw.WriteAtAddress(segSize, s.HeapAddr+structures.DataSegmentSizeOffset); err != nil {
		return utils.WrapError("patch heap data_segment_size", err)
	}

	numSymbols := make([]byte, 2)
	binary.LittleEndian.PutUint16(numSymbols, uint16(len(s.Members)))
	if err := fw.WriteAtAddress(numSymbols, s.SNODAddr+structures.NumSymbolsOffset); err != nil {
		return utils.WrapError("patch symbol node num_symbols", err)
	}
	return nil
}
