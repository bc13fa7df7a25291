// Package mat73 writes MATLAB v7.3 container files: byte-exact HDF5 images
// (superblock version 0, object-header version 1) holding named IEEE-754
// double/float arrays in the root group. Reading, compression, chunked
// storage, and groups other than root are out of scope; see the internal
// core, structures, and rootgroup packages for the on-disk layout itself.
package mat73

import (
	"encoding/binary"
	"fmt"

	"github.com/scigolib/mat73/internal/core"
	"github.com/scigolib/mat73/internal/fwriter"
	"github.com/scigolib/mat73/internal/rootgroup"
	"github.com/scigolib/mat73/internal/utils"
)

// NumericType re-exports the two numeric kinds this container supports.
type NumericType = core.NumericType

// Double and Single are the two MATLAB classes this builder can emit.
const (
	Double = core.TypeDouble
	Single = core.TypeFloat
)

// Writer builds a single MATLAB v7.3 file, one named variable at a time:
// Begin, Dims, Data, End for each variable, then Close once at the end.
type Writer struct {
	fw   *fwriter.FileWriter
	root *rootgroup.State

	eofPatchAddr uint64
	closed       bool

	active             *rootgroup.Member
	headerSizeFieldPos int
	headerBodyStart    int
}

// Create opens path for writing and materializes every fixed root-group
// structure (object header, B-tree, local heap, symbol node) with blank
// member slots, ready to accept datasets via Begin/Dims/Data/End.
func Create(path string) (*Writer, error) {
	fw, err := fwriter.NewFileWriter(path, fwriter.ModeTruncate, 0)
	if err != nil {
		return nil, utils.WrapError("create", err)
	}

	if _, err := fw.DirectWrite(core.WritePreamble()); err != nil {
		fw.Close()
		return nil, utils.WrapError("preamble", err)
	}

	sb, eofOff := core.WriteSuperblock()
	sbAddr, err := fw.DirectWrite(sb)
	if err != nil {
		fw.Close()
		return nil, utils.WrapError("superblock", err)
	}

	if _, err := fw.DirectWrite(core.WriteRootSTE()); err != nil {
		fw.Close()
		return nil, utils.WrapError("root symbol-table entry", err)
	}

	root, err := rootgroup.Init(fw)
	if err != nil {
		fw.Close()
		return nil, err
	}

	return &Writer{
		fw:           fw,
		root:         root,
		eofPatchAddr: sbAddr + uint64(eofOff),
	}, nil
}

// Begin starts a new named dataset. Only one dataset may be open at a
// time; call End before starting the next. It reserves the dataset's heap
// name and symbol-table-entry slot, then emits the fill-value, datatype,
// and MATLAB_class attribute messages into the writer's scratch buffer.
func (w *Writer) Begin(name string, t NumericType) error {
	if w.active != nil {
		return fmt.Errorf("mat73: Begin called with %q still open", w.active.Name)
	}
	if t != core.TypeDouble && t != core.TypeFloat {
		return fmt.Errorf("%w: %v", utils.ErrInvalidType, t)
	}

	heapOffset, err := w.root.AddName(w.fw, name)
	if err != nil {
		return err
	}
	w.active = w.root.NewMember(name, heapOffset)
	w.active.ElementSize = t.ElementSize()

	w.fw.Buffer.Reset()
	w.headerSizeFieldPos = 8 // byte offset of header_size within the 16-byte prefix
	if _, err := w.fw.Buffer.Write(core.EncodeObjectHeaderV1Prefix(5, 1, 0)); err != nil {
		return utils.WrapError("object header prefix", err)
	}
	w.headerBodyStart = w.fw.Buffer.Tell()

	if err := w.emitMessage(core.MsgFillValue, 1, core.EncodeFillValueMessage()); err != nil {
		return err
	}
	if err := w.emitMessage(core.MsgDatatype, 1, core.EncodeFloatDatatypeMessage(t)); err != nil {
		return err
	}
	if err := w.emitMessage(core.MsgAttribute, 0, core.EncodeAttributeMessage(t.MatlabClass())); err != nil {
		return err
	}
	return nil
}

// Dims records the dataset's shape: its dataspace message and the element
// count (the product of dims) that Data will need to size the data-layout
// message. A dimensionality over 255 is rejected.
func (w *Writer) Dims(dims ...uint64) error {
	if w.active == nil {
		return fmt.Errorf("mat73: Dims called with no open dataset")
	}
	if len(dims) > 255 {
		return fmt.Errorf("%w: %d", utils.ErrDimensionCountTooLarge, len(dims))
	}

	if err := w.emitMessage(core.MsgDataspace, 1, core.EncodeDataspaceMessage(dims)); err != nil {
		return err
	}

	count, err := utils.ElementCount(dims)
	if err != nil {
		return utils.WrapError("dims element count", err)
	}
	payloadBytes, err := utils.SafeMultiply(count, w.active.ElementSize)
	if err != nil {
		return utils.WrapError("dims payload size", err)
	}
	if payloadBytes > utils.MaxPayloadSize {
		return fmt.Errorf("mat73: dims imply a %d-byte payload, over the %d-byte limit",
			payloadBytes, uint64(utils.MaxPayloadSize))
	}
	w.active.ElementCount = count
	return nil
}

// Data supplies the dataset's raw, already column-major payload and emits
// the compact data-layout message that embeds it directly in the object
// header.
func (w *Writer) Data(raw []byte) error {
	if w.active == nil {
		return fmt.Errorf("mat73: Data called with no open dataset")
	}

	want, err := utils.SafeMultiply(w.active.ElementCount, w.active.ElementSize)
	if err != nil {
		return utils.WrapError("data payload size", err)
	}
	if err := utils.ValidateBufferSize(want, core.MaxCompactPayload, "dataset payload"); err != nil {
		return err
	}
	if uint64(len(raw)) != want {
		return fmt.Errorf("mat73: payload is %d bytes, expected %d for %d elements of size %d",
			len(raw), want, w.active.ElementCount, w.active.ElementSize)
	}

	return w.emitMessage(core.MsgDataLayout, 0, core.EncodeDataLayoutMessage(raw))
}

// End back-patches the open dataset's header_size field, flushes its
// object header to the file, and writes (and re-patches) the symbol-table
// bookkeeping that makes the dataset reachable from the root group.
func (w *Writer) End() error {
	if w.active == nil {
		return fmt.Errorf("mat73: End called with no open dataset")
	}

	headerSize := w.fw.Buffer.Len() - w.headerBodyStart
	if err := w.fw.Buffer.Seek(w.headerSizeFieldPos); err != nil {
		return utils.WrapError("seek to header_size field", err)
	}
	sizeBytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(sizeBytes, uint32(headerSize))
	if _, err := w.fw.Buffer.Write(sizeBytes); err != nil {
		return utils.WrapError("patch header_size", err)
	}

	objStart, err := w.fw.FlushBuffer()
	if err != nil {
		return utils.WrapError("flush object header", err)
	}

	if err := w.root.FinalizeMember(w.fw, w.active, objStart); err != nil {
		return err
	}

	w.active = nil
	return nil
}

// Close flushes any buffered bytes, patches the heap's data-segment size,
// the symbol node's member count, and the superblock's EOF field, then
// closes the underlying file. Best-effort: it attempts every patch in
// order regardless of earlier failures and always closes the descriptor.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	var errs []error

	if _, err := w.fw.FlushBuffer(); err != nil {
		errs = append(errs, utils.WrapError("final flush", err))
	}
	if err := w.root.Finalize(w.fw); err != nil {
		errs = append(errs, err)
	}

	eof := w.fw.EndOfFile()
	eofBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(eofBytes, eof)
	if err := w.fw.WriteAtAddress(eofBytes, w.eofPatchAddr); err != nil {
		errs = append(errs, utils.WrapError("patch superblock eof", err))
	}

	if err := w.fw.Close(); err != nil {
		errs = append(errs, utils.WrapError("close file", err))
	}

	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// MemberCount returns the number of datasets recorded so far.
func (w *Writer) MemberCount() int {
	return len(w.root.Members)
}

// Names returns the names of every dataset recorded so far, in the order
// Begin was called for each.
func (w *Writer) Names() []string {
	names := make([]string, len(w.root.Members))
	for i, m := range w.root.Members {
		names[i] = m.Name
	}
	return names
}

// emitMessage writes one object-header message (header + body) into the
// writer's scratch buffer and pads to the next 8-byte boundary.
func (w *Writer) emitMessage(msgType uint16, flags byte, body []byte) error {
	header := core.EncodeMessageHeader(msgType, uint16(len(body)), flags)
	if _, err := w.fw.Buffer.Write(header); err != nil {
		return utils.WrapError("message header", err)
	}
	if _, err := w.fw.Buffer.Write(body); err != nil {
		return utils.WrapError("message body", err)
	}
	w.fw.Buffer.AlignTo8()
	return nil
}
