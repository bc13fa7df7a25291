package core

import "encoding/binary"

// ObjectHeaderPrefixSize is the fixed, 8-byte-aligned size of a version-1
// object header prefix (version, reserved, message count, reference
// count, header size, and 4 bytes of alignment padding).
const ObjectHeaderPrefixSize = 16

// MessageHeaderSize is the fixed size of a version-1 object-header
// message's own header (type, size, flags, reserved).
const MessageHeaderSize = 8

// MaxCompactPayload is the largest raw dataset payload a compact data
// layout message can carry: the message's 2-byte size field must hold the
// 8-byte layout header plus the payload.
const MaxCompactPayload = 0xFFFF - 8

// Message type tags used by this dialect's object headers.
const (
	MsgDataspace   uint16 = 0x01
	MsgDatatype    uint16 = 0x03
	MsgFillValue   uint16 = 0x05
	MsgDataLayout  uint16 = 0x08
	MsgAttribute   uint16 = 0x0C
	MsgSymbolTable uint16 = 0x11
)

// EncodeObjectHeaderV1Prefix encodes the 16-byte version-1 object header
// prefix. headerSize is the total byte length of the messages area that
// follows (each message's 8-byte header plus its body, 8-byte aligned).
func EncodeObjectHeaderV1Prefix(numMessages uint16, refCount uint32, headerSize uint32) []byte {
	buf := make([]byte, ObjectHeaderPrefixSize)
	buf[0] = 1 // version
	buf[1] = 0 // reserved
	binary.LittleEndian.PutUint16(buf[2:4], numMessages)
	binary.LittleEndian.PutUint32(buf[4:8], refCount)
	binary.LittleEndian.PutUint32(buf[8:12], headerSize)
	// buf[12:16] is alignment padding, left zero.
	return buf
}

// EncodeMessageHeader encodes the 8-byte message header that precedes
// every object-header message body.
func EncodeMessageHeader(msgType uint16, size uint16, flags byte) []byte {
	buf := make([]byte, MessageHeaderSize)
	binary.LittleEndian.PutUint16(buf[0:2], msgType)
	binary.LittleEndian.PutUint16(buf[2:4], size)
	buf[4] = flags
	// buf[5:8] reserved, left zero.
	return buf
}
