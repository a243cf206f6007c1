// Package encoding provides the byte-level primitives shared by the tree
// engine: little-endian integer access, the deterministic node image
// format used for hashing, and value compression.
//
// All multi-byte integers are little-endian. The node image layout is
// part of the on-the-wire hash contract and must not change between
// releases (see image.go).
package encoding

import "encoding/binary"

// ReadU16 reads a little-endian uint16 at the given offset.
func ReadU16(data []byte, offset int) uint16 {
	return binary.LittleEndian.Uint16(data[offset:])
}

// ReadU32 reads a little-endian uint32 at the given offset.
func ReadU32(data []byte, offset int) uint32 {
	return binary.LittleEndian.Uint32(data[offset:])
}

// ReadU64 reads a little-endian uint64 at the given offset.
func ReadU64(data []byte, offset int) uint64 {
	return binary.LittleEndian.Uint64(data[offset:])
}

// PutU16 writes a little-endian uint16 at the given offset.
func PutU16(data []byte, offset int, v uint16) {
	binary.LittleEndian.PutUint16(data[offset:], v)
}

// PutU32 writes a little-endian uint32 at the given offset.
func PutU32(data []byte, offset int, v uint32) {
	binary.LittleEndian.PutUint32(data[offset:], v)
}

// PutU64 writes a little-endian uint64 at the given offset.
func PutU64(data []byte, offset int, v uint64) {
	binary.LittleEndian.PutUint64(data[offset:], v)
}

// AppendU32 appends v to buf in little-endian order.
func AppendU32(buf []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(buf, v)
}

// AppendU64 appends v to buf in little-endian order.
func AppendU64(buf []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(buf, v)
}

// AppendI64 appends v to buf as its two's-complement little-endian image.
func AppendI64(buf []byte, v int64) []byte {
	return binary.LittleEndian.AppendUint64(buf, uint64(v))
}

// AppendI32 appends v to buf as its two's-complement little-endian image.
func AppendI32(buf []byte, v int32) []byte {
	return binary.LittleEndian.AppendUint32(buf, uint32(v))
}
