package encoding

import "crypto/sha256"

// Hash64 computes the 64-bit node hash fixed by the storage format:
// SHA-256 over the node image, truncated to the low 64 bits
// (little-endian read of the first eight digest bytes).
//
// Rolling and postorder hash maintenance combine these values with
// wrapping int64 arithmetic and HashPrime, so the truncation must stay
// bit-exact across implementations.
func Hash64(image []byte) int64 {
	sum := sha256.Sum256(image)
	return int64(ReadU64(sum[:], 0))
}

// HashPrime is the multiplier folding a child hash into its parent.
const HashPrime = 77081

// ImageBuilder accumulates the deterministic byte image of a node.
// Fields must be appended in a fixed order per node kind; sibling and
// first-child pointers, counters and the stored hash are never part of
// the image so that sibling surgery does not disturb untouched nodes.
type ImageBuilder struct {
	buf []byte
}

// NewImageBuilder returns a builder with a small preallocated buffer.
func NewImageBuilder() *ImageBuilder {
	return &ImageBuilder{buf: make([]byte, 0, 64)}
}

// Byte appends a single tag byte (typically the node kind).
func (b *ImageBuilder) Byte(v byte) *ImageBuilder {
	b.buf = append(b.buf, v)
	return b
}

// I64 appends a 64-bit field such as a node or parent key.
func (b *ImageBuilder) I64(v int64) *ImageBuilder {
	b.buf = AppendI64(b.buf, v)
	return b
}

// I32 appends a 32-bit field such as an interned name key.
func (b *ImageBuilder) I32(v int32) *ImageBuilder {
	b.buf = AppendI32(b.buf, v)
	return b
}

// Bytes appends a length-prefixed byte field such as a decoded value.
func (b *ImageBuilder) Bytes(v []byte) *ImageBuilder {
	b.buf = AppendU32(b.buf, uint32(len(v)))
	b.buf = append(b.buf, v...)
	return b
}

// Image returns the accumulated image. The returned slice is owned by
// the builder and only valid until the next append.
func (b *ImageBuilder) Image() []byte {
	return b.buf
}
