package encoding

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// compressionThreshold is the minimum decoded size before compression is
// attempted. Below this zstd framing overhead outweighs any gain.
const compressionThreshold = 64

// Value encoding flags (first byte of every encoded value).
const (
	valueRaw        = 0x00
	valueCompressed = 0x01
)

// ErrValueCorrupt indicates an encoded value that cannot be decoded.
var ErrValueCorrupt = errors.New("encoding: corrupt value")

// Shared encoder/decoder, both safe for concurrent use. Construction is
// expensive (internal state tables), so allocate once. SpeedFastest:
// values are compressed on every write but decompressed only when read.
var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// EncodeValue encodes a raw value for storage. With compress set, values
// at or above the threshold are zstd-compressed; compression is skipped
// when it does not shrink the payload.
func EncodeValue(raw []byte, compress bool) []byte {
	if compress && len(raw) >= compressionThreshold {
		compressed := zstdEncoder.EncodeAll(raw, make([]byte, 0, len(raw)/2))
		if len(compressed) < len(raw) {
			out := make([]byte, 0, len(compressed)+1)
			out = append(out, valueCompressed)
			return append(out, compressed...)
		}
	}
	out := make([]byte, 0, len(raw)+1)
	out = append(out, valueRaw)
	return append(out, raw...)
}

// DecodeValue decodes a stored value back to its raw bytes.
func DecodeValue(encoded []byte) ([]byte, error) {
	if len(encoded) == 0 {
		return nil, nil
	}
	switch encoded[0] {
	case valueRaw:
		return encoded[1:], nil
	case valueCompressed:
		raw, err := zstdDecoder.DecodeAll(encoded[1:], nil)
		if err != nil {
			return nil, fmt.Errorf("%w: zstd: %w", ErrValueCorrupt, err)
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("%w: unknown flag 0x%02x", ErrValueCorrupt, encoded[0])
	}
}
