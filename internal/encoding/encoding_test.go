package encoding

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadWriteRoundTrip(t *testing.T) {
	buf := make([]byte, 16)
	PutU16(buf, 0, 0xBEEF)
	PutU32(buf, 2, 0xDEADBEEF)
	PutU64(buf, 6, 0x0123456789ABCDEF)

	require.Equal(t, uint16(0xBEEF), ReadU16(buf, 0))
	require.Equal(t, uint32(0xDEADBEEF), ReadU32(buf, 2))
	require.Equal(t, uint64(0x0123456789ABCDEF), ReadU64(buf, 6))
}

func TestAppendHelpers(t *testing.T) {
	buf := AppendU32(nil, 7)
	buf = AppendU64(buf, 9)
	buf = AppendI64(buf, -1)
	buf = AppendI32(buf, -2)

	require.Len(t, buf, 4+8+8+4)
	require.Equal(t, uint32(7), ReadU32(buf, 0))
	require.Equal(t, uint64(9), ReadU64(buf, 4))
	require.Equal(t, int64(-1), int64(ReadU64(buf, 12)))
	require.Equal(t, int32(-2), int32(ReadU32(buf, 20)))
}

func TestHash64_Deterministic(t *testing.T) {
	a := Hash64([]byte("node image"))
	b := Hash64([]byte("node image"))
	c := Hash64([]byte("other image"))

	require.Equal(t, a, b)
	require.NotEqual(t, a, c)
}

func TestHash64_KnownPrefix(t *testing.T) {
	// The hash is the little-endian read of the first 8 SHA-256 bytes;
	// the empty-input digest starts with e3 b0 c4 42 98 fc 1c 14, read
	// little-endian as 0x141cfc9842c4b0e3.
	require.Equal(t, int64(0x141cfc9842c4b0e3), Hash64(nil))
}

func TestImageBuilder_Layout(t *testing.T) {
	img := NewImageBuilder().Byte(2).I64(42).I32(-1).Bytes([]byte("xy")).Image()

	require.Equal(t, byte(2), img[0])
	require.Equal(t, uint64(42), ReadU64(img, 1))
	require.Equal(t, int32(-1), int32(ReadU32(img, 9)))
	require.Equal(t, uint32(2), ReadU32(img, 13))
	require.True(t, bytes.HasSuffix(img, []byte("xy")))
}

func TestEncodeValue_SmallStaysRaw(t *testing.T) {
	raw := []byte("short")
	encoded := EncodeValue(raw, true)

	require.Equal(t, byte(valueRaw), encoded[0])
	decoded, err := DecodeValue(encoded)
	require.NoError(t, err)
	require.Equal(t, raw, decoded)
}

func TestEncodeValue_LargeCompresses(t *testing.T) {
	raw := bytes.Repeat([]byte("abcdefgh"), 64)
	encoded := EncodeValue(raw, true)

	require.Equal(t, byte(valueCompressed), encoded[0])
	require.Less(t, len(encoded), len(raw))

	decoded, err := DecodeValue(encoded)
	require.NoError(t, err)
	require.Equal(t, raw, decoded)
}

func TestEncodeValue_CompressionDisabled(t *testing.T) {
	raw := bytes.Repeat([]byte("abcdefgh"), 64)
	encoded := EncodeValue(raw, false)

	require.Equal(t, byte(valueRaw), encoded[0])
	decoded, err := DecodeValue(encoded)
	require.NoError(t, err)
	require.Equal(t, raw, decoded)
}

func TestDecodeValue_Corrupt(t *testing.T) {
	_, err := DecodeValue([]byte{0x7F, 1, 2})
	require.ErrorIs(t, err, ErrValueCorrupt)

	_, err = DecodeValue([]byte{valueCompressed, 0xFF, 0xFF})
	require.ErrorIs(t, err, ErrValueCorrupt)
}

func TestDecodeValue_Empty(t *testing.T) {
	decoded, err := DecodeValue(nil)
	require.NoError(t, err)
	require.Nil(t, decoded)
}
