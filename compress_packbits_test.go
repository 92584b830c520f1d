package psd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackBitsRoundTrip(t *testing.T) {
	cases := [][]byte{
		{},
		{1, 2, 3, 4, 5},
		bytes.Repeat([]byte{9}, 200),
		append(bytes.Repeat([]byte{1, 2, 3}, 50), bytes.Repeat([]byte{7}, 130)...),
		bytes.Repeat([]byte{0}, 1),
	}
	for _, src := range cases {
		encoded := encodePackBits(src)
		decoded, err := decodePackBits(encoded)
		require.NoError(t, err)
		assert.Equal(t, src, decoded)
	}
}

// A run of exactly 128 identical bytes is the longest repeat run a single
// PackBits header (0x81) can encode; this must decode back exactly.
func TestPackBitsExactly128Run(t *testing.T) {
	src := bytes.Repeat([]byte{0x42}, 128)
	encoded := encodePackBits(src)
	decoded, err := decodePackBits(encoded)
	require.NoError(t, err)
	assert.Equal(t, src, decoded)
}

func TestPackBitsSizeBound(t *testing.T) {
	for n := 0; n <= 400; n += 37 {
		src := make([]byte, n)
		for i := range src {
			src[i] = byte(i % 251) // mostly non-repeating to stress literal runs
		}
		encoded := encodePackBits(src)
		limit := len(src) + (len(src)+126)/127 + 1
		assert.LessOrEqual(t, len(encoded), limit)
	}
}

func TestDecodePackBitsNoOp(t *testing.T) {
	decoded, err := decodePackBits([]byte{0x80})
	require.NoError(t, err)
	assert.Empty(t, decoded)
}

func TestDecodePackBitsTruncatedLiteralRun(t *testing.T) {
	_, err := decodePackBits([]byte{5, 1, 2})
	assert.Error(t, err)
}

func TestDecodePackBitsTruncatedRepeatRun(t *testing.T) {
	_, err := decodePackBits([]byte{0xFF})
	assert.Error(t, err)
}

func TestPadEven(t *testing.T) {
	assert.Equal(t, []byte{1, 2}, padEven([]byte{1, 2}))
	assert.Equal(t, []byte{1, 2, 3, 128}, padEven([]byte{1, 2, 3}))
}
