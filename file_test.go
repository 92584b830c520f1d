package psd

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The composite image's RLE layout puts every channel's scanline
// byte-count table up front, followed by all channels' compressed
// scanlines, unlike per-layer channel data where each channel carries
// its own table.
func TestWriteMergedImageRLELayout(t *testing.T) {
	const width, height = 4, 2
	header := &Header{Version: VersionPSD, Channels: 2, Height: height, Width: width, Depth: BitDepth8, Mode: ColorModeGrayscale}
	samples := make([]uint8, width*height)
	for i := range samples {
		samples[i] = uint8(i)
	}
	doc := &LayeredFile[uint8]{
		Header:      header,
		Compression: CompressionRLE,
		Merged: map[ChannelID]*ImageChannel[uint8]{
			0: {ID: 0, Width: width, Height: height, Samples: samples},
		},
	}

	w := NewWriter(VersionPSD)
	require.NoError(t, writeMergedImage(w, header, doc))
	b := w.Bytes()

	assert.EqualValues(t, CompressionRLE, binary.BigEndian.Uint16(b[:2]))

	// 2 channels x 2 rows of u16 counts follow the compression marker;
	// their sum must account for every remaining byte, proving no
	// channel data is interleaved between the tables.
	var total int
	for i := 0; i < 2*height; i++ {
		total += int(binary.BigEndian.Uint16(b[2+i*2:]))
	}
	assert.Equal(t, len(b)-2-2*height*2, total)

	r := NewReader(b, VersionPSD)
	got, err := readMergedImage[uint8](r, header)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, samples, got[0].Samples)
	assert.Equal(t, make([]uint8, width*height), got[1].Samples)
}
