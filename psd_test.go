package psd_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	psd "github.com/go-photoshop/psd"
)

func rgbHeader(version psd.Version, width, height uint32) *psd.Header {
	return &psd.Header{
		Version:  version,
		Channels: 3,
		Height:   height,
		Width:    width,
		Depth:    psd.BitDepth8,
		Mode:     psd.ColorModeRGB,
	}
}

// Scenario: an empty 64x64 RGB document round-trips through Write/Read with
// no layers and a synthesized blank composite.
func TestRoundTripEmptyRGBDocument(t *testing.T) {
	doc := &psd.Document{Depth: psd.BitDepth8, U8: &psd.LayeredFile[uint8]{
		Header: rgbHeader(psd.VersionPSD, 64, 64),
	}}

	data, err := psd.Write(doc)
	require.NoError(t, err)

	got, err := psd.Read(data)
	require.NoError(t, err)
	require.NotNil(t, got.U8)
	assert.Empty(t, got.U8.Layers)
	assert.Equal(t, uint32(64), got.U8.Header.Width)
	assert.Equal(t, uint32(64), got.U8.Header.Height)
	assert.Len(t, got.U8.Merged, 3)
	for _, ch := range got.U8.Merged {
		assert.Len(t, ch.Samples, 64*64)
	}
}

// Scenario: a single image layer with a fill and a mid-grey mask survives a
// round trip with its pixel data and mask intact.
func TestRoundTripSingleLayerWithMask(t *testing.T) {
	const w, h = 10, 10
	red := make([]uint8, w*h)
	for i := range red {
		red[i] = 200
	}
	maskSamples := make([]uint8, w*h)
	for i := range maskSamples {
		maskSamples[i] = 128
	}

	layer := &psd.Layer[uint8]{
		Name:      "Fill",
		Kind:      psd.LayerKindImage,
		Rect:      psd.Rect{Top: 0, Left: 0, Bottom: h, Right: w},
		BlendMode: psd.BlendModeNormal,
		Opacity:   255,
		Channels: map[psd.ChannelID]*psd.ImageChannel[uint8]{
			0: {ID: 0, Width: w, Height: h, Samples: red},
			1: {ID: 1, Width: w, Height: h, Samples: make([]uint8, w*h)},
			2: {ID: 2, Width: w, Height: h, Samples: make([]uint8, w*h)},
		},
		Mask: &psd.LayerMask[uint8]{
			Rect:    psd.Rect{Top: 0, Left: 0, Bottom: h, Right: w},
			Samples: maskSamples,
		},
	}

	doc := &psd.Document{Depth: psd.BitDepth8, U8: &psd.LayeredFile[uint8]{
		Header:      rgbHeader(psd.VersionPSD, 64, 64),
		Layers:      []*psd.Layer[uint8]{layer},
		Compression: psd.CompressionRLE,
	}}

	data, err := psd.Write(doc)
	require.NoError(t, err)

	got, err := psd.Read(data)
	require.NoError(t, err)
	require.Len(t, got.U8.Layers, 1)

	back := got.U8.Layers[0]
	assert.Equal(t, "Fill", back.Name)
	assert.Equal(t, red, back.Channels[0].Samples)
	require.NotNil(t, back.Mask)
	assert.Equal(t, maskSamples, back.Mask.Samples)
}

// Scenario: a group containing two image layers preserves child order and
// per-child blend mode/opacity.
func TestRoundTripGroupWithTwoLayers(t *testing.T) {
	const w, h = 4, 4
	makeLayer := func(name string, mode psd.BlendMode, opacity uint8) *psd.Layer[uint8] {
		return &psd.Layer[uint8]{
			Name: name, Kind: psd.LayerKindImage,
			Rect: psd.Rect{Bottom: h, Right: w}, BlendMode: mode, Opacity: opacity,
			Channels: map[psd.ChannelID]*psd.ImageChannel[uint8]{
				0: {ID: 0, Width: w, Height: h, Samples: make([]uint8, w*h)},
			},
		}
	}

	group := &psd.Layer[uint8]{
		Name: "Group", Kind: psd.LayerKindGroup, BlendMode: psd.BlendModeNormal, Opacity: 255,
		Children: []*psd.Layer[uint8]{
			makeLayer("First", psd.BlendModeNormal, 255),
			makeLayer("Second", psd.BlendModeMultiply, 128),
		},
	}

	doc := &psd.Document{Depth: psd.BitDepth8, U8: &psd.LayeredFile[uint8]{
		Header: &psd.Header{Version: psd.VersionPSD, Channels: 1, Height: 64, Width: 64, Depth: psd.BitDepth8, Mode: psd.ColorModeGrayscale},
		Layers: []*psd.Layer[uint8]{group},
	}}

	data, err := psd.Write(doc)
	require.NoError(t, err)

	got, err := psd.Read(data)
	require.NoError(t, err)
	require.Len(t, got.U8.Layers, 1)

	backGroup := got.U8.Layers[0]
	assert.Equal(t, psd.LayerKindGroup, backGroup.Kind)
	require.Len(t, backGroup.Children, 2)
	assert.Equal(t, "First", backGroup.Children[0].Name)
	assert.Equal(t, "Second", backGroup.Children[1].Name)
	assert.Equal(t, psd.BlendModeMultiply, backGroup.Children[1].BlendMode)
	assert.EqualValues(t, 128, backGroup.Children[1].Opacity)
}

// Scenario: a pass-through group's true blend mode is relocated onto the
// section-divider block and recovered correctly on read.
func TestRoundTripPassThroughGroup(t *testing.T) {
	const w, h = 4, 4
	leaf := &psd.Layer[uint8]{
		Name: "Leaf", Kind: psd.LayerKindImage, Rect: psd.Rect{Bottom: h, Right: w}, BlendMode: psd.BlendModeNormal, Opacity: 255,
		Channels: map[psd.ChannelID]*psd.ImageChannel[uint8]{0: {ID: 0, Width: w, Height: h, Samples: make([]uint8, w*h)}},
	}
	group := &psd.Layer[uint8]{
		Name: "PassGroup", Kind: psd.LayerKindGroup, BlendMode: psd.BlendModePassthrough, PassThrough: true, Opacity: 255,
		Children: []*psd.Layer[uint8]{leaf},
	}

	doc := &psd.Document{Depth: psd.BitDepth8, U8: &psd.LayeredFile[uint8]{
		Header: &psd.Header{Version: psd.VersionPSD, Channels: 1, Height: 64, Width: 64, Depth: psd.BitDepth8, Mode: psd.ColorModeGrayscale},
		Layers: []*psd.Layer[uint8]{group},
	}}

	data, err := psd.Write(doc)
	require.NoError(t, err)

	got, err := psd.Read(data)
	require.NoError(t, err)
	require.Len(t, got.U8.Layers, 1)
	assert.True(t, got.U8.Layers[0].PassThrough)
	assert.Equal(t, psd.BlendModePassthrough, got.U8.Layers[0].BlendMode)
}

// Scenario: a PSB 16-bit document stores its real layer data nested inside
// a Lr16 tagged block, with an empty top-level layer info; Write/Read must
// round-trip this transparently.
func TestRoundTripPSB16BitNestedLayerInfo(t *testing.T) {
	const w, h = 8, 8
	samples := make([]uint16, w*h)
	for i := range samples {
		samples[i] = uint16(i * 10)
	}
	layer := &psd.Layer[uint16]{
		Name: "Deep", Kind: psd.LayerKindImage, Rect: psd.Rect{Bottom: h, Right: w}, BlendMode: psd.BlendModeNormal, Opacity: 255,
		Channels: map[psd.ChannelID]*psd.ImageChannel[uint16]{0: {ID: 0, Width: w, Height: h, Samples: samples}},
	}

	doc := &psd.Document{Depth: psd.BitDepth16, U16: &psd.LayeredFile[uint16]{
		Header: &psd.Header{Version: psd.VersionPSB, Channels: 1, Height: 64, Width: 64, Depth: psd.BitDepth16, Mode: psd.ColorModeGrayscale},
		Layers: []*psd.Layer[uint16]{layer},
	}}

	data, err := psd.Write(doc)
	require.NoError(t, err)

	got, err := psd.Read(data)
	require.NoError(t, err)
	require.NotNil(t, got.U16)
	require.Len(t, got.U16.Layers, 1)
	assert.Equal(t, "Deep", got.U16.Layers[0].Name)
	assert.Equal(t, samples, got.U16.Layers[0].Channels[0].Samples)
}

// DPI and ICC profile bytes pass through a round trip opaquely.
func TestRoundTripDPIAndICCProfile(t *testing.T) {
	doc := &psd.Document{Depth: psd.BitDepth8, U8: &psd.LayeredFile[uint8]{
		Header:     rgbHeader(psd.VersionPSD, 16, 16),
		DPI:        240,
		ICCProfile: []byte{0xAA, 0xBB, 0xCC, 0xDD},
	}}

	data, err := psd.Write(doc)
	require.NoError(t, err)

	got, err := psd.Read(data)
	require.NoError(t, err)
	assert.InDelta(t, 240.0, got.U8.DPI, 0.01)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD}, got.U8.ICCProfile)
}
