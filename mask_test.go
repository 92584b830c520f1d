package psd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMaskDataNilRoundTrip(t *testing.T) {
	w := NewWriter(VersionPSD)
	WriteMaskData(w, nil)
	got, err := ReadMaskData(NewReader(w.Bytes(), VersionPSD))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestMaskDataBasicRoundTrip(t *testing.T) {
	m := &MaskData{
		Rect:         Rect{Top: 1, Left: 2, Bottom: 10, Right: 20},
		DefaultColor: 255,
		Flags:        MaskFlagPositionRelative,
	}
	w := NewWriter(VersionPSD)
	WriteMaskData(w, m)
	got, err := ReadMaskData(NewReader(w.Bytes(), VersionPSD))
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestMaskDataWithParametersRoundTrip(t *testing.T) {
	m := &MaskData{
		Rect:         Rect{Top: 0, Left: 0, Bottom: 64, Right: 64},
		DefaultColor: 0,
		Flags:        MaskFlagParametersApplied,
		ParamFlags:   maskParamUserDensity | maskParamUserFeather,
		UserDensity:  128,
		UserFeather:  2.5,
	}
	w := NewWriter(VersionPSD)
	WriteMaskData(w, m)
	got, err := ReadMaskData(NewReader(w.Bytes(), VersionPSD))
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

// All four density/feather parameters only fit the dual-mask record
// form, where the parameter block trails the second mask rather than
// the first.
func TestMaskDataDualMaskWithAllParametersRoundTrip(t *testing.T) {
	m := &MaskData{
		Rect:          Rect{Top: 0, Left: 0, Bottom: 64, Right: 64},
		Flags:         MaskFlagFromRenderedData,
		ParamFlags:    maskParamUserDensity | maskParamUserFeather | maskParamVectorDensity | maskParamVectorFeather,
		UserDensity:   64,
		UserFeather:   1.25,
		VectorDensity: 200,
		VectorFeather: 4.0,
		HasReal:       true,
		RealFlags:     MaskFlagParametersApplied,
		RealRect:      Rect{Top: 2, Left: 2, Bottom: 62, Right: 62},
	}
	w := NewWriter(VersionPSD)
	WriteMaskData(w, m)
	got, err := ReadMaskData(NewReader(w.Bytes(), VersionPSD))
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

func TestMaskDataDualMaskRoundTrip(t *testing.T) {
	m := &MaskData{
		Rect:           Rect{Top: 0, Left: 0, Bottom: 64, Right: 64},
		DefaultColor:   255,
		Flags:          MaskFlagFromRenderedData,
		HasReal:        true,
		RealFlags:      MaskFlagInvert,
		RealBackground: 0,
		RealRect:       Rect{Top: 4, Left: 4, Bottom: 60, Right: 60},
	}
	w := NewWriter(VersionPSD)
	WriteMaskData(w, m)
	got, err := ReadMaskData(NewReader(w.Bytes(), VersionPSD))
	require.NoError(t, err)
	assert.Equal(t, m, got)
}

// The second mask reverses the outer field order (flags, default color,
// extents) but keeps the rect's own components in top/left/bottom/right
// order, same as the first mask.
func TestDualMaskRealRectByteLayout(t *testing.T) {
	m := &MaskData{
		Rect:           Rect{Top: 0, Left: 0, Bottom: 64, Right: 64},
		DefaultColor:   255,
		Flags:          MaskFlagFromRenderedData,
		HasReal:        true,
		RealFlags:      MaskFlagInvert,
		RealBackground: 255,
		RealRect:       Rect{Top: 1, Left: 2, Bottom: 3, Right: 4},
	}
	w := NewWriter(VersionPSD)
	WriteMaskData(w, m)
	b := w.Bytes()

	// length(4) + rect(16) + color(1) + flags(1) = 22 bytes before the
	// real mask's flags and default color; its rect follows at 24.
	assert.Equal(t, uint8(MaskFlagInvert), b[22])
	assert.EqualValues(t, 255, b[23])
	r := NewReader(b[24:], VersionPSD)
	got, err := readRect(r)
	require.NoError(t, err)
	assert.Equal(t, m.RealRect, got)
}
