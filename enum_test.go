package psd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBlendModeKnown(t *testing.T) {
	mode, ok := ParseBlendMode("mul ")
	assert.True(t, ok)
	assert.Equal(t, BlendModeMultiply, mode)
}

func TestParseBlendModeUnknownFallsBackToNormal(t *testing.T) {
	mode, ok := ParseBlendMode("zzzz")
	assert.False(t, ok)
	assert.Equal(t, BlendModeNormal, mode)
}

func TestCompressionString(t *testing.T) {
	assert.Equal(t, "Raw", CompressionRaw.String())
	assert.Equal(t, "RLE", CompressionRLE.String())
	assert.Equal(t, "ZIP", CompressionZIP.String())
	assert.Equal(t, "ZIPPrediction", CompressionZIPPrediction.String())
	assert.Contains(t, Compression(99).String(), "99")
}

func TestColorModeString(t *testing.T) {
	assert.Equal(t, "RGB", ColorModeRGB.String())
	assert.Contains(t, ColorMode(123).String(), "123")
}

func TestTaggedBlockLengthIsWideOnlyForPSB(t *testing.T) {
	assert.False(t, taggedBlockLengthIsWide(TaggedBlockLr16, VersionPSD))
	assert.True(t, taggedBlockLengthIsWide(TaggedBlockLr16, VersionPSB))
	assert.False(t, taggedBlockLengthIsWide(TaggedBlockSectionDivider, VersionPSB))
}

func TestChannelIDForIndexIsModeAware(t *testing.T) {
	assert.Equal(t, ChannelID(0), channelIDForIndex(ColorModeRGB, 0))
	assert.Equal(t, ChannelTransparency, channelIDForIndex(ColorModeRGB, -1))
}

func TestChannelNameRGB(t *testing.T) {
	assert.Equal(t, "Red", channelName(ColorModeRGB, 0))
	assert.Equal(t, "Green", channelName(ColorModeRGB, 1))
	assert.Equal(t, "Blue", channelName(ColorModeRGB, 2))
	assert.Equal(t, "UserMask", channelName(ColorModeRGB, ChannelUserMask))
}
