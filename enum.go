package psd

import "fmt"

// BitDepth is the per-channel sample width recorded in the header.
type BitDepth uint16

const (
	BitDepth1  BitDepth = 1
	BitDepth8  BitDepth = 8
	BitDepth16 BitDepth = 16
	BitDepth32 BitDepth = 32
)

// ColorMode is the document's color mode.
type ColorMode uint16

const (
	ColorModeBitmap       ColorMode = 0
	ColorModeGrayscale    ColorMode = 1
	ColorModeIndexed      ColorMode = 2
	ColorModeRGB          ColorMode = 3
	ColorModeCMYK         ColorMode = 4
	ColorModeMultichannel ColorMode = 7
	ColorModeDuotone      ColorMode = 8
	ColorModeLab          ColorMode = 9
)

var colorModeNames = map[ColorMode]string{
	ColorModeBitmap:       "Bitmap",
	ColorModeGrayscale:    "Grayscale",
	ColorModeIndexed:      "Indexed",
	ColorModeRGB:          "RGB",
	ColorModeCMYK:         "CMYK",
	ColorModeMultichannel: "Multichannel",
	ColorModeDuotone:      "Duotone",
	ColorModeLab:          "Lab",
}

func (m ColorMode) String() string {
	if name, ok := colorModeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("ColorMode(%d)", uint16(m))
}

// Compression is the per-channel codec kind.
type Compression uint16

const (
	CompressionRaw           Compression = 0
	CompressionRLE           Compression = 1
	CompressionZIP           Compression = 2
	CompressionZIPPrediction Compression = 3
)

func (c Compression) String() string {
	switch c {
	case CompressionRaw:
		return "Raw"
	case CompressionRLE:
		return "RLE"
	case CompressionZIP:
		return "ZIP"
	case CompressionZIPPrediction:
		return "ZIPPrediction"
	default:
		return fmt.Sprintf("Compression(%d)", uint16(c))
	}
}

// BlendMode is a closed enumeration over the four-character blend-mode
// keys Photoshop stores on layer records and section-divider blocks.
type BlendMode string

const (
	BlendModePassthrough  BlendMode = "pass"
	BlendModeNormal       BlendMode = "norm"
	BlendModeDissolve     BlendMode = "diss"
	BlendModeDarken       BlendMode = "dark"
	BlendModeMultiply     BlendMode = "mul "
	BlendModeColorBurn    BlendMode = "idiv"
	BlendModeLinearBurn   BlendMode = "lbrn"
	BlendModeDarkerColor  BlendMode = "dkCl"
	BlendModeLighten      BlendMode = "lite"
	BlendModeScreen       BlendMode = "scrn"
	BlendModeColorDodge   BlendMode = "div "
	BlendModeLinearDodge  BlendMode = "lddg"
	BlendModeLighterColor BlendMode = "lgCl"
	BlendModeOverlay      BlendMode = "over"
	BlendModeSoftLight    BlendMode = "sLit"
	BlendModeHardLight    BlendMode = "hLit"
	BlendModeVividLight   BlendMode = "vLit"
	BlendModeLinearLight  BlendMode = "lLit"
	BlendModePinLight     BlendMode = "pLit"
	BlendModeHardMix      BlendMode = "hMix"
	BlendModeDifference   BlendMode = "diff"
	BlendModeExclusion    BlendMode = "smud"
	BlendModeSubtract     BlendMode = "fsub"
	BlendModeDivide       BlendMode = "fdiv"
	BlendModeHue          BlendMode = "hue "
	BlendModeSaturation   BlendMode = "sat "
	BlendModeColor        BlendMode = "colr"
	BlendModeLuminosity   BlendMode = "lum "
)

var knownBlendModes = map[BlendMode]bool{
	BlendModePassthrough: true, BlendModeNormal: true, BlendModeDissolve: true,
	BlendModeDarken: true, BlendModeMultiply: true, BlendModeColorBurn: true,
	BlendModeLinearBurn: true, BlendModeDarkerColor: true, BlendModeLighten: true,
	BlendModeScreen: true, BlendModeColorDodge: true, BlendModeLinearDodge: true,
	BlendModeLighterColor: true, BlendModeOverlay: true, BlendModeSoftLight: true,
	BlendModeHardLight: true, BlendModeVividLight: true, BlendModeLinearLight: true,
	BlendModePinLight: true, BlendModeHardMix: true, BlendModeDifference: true,
	BlendModeExclusion: true, BlendModeSubtract: true, BlendModeDivide: true,
	BlendModeHue: true, BlendModeSaturation: true, BlendModeColor: true,
	BlendModeLuminosity: true,
}

// ParseBlendMode maps a raw four-character code to a BlendMode, falling
// back to Normal with ok=false when the code is unknown.
func ParseBlendMode(code string) (mode BlendMode, ok bool) {
	bm := BlendMode(code)
	if knownBlendModes[bm] {
		return bm, true
	}
	return BlendModeNormal, false
}

// ChannelID identifies a logical channel. Negative values are the shared
// "special" channels (transparency, masks); non-negative values are
// color-mode-dependent.
type ChannelID int16

const (
	ChannelTransparency ChannelID = -1
	ChannelUserMask     ChannelID = -2
	ChannelRealUserMask ChannelID = -3
)

// ChannelIDInfo pairs a logical channel identity with its physical index
// among a layer's stored channels.
type ChannelIDInfo struct {
	ID    ChannelID
	Index int
}

// channelIDForIndex maps a channel-record index to its color-mode-aware
// ChannelID: channel 0 is Red in RGB, Cyan in CMYK, Gray in Grayscale.
// The id values coincide with the index in every color mode, so the
// mapping is numeric; channelName resolves the mode-specific meaning.
// Negative indices are mode-independent specials.
func channelIDForIndex(mode ColorMode, index int16) ChannelID {
	return ChannelID(index)
}

// channelName returns a human-readable name for a channel id under a
// given color mode; used only for diagnostics.
func channelName(mode ColorMode, id ChannelID) string {
	switch id {
	case ChannelTransparency:
		return "Transparency"
	case ChannelUserMask:
		return "UserMask"
	case ChannelRealUserMask:
		return "RealUserMask"
	}
	switch mode {
	case ColorModeRGB:
		switch id {
		case 0:
			return "Red"
		case 1:
			return "Green"
		case 2:
			return "Blue"
		}
	case ColorModeCMYK:
		switch id {
		case 0:
			return "Cyan"
		case 1:
			return "Magenta"
		case 2:
			return "Yellow"
		case 3:
			return "Black"
		}
	case ColorModeGrayscale, ColorModeBitmap, ColorModeDuotone:
		if id == 0 {
			return "Gray"
		}
	case ColorModeLab:
		switch id {
		case 0:
			return "Lightness"
		case 1:
			return "A"
		case 2:
			return "B"
		}
	}
	return fmt.Sprintf("Channel(%d)", int16(id))
}

// SectionDividerKind is the payload kind of an 'lsct' tagged block,
// encoding group structure in the flat layer stream.
type SectionDividerKind uint32

const (
	SectionDividerOther        SectionDividerKind = 0
	SectionDividerOpenFolder   SectionDividerKind = 1
	SectionDividerClosedFolder SectionDividerKind = 2
	SectionDividerBoundingEnd  SectionDividerKind = 3
)

// TaggedBlockKey is the four-character key identifying a tagged block's
// payload shape.
type TaggedBlockKey string

const (
	TaggedBlockSectionDivider    TaggedBlockKey = "lsct"
	TaggedBlockLr16              TaggedBlockKey = "Lr16"
	TaggedBlockLr32              TaggedBlockKey = "Lr32"
	TaggedBlockUnicodeName       TaggedBlockKey = "luni"
	TaggedBlockLayerID           TaggedBlockKey = "lyid"
	TaggedBlockFillOpacity       TaggedBlockKey = "iOpa"
	TaggedBlockLayerMask         TaggedBlockKey = "LMsk"
	TaggedBlockUserMask          TaggedBlockKey = "Layr"
	TaggedBlockSavedMergedAlpha  TaggedBlockKey = "Mtrn"
	TaggedBlockSavedMergedAlpha2 TaggedBlockKey = "Mt16"
	TaggedBlockSavedMergedAlpha3 TaggedBlockKey = "Mt32"
	TaggedBlockAlpha             TaggedBlockKey = "Alph"
	TaggedBlockFilterMask        TaggedBlockKey = "FMsk"
	TaggedBlockFilterEffectsID   TaggedBlockKey = "FEid"
	TaggedBlockFilterEffectsX    TaggedBlockKey = "FXid"
	TaggedBlockLinkedLayer2      TaggedBlockKey = "lnk2"
	TaggedBlockPixelSourceData   TaggedBlockKey = "PxSD"
	TaggedBlockCompositorInfo    TaggedBlockKey = "cinf"
)

// knownTaggedBlockKeys is the set of keys this package recognizes;
// anything outside it is carried opaquely and reported as a warning.
var knownTaggedBlockKeys = map[TaggedBlockKey]bool{
	TaggedBlockSectionDivider:    true,
	TaggedBlockLr16:              true,
	TaggedBlockLr32:              true,
	TaggedBlockUnicodeName:       true,
	TaggedBlockLayerID:           true,
	TaggedBlockFillOpacity:       true,
	TaggedBlockLayerMask:         true,
	TaggedBlockUserMask:          true,
	TaggedBlockSavedMergedAlpha:  true,
	TaggedBlockSavedMergedAlpha2: true,
	TaggedBlockSavedMergedAlpha3: true,
	TaggedBlockAlpha:             true,
	TaggedBlockFilterMask:        true,
	TaggedBlockFilterEffectsID:   true,
	TaggedBlockFilterEffectsX:    true,
	TaggedBlockLinkedLayer2:      true,
	TaggedBlockPixelSourceData:   true,
	TaggedBlockCompositorInfo:    true,
}

// wideLengthKeys is the set of tagged-block keys whose length field is
// 64 bits when (and only when) the document is PSB.
var wideLengthKeys = map[TaggedBlockKey]bool{
	TaggedBlockLayerMask:         true,
	TaggedBlockLr16:              true,
	TaggedBlockLr32:              true,
	TaggedBlockUserMask:          true,
	TaggedBlockSavedMergedAlpha:  true,
	TaggedBlockSavedMergedAlpha2: true,
	TaggedBlockSavedMergedAlpha3: true,
	TaggedBlockAlpha:             true,
	TaggedBlockFilterMask:        true,
	TaggedBlockFilterEffectsID:   true,
	TaggedBlockFilterEffectsX:    true,
	TaggedBlockLinkedLayer2:      true,
	TaggedBlockPixelSourceData:   true,
	TaggedBlockCompositorInfo:    true,
}

// taggedBlockLengthIsWide reports whether the block's length field is
// 64-bit: true iff the key is in the wide-length set AND the document
// is PSB.
func taggedBlockLengthIsWide(key TaggedBlockKey, version Version) bool {
	return wideLengthKeys[key] && version == VersionPSB
}
