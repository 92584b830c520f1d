package psd

import (
	"unicode/utf16"

	"github.com/pkg/errors"
)

// ChannelInfo is one entry of a layer record's channel-info table: which
// logical channel follows, and the total byte length of its compressed
// image data (including the 2-byte compression marker) in the later
// channel-image-data section.
type ChannelInfo struct {
	ID     ChannelID
	Length uint64
}

// LayerRecord is one flat entry of the layer-info list, in the file's
// native bottom-to-top-of-the-stack storage order. The
// document-model bridge (C9) reverses this order and groups records
// under section-divider markers to build the layer tree.
type LayerRecord struct {
	Rect      Rect
	Channels  []ChannelInfo
	BlendMode BlendMode
	Opacity   uint8
	Clipping  uint8
	Flags     uint8
	Mask      *MaskData
	// BlendingRanges is kept opaque; the raw bytes round-trip without
	// interpretation.
	BlendingRanges []byte
	Name           string
	TaggedBlocks   []*TaggedBlock
}

const layerRecordBlendSignature = "8BIM"

// LayerFlag bits on a layer record.
type LayerFlag uint8

const (
	LayerFlagTransparencyProtected LayerFlag = 1 << 0
	LayerFlagHidden                LayerFlag = 1 << 1
	LayerFlagObsolete              LayerFlag = 1 << 2
	LayerFlagPSD5OrLater           LayerFlag = 1 << 3
	LayerFlagPixelDataIrrelevant   LayerFlag = 1 << 4
)

// ReadLayerRecord parses one layer record: bounding rect,
// channel-info table, blend signature/key/opacity/clipping/flags, and
// the variable "extra data" block (mask, blending ranges, name, tagged
// blocks).
func ReadLayerRecord(f *File, version Version) (*LayerRecord, error) {
	lr := &LayerRecord{}

	rect, err := readRect(f)
	if err != nil {
		return nil, err
	}
	lr.Rect = rect

	numChannels, err := f.ReadUint16()
	if err != nil {
		return nil, err
	}
	if int(numChannels) > MaxChannels {
		return nil, &SizeLimitExceededError{What: "layer channel count", Value: int64(numChannels), Limit: MaxChannels}
	}

	lr.Channels = make([]ChannelInfo, numChannels)
	for i := range lr.Channels {
		id, err := f.ReadInt16()
		if err != nil {
			return nil, err
		}
		length, err := f.ReadWidth(version)
		if err != nil {
			return nil, err
		}
		lr.Channels[i] = ChannelInfo{ID: ChannelID(id), Length: length}
	}

	sig, err := f.ReadString(4)
	if err != nil {
		return nil, err
	}
	if sig != layerRecordBlendSignature {
		return nil, &BadSignatureError{Offset: f.Tell() - 4, Expected: layerRecordBlendSignature, Got: sig}
	}

	rawMode, err := f.ReadString(4)
	if err != nil {
		return nil, err
	}
	// Unknown codes fall back to Normal rather than failing the parse.
	mode, ok := ParseBlendMode(rawMode)
	if !ok {
		f.warn("unknown blend mode code " + rawMode + " on layer record, falling back to normal")
	}
	lr.BlendMode = mode

	lr.Opacity, err = f.ReadUint8()
	if err != nil {
		return nil, err
	}
	lr.Clipping, err = f.ReadUint8()
	if err != nil {
		return nil, err
	}
	lr.Flags, err = f.ReadUint8()
	if err != nil {
		return nil, err
	}
	if err := f.Skip(1); err != nil { // filler byte
		return nil, err
	}

	extraLength, err := f.ReadUint32()
	if err != nil {
		return nil, err
	}
	extraEnd := f.Tell() + int64(extraLength)

	lr.Mask, err = ReadMaskData(f)
	if err != nil {
		return nil, errors.Wrap(err, "layer mask")
	}

	blendingRangesLength, err := f.ReadUint32()
	if err != nil {
		return nil, err
	}
	lr.BlendingRanges = make([]byte, blendingRangesLength)
	if err := f.Read(lr.BlendingRanges); err != nil {
		return nil, err
	}

	name, err := readPascalString(f, 4)
	if err != nil {
		return nil, err
	}
	lr.Name = name

	blocks, err := ReadTaggedBlocks(f, version, extraEnd, 4)
	if err != nil {
		return nil, errors.Wrap(err, "layer additional info")
	}
	lr.TaggedBlocks = blocks

	if unicodeBlock := FindTaggedBlock(blocks, TaggedBlockUnicodeName); unicodeBlock != nil {
		if name, ok := decodeUnicodeNameBlock(unicodeBlock.Payload); ok {
			lr.Name = name
		}
	}

	if f.Tell() != extraEnd {
		if err := f.Seek(extraEnd); err != nil {
			return nil, err
		}
	}

	return lr, nil
}

// WriteLayerRecord emits one layer record.
func WriteLayerRecord(f *File, version Version, lr *LayerRecord) {
	writeRect(f, lr.Rect)

	f.WriteUint16(uint16(len(lr.Channels)))
	for _, ch := range lr.Channels {
		f.WriteInt16(int16(ch.ID))
		f.WriteWidth(version, ch.Length)
	}

	f.WriteString(layerRecordBlendSignature)
	f.WriteString(string(lr.BlendMode))
	f.WriteUint8(lr.Opacity)
	f.WriteUint8(lr.Clipping)
	f.WriteUint8(lr.Flags)
	f.WriteUint8(0) // filler

	extraLenOffset := f.Tell()
	f.WriteUint32(0)
	extraStart := f.Tell()

	WriteMaskData(f, lr.Mask)

	f.WriteUint32(uint32(len(lr.BlendingRanges)))
	f.Write(lr.BlendingRanges)

	writePascalString(f, lr.Name, 4)

	WriteTaggedBlocks(f, version, lr.TaggedBlocks, 4)

	extraEnd := f.Tell()
	patchLengthField(f, extraLenOffset, uint64(extraEnd-extraStart), false)
}

// decodeUnicodeNameBlock decodes a 'luni' tagged block payload: a u32
// UTF-16BE code unit count followed by that many 16-bit units, used
// when a layer name exceeds the 255-byte Pascal string limit.
func decodeUnicodeNameBlock(payload []byte) (string, bool) {
	if len(payload) < 4 {
		return "", false
	}
	count := int(payload[0])<<24 | int(payload[1])<<16 | int(payload[2])<<8 | int(payload[3])
	payload = payload[4:]
	if len(payload) < count*2 {
		return "", false
	}
	units := make([]uint16, count)
	for i := 0; i < count; i++ {
		units[i] = uint16(payload[i*2])<<8 | uint16(payload[i*2+1])
	}
	return string(utf16.Decode(units)), true
}

// encodeUnicodeNameBlock builds a 'luni' tagged block payload for name.
func encodeUnicodeNameBlock(name string) []byte {
	units := utf16.Encode([]rune(name))
	out := make([]byte, 4+len(units)*2)
	out[0] = byte(len(units) >> 24)
	out[1] = byte(len(units) >> 16)
	out[2] = byte(len(units) >> 8)
	out[3] = byte(len(units))
	for i, u := range units {
		out[4+i*2] = byte(u >> 8)
		out[4+i*2+1] = byte(u)
	}
	return out
}
