package psd

import "github.com/pkg/errors"

// TaggedBlock is one "additional layer information" entry: a
// four-character key plus its raw payload. Most keys are kept opaque;
// lsct (section divider) is additionally decoded into SectionDivider
// since the layer-tree bridge needs its contents to relocate
// passthrough blend modes and to locate group boundaries. Lr16/Lr32
// are decoded into a nested LayerInfo for 16-/32-bit documents so
// consumers never re-dispatch on the key. Signature records whether the
// block was written as 8BIM or 8B64 so an unknown block re-emits the
// exact bytes it arrived with.
type TaggedBlock struct {
	Signature string
	Key       TaggedBlockKey
	Payload   []byte

	SectionDivider *SectionDivider
	NestedLayers   *LayerInfo
}

// SectionDivider is the decoded payload of an 'lsct' tagged block.
// BlendMode/HasBlendMode are only present in the 12-byte variant; a
// group's true blend mode lives here rather than on the owning layer
// record when that mode is Passthrough.
type SectionDivider struct {
	Kind         SectionDividerKind
	HasBlendMode bool
	Signature    string
	BlendMode    BlendMode
}

const taggedBlockSignature = "8BIM"

// taggedBlockSignature2 is an alternate signature some tagged blocks
// (notably newer Lr16/Lr32 producers) are written with; both are
// accepted on read.
const taggedBlockSignature2 = "8B64"

// ReadTaggedBlocks parses an "additional layer information" sequence
// that runs to the given end offset. version controls which keys use a
// 64-bit length field; padding is the alignment each block's payload
// was padded to when written (1 for document-level blocks, 4 for
// per-layer blocks).
func ReadTaggedBlocks(f *File, version Version, end int64, padding int64) ([]*TaggedBlock, error) {
	var blocks []*TaggedBlock
	for f.Tell()+8 <= end {
		block, err := readTaggedBlock(f, version, padding)
		if err != nil {
			return nil, errors.Wrap(err, "tagged block")
		}
		blocks = append(blocks, block)
	}
	if f.Tell() != end {
		if err := f.Seek(end); err != nil {
			return nil, err
		}
	}
	return blocks, nil
}

func readTaggedBlock(f *File, version Version, padding int64) (*TaggedBlock, error) {
	sig, err := f.ReadString(4)
	if err != nil {
		return nil, err
	}
	if sig != taggedBlockSignature && sig != taggedBlockSignature2 {
		return nil, &BadSignatureError{Offset: f.Tell() - 4, Expected: taggedBlockSignature, Got: sig}
	}

	rawKey, err := f.ReadString(4)
	if err != nil {
		return nil, err
	}
	key := TaggedBlockKey(rawKey)

	var length uint64
	if taggedBlockLengthIsWide(key, version) {
		length, err = f.ReadUint64()
	} else {
		var l uint32
		l, err = f.ReadUint32()
		length = uint64(l)
	}
	if err != nil {
		return nil, err
	}

	payloadStart := f.Tell()
	payloadEnd := payloadStart + int64(length)

	block := &TaggedBlock{Signature: sig, Key: key}

	switch key {
	case TaggedBlockSectionDivider:
		sd, err := readSectionDivider(f, payloadEnd)
		if err != nil {
			return nil, err
		}
		block.SectionDivider = sd

	case TaggedBlockLr16:
		nested, err := readLayerInfo(f, version, BitDepth16)
		if err != nil {
			return nil, err
		}
		block.NestedLayers = nested

	case TaggedBlockLr32:
		nested, err := readLayerInfo(f, version, BitDepth32)
		if err != nil {
			return nil, err
		}
		block.NestedLayers = nested

	default:
		payload := make([]byte, length)
		if err := f.Read(payload); err != nil {
			return nil, err
		}
		block.Payload = payload
		if !knownTaggedBlockKeys[key] {
			f.warn("unknown tagged block key " + string(key))
		}
	}

	if f.Tell() != payloadEnd {
		if err := f.Seek(payloadEnd); err != nil {
			return nil, err
		}
	}
	if pad := Align(int64(length), padding) - int64(length); pad > 0 {
		if err := f.Skip(pad); err != nil {
			return nil, err
		}
	}

	return block, nil
}

func readSectionDivider(f *File, payloadEnd int64) (*SectionDivider, error) {
	sd := &SectionDivider{}
	kind, err := f.ReadUint32()
	if err != nil {
		return nil, err
	}
	sd.Kind = SectionDividerKind(kind)

	if f.Tell() >= payloadEnd {
		return sd, nil
	}

	sig, err := f.ReadString(4)
	if err != nil {
		return nil, err
	}
	if sig != taggedBlockSignature && sig != taggedBlockSignature2 {
		return nil, &BadSignatureError{Offset: f.Tell() - 4, Expected: taggedBlockSignature, Got: sig}
	}
	sd.Signature = sig

	rawMode, err := f.ReadString(4)
	if err != nil {
		return nil, err
	}
	mode, ok := ParseBlendMode(rawMode)
	if !ok {
		f.warn("unknown blend mode code " + rawMode + " in section divider, falling back to normal")
	}
	sd.BlendMode = mode
	sd.HasBlendMode = true
	return sd, nil
}

// WriteTaggedBlocks emits the given blocks, patching each length
// placeholder after its payload is known. padding is the alignment the
// payloads are padded to (1 for document-level blocks, 4 for per-layer
// blocks).
func WriteTaggedBlocks(f *File, version Version, blocks []*TaggedBlock, padding int64) {
	for _, block := range blocks {
		writeTaggedBlock(f, version, block, padding)
	}
}

func writeTaggedBlock(f *File, version Version, block *TaggedBlock, padding int64) {
	sig := block.Signature
	if sig != taggedBlockSignature && sig != taggedBlockSignature2 {
		sig = taggedBlockSignature
	}
	f.WriteString(sig)
	f.WriteString(string(block.Key))

	lenOffset := f.Tell()
	wide := taggedBlockLengthIsWide(block.Key, version)
	if wide {
		f.WriteUint64(0)
	} else {
		f.WriteUint32(0)
	}

	payloadStart := f.Tell()
	switch block.Key {
	case TaggedBlockSectionDivider:
		writeSectionDivider(f, block.SectionDivider)
	case TaggedBlockLr16:
		writeLayerInfo(f, version, BitDepth16, block.NestedLayers)
	case TaggedBlockLr32:
		writeLayerInfo(f, version, BitDepth32, block.NestedLayers)
	default:
		f.Write(block.Payload)
	}
	payloadEnd := f.Tell()
	length := uint64(payloadEnd - payloadStart)
	if pad := Align(int64(length), padding) - int64(length); pad > 0 {
		f.Write(make([]byte, pad))
	}
	patchLengthField(f, lenOffset, length, wide)
}

func writeSectionDivider(f *File, sd *SectionDivider) {
	f.WriteUint32(uint32(sd.Kind))
	if !sd.HasBlendMode {
		return
	}
	sig := sd.Signature
	if sig == "" {
		sig = taggedBlockSignature
	}
	f.WriteString(sig)
	f.WriteString(string(sd.BlendMode))
}

// patchLengthField rewrites a previously-reserved length placeholder now
// that the payload's size is known (mirrors WriteImageResources' patch
// technique).
func patchLengthField(f *File, offset int64, length uint64, wide bool) {
	w := NewWriter(f.version)
	if wide {
		w.WriteUint64(length)
	} else {
		w.WriteUint32(uint32(length))
	}
	patch := w.Bytes()
	f.mu.Lock()
	copy(f.store.data[offset:offset+int64(len(patch))], patch)
	f.mu.Unlock()
}

// FindTaggedBlock returns the first block with the given key, or nil.
func FindTaggedBlock(blocks []*TaggedBlock, key TaggedBlockKey) *TaggedBlock {
	for _, b := range blocks {
		if b.Key == key {
			return b
		}
	}
	return nil
}
