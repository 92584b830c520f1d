package psd

import (
	"os"

	"github.com/pkg/errors"
)

// Document is the tagged-union API boundary over the three sample-typed
// instantiations of LayeredFile. Exactly one of U8/U16/F32 is non-nil,
// selected by the header's bit depth.
type Document struct {
	Depth BitDepth
	U8    *LayeredFile[uint8]
	U16   *LayeredFile[uint16]
	F32   *LayeredFile[float32]
}

// Read parses a complete PSD/PSB document from bytes already held in
// memory. On failure the returned error wraps the underlying cause
// with the byte offset where it was detected; the document is never
// partially populated.
func Read(data []byte) (*Document, error) {
	f := NewReader(data, VersionPSD)

	header, err := ReadHeader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "header at offset %d", f.Tell())
	}
	f.version = header.Version

	switch header.Depth {
	case BitDepth16:
		doc, err := parseTyped[uint16](f, header)
		if err != nil {
			return nil, err
		}
		return &Document{Depth: header.Depth, U16: doc}, nil
	case BitDepth32:
		doc, err := parseTyped[float32](f, header)
		if err != nil {
			return nil, err
		}
		return &Document{Depth: header.Depth, F32: doc}, nil
	default:
		doc, err := parseTyped[uint8](f, header)
		if err != nil {
			return nil, err
		}
		return &Document{Depth: header.Depth, U8: doc}, nil
	}
}

// parseTyped runs the C4+C5+C6+C7 -> C9 pipeline once T's
// identity is known from the header's bit depth.
func parseTyped[T Sample](f *File, header *Header) (*LayeredFile[T], error) {
	colorModeData, err := ReadColorModeData(f)
	if err != nil {
		return nil, errors.Wrapf(err, "color mode data at offset %d", f.Tell())
	}

	resources, err := ReadImageResources(f)
	if err != nil {
		return nil, errors.Wrapf(err, "image resources at offset %d", f.Tell())
	}

	lm, err := ReadLayerAndMaskInfo(f, header.Version, header)
	if err != nil {
		return nil, errors.Wrapf(err, "layer and mask information at offset %d", f.Tell())
	}

	layerInfo, depth := effectiveLayerInfo[T](header, lm)
	layers, err := BuildLayerTree[T](layerInfo, depth)
	if err != nil {
		return nil, errors.Wrapf(err, "layer tree at offset %d", f.Tell())
	}

	merged, err := readMergedImage[T](f, header)
	if err != nil {
		return nil, errors.Wrapf(err, "merged image data at offset %d", f.Tell())
	}

	return &LayeredFile[T]{
		Header:           header,
		DPI:              dpiFromResources(resources),
		ColorModeData:    colorModeData,
		Resources:        resources,
		ICCProfile:       iccProfileFromResources(resources),
		Layers:           layers,
		Merged:           merged,
		GlobalMask:       lm.GlobalMask,
		AdditionalBlocks: lm.AdditionalBlocks,
		Warnings:         f.Warnings(),
	}, nil
}

// effectiveLayerInfo resolves where a document's layer data actually
// lives: a 16-/32-bit document stores an empty top-level layer info
// and carries the real layer data nested inside a Lr16/Lr32 tagged
// block in the additional-layer-info, so an empty top level triggers a
// descent into those blocks.
func effectiveLayerInfo[T Sample](header *Header, lm *LayerAndMaskInfo) (*LayerInfo, BitDepth) {
	if len(lm.LayerInfo.Layers) > 0 {
		return lm.LayerInfo, header.Depth
	}

	var key TaggedBlockKey
	switch header.Depth {
	case BitDepth16:
		key = TaggedBlockLr16
	case BitDepth32:
		key = TaggedBlockLr32
	default:
		return lm.LayerInfo, header.Depth
	}

	if block := FindTaggedBlock(lm.AdditionalBlocks, key); block != nil && block.NestedLayers != nil {
		return block.NestedLayers, header.Depth
	}
	return lm.LayerInfo, header.Depth
}

// readMergedImage parses the terminal composite-image section: a
// single compression marker shared by all of the header's channels,
// followed by their payloads in channel order.
func readMergedImage[T Sample](f *File, header *Header) (map[ChannelID]*ImageChannel[T], error) {
	if f.Tell() >= f.Size() {
		return nil, nil
	}
	rawCompression, err := f.ReadUint16()
	if err != nil {
		return nil, err
	}
	compression := Compression(rawCompression)
	sampleSize := bytesPerSample(header.Depth)
	width, height := int(header.Width), int(header.Height)

	// Raw and RLE are supported for both read and write;
	// ZIP/ZIP-prediction are not byte-delimited in the composite section
	// (there is no trailing section after it to bound the deflate stream
	// against) and are left unsupported here; in practice Photoshop only
	// ZIP-compresses per-layer channel data, never the terminal
	// composite.
	channels := int(header.Channels)
	datas := make([][]byte, channels)
	switch compression {
	case CompressionRaw:
		for i := range datas {
			data := make([]byte, width*height*sampleSize)
			if err := f.Read(data); err != nil {
				return nil, errors.Wrapf(err, "merged channel %d", i)
			}
			datas[i] = data
		}
	case CompressionRLE:
		// The composite's RLE layout differs from per-layer channels:
		// the scanline byte-count tables for every channel come first,
		// then all channels' compressed scanlines.
		counts, err := readRLEScanlineCounts(f, header.Version, height*channels)
		if err != nil {
			return nil, errors.Wrap(err, "merged scanline counts")
		}
		for i := range datas {
			data, err := readRLEScanlines(f, counts[i*height:(i+1)*height], width*sampleSize)
			if err != nil {
				return nil, errors.Wrapf(err, "merged channel %d", i)
			}
			datas[i] = data
		}
	default:
		return nil, CompressionError("merged image: unsupported composite compression " + compression.String())
	}

	out := make(map[ChannelID]*ImageChannel[T], channels)
	for i, data := range datas {
		id := channelIDForIndex(header.Mode, int16(i))
		out[id] = &ImageChannel[T]{
			ID:          id,
			Width:       width,
			Height:      height,
			Compression: compression,
			Samples:     decodeSamples[T](data),
		}
	}
	return out, nil
}

// ReadFile parses the PSD/PSB document at path.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "psd: read file")
	}
	doc, err := Read(data)
	if err != nil {
		return nil, errors.Wrapf(err, "psd: parse %s", path)
	}
	return doc, nil
}

// WriteFile materializes doc and writes it to path. Unless overwrite is
// set, an existing file at path is an error rather than silently
// replaced.
func WriteFile(path string, doc *Document, overwrite bool) error {
	data, err := Write(doc)
	if err != nil {
		return err
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return errors.Wrap(err, "psd: write file")
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return errors.Wrap(err, "psd: write file")
	}
	return f.Close()
}

// Write materializes a Document back into bytes. Exactly one
// tagged-union arm must be populated.
func Write(doc *Document) ([]byte, error) {
	switch {
	case doc.U8 != nil:
		return writeTyped[uint8](doc.U8)
	case doc.U16 != nil:
		return writeTyped[uint16](doc.U16)
	case doc.F32 != nil:
		return writeTyped[float32](doc.F32)
	default:
		return nil, errors.New("psd: empty document, no sample-typed arm populated")
	}
}

func writeTyped[T Sample](doc *LayeredFile[T]) ([]byte, error) {
	header := doc.Header
	if header == nil {
		return nil, errors.New("psd: document has no header")
	}
	header.Depth = sampleDepth[T]()

	f := NewWriter(header.Version)

	if err := WriteHeader(f, header); err != nil {
		return nil, errors.Wrap(err, "header")
	}

	WriteColorModeData(f, doc.ColorModeData)

	resources := doc.Resources
	resources = setDPIOnResources(resources, doc.DPI)
	resources = setICCProfileOnResources(resources, doc.ICCProfile)
	WriteImageResources(f, resources)

	layerInfo := FlattenLayerTree[T](doc.Layers, doc.Compression)
	lm := &LayerAndMaskInfo{
		LayerInfo:        wrapNestedLayerInfo(header.Depth, layerInfo),
		GlobalMask:       doc.GlobalMask,
		AdditionalBlocks: appendNestedLayerInfoBlock(header.Depth, doc.AdditionalBlocks, layerInfo),
	}
	WriteLayerAndMaskInfo(f, header.Version, header.Depth, lm)

	if err := writeMergedImage[T](f, header, doc); err != nil {
		return nil, errors.Wrap(err, "merged image data")
	}

	return f.Bytes(), nil
}

// wrapNestedLayerInfo returns the top-level layer info to emit: empty for
// 16-/32-bit documents, PSD and PSB alike (whose real data is nested in a
// Lr16/Lr32 tagged block, mirroring how it was read back in), the real
// one otherwise.
func wrapNestedLayerInfo(depth BitDepth, layerInfo *LayerInfo) *LayerInfo {
	if depth == BitDepth16 || depth == BitDepth32 {
		return &LayerInfo{}
	}
	return layerInfo
}

// appendNestedLayerInfoBlock adds the Lr16/Lr32 tagged block carrying the
// real layer data for 16-/32-bit documents, which keep their top-level
// layer info empty.
func appendNestedLayerInfoBlock(depth BitDepth, blocks []*TaggedBlock, layerInfo *LayerInfo) []*TaggedBlock {
	var key TaggedBlockKey
	switch depth {
	case BitDepth16:
		key = TaggedBlockLr16
	case BitDepth32:
		key = TaggedBlockLr32
	default:
		return blocks
	}
	out := make([]*TaggedBlock, 0, len(blocks)+1)
	for _, b := range blocks {
		if b.Key != key {
			out = append(out, b)
		}
	}
	out = append(out, &TaggedBlock{Key: key, NestedLayers: layerInfo})
	return out
}

// writeMergedImage emits the terminal composite-image section. When the
// document carries no merged image (the common case for a document built
// programmatically rather than parsed), a blank canvas is synthesized so
// the file remains well-formed; the merged-image section is not
// optional.
func writeMergedImage[T Sample](f *File, header *Header, doc *LayeredFile[T]) error {
	preference := doc.Compression
	if preference == CompressionZIP || preference == CompressionZIPPrediction {
		preference = CompressionRLE
	}

	width, height := int(header.Width), int(header.Height)
	sampleSize := bytesPerSample(header.Depth)

	f.WriteUint16(uint16(preference))

	channels := int(header.Channels)
	datas := make([][]byte, channels)
	for i := 0; i < channels; i++ {
		id := channelIDForIndex(header.Mode, int16(i))
		if ch, ok := doc.Merged[id]; ok {
			datas[i] = encodeSamples(ch.Samples)
		} else {
			datas[i] = make([]byte, width*height*sampleSize)
		}
	}

	if preference == CompressionRaw {
		for _, data := range datas {
			f.Write(data)
		}
		return nil
	}

	// RLE composite layout: every channel's scanline byte-count table
	// first, then every channel's compressed scanlines.
	scanlines := make([][][]byte, channels)
	for i, data := range datas {
		s, err := encodeRLEScanlines(header.Version, data, width, height, sampleSize)
		if err != nil {
			return errors.Wrapf(err, "merged channel %d", i)
		}
		scanlines[i] = s
	}
	for _, s := range scanlines {
		writeRLEScanlineCounts(f, header.Version, s)
	}
	for _, s := range scanlines {
		for _, row := range s {
			f.Write(row)
		}
	}
	return nil
}
