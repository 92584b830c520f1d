package psd

import "github.com/pkg/errors"

// LayerWithChannels pairs a layer record with its decoded channel
// payloads, in the same order as the record's channel-info table.
type LayerWithChannels struct {
	Record   *LayerRecord
	Channels []*RawChannelData
}

// LayerInfo is the flat "layer info" list: the file-order sequence of
// layer records plus their image data. It underlies both
// the top-level layer-and-mask section and the nested Lr16/Lr32 tagged
// blocks. MergedAlphaIsPresent mirrors the sign trick on the
// layer-count field: a negative count means channel 0 of the first
// layer is the document's merged-result alpha, not a real layer
// channel.
type LayerInfo struct {
	MergedAlphaIsPresent bool
	Layers               []*LayerWithChannels
}

// readLayerInfo parses a "layer info" section. depth selects the
// per-sample width used to decode channel image data: the document's
// own depth for the top-level section, or a fixed 16/32 for the nested
// Lr16/Lr32 variants that carry a 16-/32-bit document's layer data.
func readLayerInfo(f *File, version Version, depth BitDepth) (*LayerInfo, error) {
	length, err := f.ReadWidth(version)
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return &LayerInfo{}, nil
	}
	end := f.Tell() + int64(length)

	rawCount, err := f.ReadInt16()
	if err != nil {
		return nil, err
	}
	mergedAlpha := rawCount < 0
	count := int(rawCount)
	if count < 0 {
		count = -count
	}

	records := make([]*LayerRecord, count)
	for i := range records {
		rec, err := ReadLayerRecord(f, version)
		if err != nil {
			return nil, errors.Wrapf(err, "layer record %d", i)
		}
		records[i] = rec
	}

	layers := make([]*LayerWithChannels, count)
	for i, rec := range records {
		width := int(rec.Rect.Right - rec.Rect.Left)
		height := int(rec.Rect.Bottom - rec.Rect.Top)
		channels := make([]*RawChannelData, len(rec.Channels))
		for j, ch := range rec.Channels {
			cw, chh := width, height
			if ch.ID == ChannelUserMask || ch.ID == ChannelRealUserMask {
				// Mask channels carry their own (typically smaller)
				// extent; actual pixels are sized from the layer's
				// mask rect when present, else fall back to the
				// layer rect.
				if rec.Mask != nil {
					cw = int(rec.Mask.Rect.Right - rec.Mask.Rect.Left)
					chh = int(rec.Mask.Rect.Bottom - rec.Mask.Rect.Top)
				}
			}
			cd, err := ReadChannelImageData(f, version, int(ch.Length), cw, chh, depth)
			if err != nil {
				return nil, errors.Wrapf(err, "layer %d channel %d", i, j)
			}
			channels[j] = cd
		}
		layers[i] = &LayerWithChannels{Record: rec, Channels: channels}
	}

	if f.Tell() != end {
		if err := f.Seek(end); err != nil {
			return nil, err
		}
	}

	return &LayerInfo{MergedAlphaIsPresent: mergedAlpha, Layers: layers}, nil
}

// writeLayerInfo emits a "layer info" section. Channel payloads are
// encoded up front so each layer record's channel-info length table can
// be filled in before the record itself is written.
func writeLayerInfo(f *File, version Version, depth BitDepth, li *LayerInfo) {
	lenOffset := f.Tell()
	f.WriteWidth(version, 0)
	start := f.Tell()

	rawCount := int16(len(li.Layers))
	if li.MergedAlphaIsPresent {
		rawCount = -rawCount
	}
	f.WriteInt16(rawCount)

	sampleSize := bytesPerSample(depth)
	encoded := make([][][]byte, len(li.Layers))
	for i, lwc := range li.Layers {
		width := int(lwc.Record.Rect.Right - lwc.Record.Rect.Left)
		height := int(lwc.Record.Rect.Bottom - lwc.Record.Rect.Top)
		encoded[i] = make([][]byte, len(lwc.Channels))
		for j, ch := range lwc.Channels {
			cw, chh := width, height
			if lwc.Record.Channels[j].ID == ChannelUserMask || lwc.Record.Channels[j].ID == ChannelRealUserMask {
				if lwc.Record.Mask != nil {
					cw = int(lwc.Record.Mask.Rect.Right - lwc.Record.Mask.Rect.Left)
					chh = int(lwc.Record.Mask.Rect.Bottom - lwc.Record.Mask.Rect.Top)
				}
			}
			buf := EncodeChannelImageData(version, cw, chh, sampleSize, ch.Data, ch.Compression)
			encoded[i][j] = buf
			lwc.Record.Channels[j].Length = uint64(len(buf))
		}
	}

	for _, lwc := range li.Layers {
		WriteLayerRecord(f, version, lwc.Record)
	}
	for i := range li.Layers {
		for j := range encoded[i] {
			f.Write(encoded[i][j])
		}
	}

	end := f.Tell()
	patchWidthField(f, version, lenOffset, uint64(end-start))
}

// patchWidthField rewrites a previously-reserved version-dispatched
// length placeholder.
func patchWidthField(f *File, version Version, offset int64, length uint64) {
	w := NewWriter(version)
	w.WriteWidth(version, length)
	patch := w.Bytes()
	f.mu.Lock()
	copy(f.store.data[offset:offset+int64(len(patch))], patch)
	f.mu.Unlock()
}

// GlobalLayerMaskInfo is the document-wide layer mask overlay record
// that follows the layer info list. Photoshop writes it with a
// fixed shape regardless of whether any layer actually has a mask; a
// zero-length record means it is absent.
type GlobalLayerMaskInfo struct {
	Present           bool
	OverlayColorSpace uint16
	ColorComponents   [4]uint16
	Opacity           uint16
	Kind              uint8
}

func readGlobalLayerMaskInfo(f *File, end int64) (*GlobalLayerMaskInfo, error) {
	if f.Tell()+4 > end {
		return &GlobalLayerMaskInfo{}, nil
	}
	length, err := f.ReadUint32()
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return &GlobalLayerMaskInfo{}, nil
	}
	recEnd := f.Tell() + int64(length)

	g := &GlobalLayerMaskInfo{Present: true}
	g.OverlayColorSpace, err = f.ReadUint16()
	if err != nil {
		return nil, err
	}
	for i := range g.ColorComponents {
		g.ColorComponents[i], err = f.ReadUint16()
		if err != nil {
			return nil, err
		}
	}
	g.Opacity, err = f.ReadUint16()
	if err != nil {
		return nil, err
	}
	g.Kind, err = f.ReadUint8()
	if err != nil {
		return nil, err
	}

	if f.Tell() != recEnd {
		if err := f.Seek(recEnd); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func writeGlobalLayerMaskInfo(f *File, g *GlobalLayerMaskInfo) {
	if g == nil || !g.Present {
		f.WriteUint32(0)
		return
	}
	lenOffset := f.Tell()
	f.WriteUint32(0)
	start := f.Tell()

	f.WriteUint16(g.OverlayColorSpace)
	for _, c := range g.ColorComponents {
		f.WriteUint16(c)
	}
	f.WriteUint16(g.Opacity)
	f.WriteUint8(g.Kind)

	end := f.Tell()
	patchLengthField(f, lenOffset, uint64(end-start), false)
}

// LayerAndMaskInfo is the full "layer and mask information" container
// that sits between the image resources and the composite image data.
// Its own length field is version-dispatched like every other
// top-level section.
type LayerAndMaskInfo struct {
	LayerInfo        *LayerInfo
	GlobalMask       *GlobalLayerMaskInfo
	AdditionalBlocks []*TaggedBlock
}

// ReadLayerAndMaskInfo parses the full layer-and-mask information
// section at the current offset.
func ReadLayerAndMaskInfo(f *File, version Version, header *Header) (*LayerAndMaskInfo, error) {
	length, err := f.ReadWidth(version)
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return &LayerAndMaskInfo{LayerInfo: &LayerInfo{}}, nil
	}
	end := f.Tell() + int64(length)

	layerInfo, err := readLayerInfo(f, version, header.Depth)
	if err != nil {
		return nil, errors.Wrap(err, "layer info")
	}

	globalMask, err := readGlobalLayerMaskInfo(f, end)
	if err != nil {
		return nil, errors.Wrap(err, "global layer mask info")
	}

	additional, err := ReadTaggedBlocks(f, version, end, 1)
	if err != nil {
		return nil, errors.Wrap(err, "layer-and-mask additional info")
	}

	if f.Tell() != end {
		if err := f.Seek(end); err != nil {
			return nil, err
		}
	}

	return &LayerAndMaskInfo{
		LayerInfo:        layerInfo,
		GlobalMask:       globalMask,
		AdditionalBlocks: additional,
	}, nil
}

// WriteLayerAndMaskInfo emits the full layer-and-mask information section.
func WriteLayerAndMaskInfo(f *File, version Version, depth BitDepth, info *LayerAndMaskInfo) {
	lenOffset := f.Tell()
	f.WriteWidth(version, 0)
	start := f.Tell()

	writeLayerInfo(f, version, depth, info.LayerInfo)
	writeGlobalLayerMaskInfo(f, info.GlobalMask)
	WriteTaggedBlocks(f, version, info.AdditionalBlocks, 1)

	end := f.Tell()
	patchWidthField(f, version, lenOffset, uint64(end-start))
}
