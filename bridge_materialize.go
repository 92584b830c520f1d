package psd

import (
	"encoding/binary"
	"sort"
)

const groupBoundaryName = "</Layer group>"

// FlattenLayerTree is the inverse of BuildLayerTree: it walks the
// document-model tree in file storage order (bottom of the stack
// first) and emits the flat layer-record stream a file model needs,
// re-synthesizing the bounding-end/open-folder divider pair around each
// group. preference is the document's
// write-only compression preference, applied uniformly to
// every emitted channel.
func FlattenLayerTree[T Sample](layers []*Layer[T], preference Compression) *LayerInfo {
	if preference == CompressionZIP || preference == CompressionZIPPrediction {
		// Write-side ZIP encode is not implemented; downgrade
		// silently to RLE.
		preference = CompressionRLE
	}
	var out []*LayerWithChannels
	for i := len(layers) - 1; i >= 0; i-- {
		out = append(out, flattenLayer(layers[i], preference)...)
	}
	return &LayerInfo{Layers: out}
}

func flattenLayer[T Sample](l *Layer[T], preference Compression) []*LayerWithChannels {
	if l.Kind == LayerKindImage {
		return []*LayerWithChannels{buildLayerWithChannels(l, preference)}
	}

	var out []*LayerWithChannels
	out = append(out, boundingEndRecord[T](l))
	for i := len(l.Children) - 1; i >= 0; i-- {
		out = append(out, flattenLayer(l.Children[i], preference)...)
	}
	out = append(out, groupHeaderRecord(l))
	return out
}

// boundingEndRecord synthesizes the zero-area marker layer that opens a
// group's record range when read bottom-to-top.
func boundingEndRecord[T Sample](group *Layer[T]) *LayerWithChannels {
	rec := &LayerRecord{
		Rect:      Rect{},
		BlendMode: BlendModeNormal,
		Opacity:   255,
		Name:      groupBoundaryName,
		TaggedBlocks: []*TaggedBlock{{
			Key:            TaggedBlockSectionDivider,
			SectionDivider: &SectionDivider{Kind: SectionDividerBoundingEnd},
		}},
	}
	return &LayerWithChannels{Record: rec}
}

// groupHeaderRecord builds the layer record that closes a group frame:
// it carries the group's own name/rect/opacity, and an 'lsct' block
// whose kind reflects the group's folded state. The divider embeds a
// blend mode only for Passthrough, whose true mode cannot live on the
// record itself.
func groupHeaderRecord[T Sample](group *Layer[T]) *LayerWithChannels {
	storedMode := group.BlendMode
	if group.PassThrough {
		storedMode = BlendModeNormal
	}

	rec := &LayerRecord{
		Rect:      group.Rect,
		BlendMode: storedMode,
		Opacity:   group.Opacity,
		Clipping:  group.Clipping,
		Flags:     uint8(group.Flags),
		Name:      group.Name,
	}

	blocks := copyTaggedBlocks(group.TaggedBlocks)
	blocks = removeTaggedBlock(blocks, TaggedBlockSectionDivider)
	blocks = removeTaggedBlock(blocks, TaggedBlockUnicodeName)
	blocks = removeTaggedBlock(blocks, TaggedBlockLayerID)
	kind := SectionDividerOpenFolder
	if group.Collapsed {
		kind = SectionDividerClosedFolder
	}
	sd := &SectionDivider{Kind: kind}
	if group.PassThrough {
		// The record above says Normal; the true mode rides here.
		sd.HasBlendMode = true
		sd.BlendMode = BlendModePassthrough
	}
	blocks = append(blocks, &TaggedBlock{Key: TaggedBlockSectionDivider, SectionDivider: sd})
	blocks = append(blocks, encodeUnicodeNameTaggedBlock(group.Name))
	if group.HasID {
		blocks = append(blocks, encodeLayerIDTaggedBlock(group.ID))
	}
	rec.TaggedBlocks = blocks

	return &LayerWithChannels{Record: rec}
}

// buildLayerWithChannels encodes one image layer back into its file
// record and raw channel payloads, in a stable channel order (mask
// first if present, then color/alpha channels sorted by id). Every
// channel is encoded at the document's compression preference; a
// per-channel Compression value is informational only, carried over
// from parse, and never drives emission.
func buildLayerWithChannels[T Sample](l *Layer[T], preference Compression) *LayerWithChannels {
	rec := &LayerRecord{
		Rect:      l.Rect,
		BlendMode: l.BlendMode,
		Opacity:   l.Opacity,
		Clipping:  l.Clipping,
		Flags:     uint8(l.Flags),
		Name:      l.Name,
	}

	var infos []ChannelInfo
	var channels []*RawChannelData

	if l.Mask != nil {
		infos = append(infos, ChannelInfo{ID: ChannelUserMask})
		channels = append(channels, &RawChannelData{
			Compression: preference,
			Data:        encodeSamples(l.Mask.Samples),
		})
		rec.Mask = &MaskData{
			Rect:          l.Mask.Rect,
			DefaultColor:  l.Mask.DefaultColor,
			Flags:         l.Mask.Flags,
			ParamFlags:    l.Mask.ParamFlags,
			UserDensity:   l.Mask.UserDensity,
			UserFeather:   l.Mask.UserFeather,
			VectorDensity: l.Mask.VectorDensity,
			VectorFeather: l.Mask.VectorFeather,
		}
	}

	ids := make([]ChannelID, 0, len(l.Channels))
	for id := range l.Channels {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		ch := l.Channels[id]
		infos = append(infos, ChannelInfo{ID: id})
		channels = append(channels, &RawChannelData{
			Compression: preference,
			Data:        encodeSamples(ch.Samples),
		})
	}
	rec.Channels = infos

	blocks := copyTaggedBlocks(l.TaggedBlocks)
	blocks = removeTaggedBlock(blocks, TaggedBlockUnicodeName)
	blocks = removeTaggedBlock(blocks, TaggedBlockLayerID)
	blocks = append(blocks, encodeUnicodeNameTaggedBlock(l.Name))
	if l.HasID {
		blocks = append(blocks, encodeLayerIDTaggedBlock(l.ID))
	}
	rec.TaggedBlocks = blocks

	return &LayerWithChannels{Record: rec, Channels: channels}
}

func copyTaggedBlocks(blocks []*TaggedBlock) []*TaggedBlock {
	out := make([]*TaggedBlock, len(blocks))
	copy(out, blocks)
	return out
}

func removeTaggedBlock(blocks []*TaggedBlock, key TaggedBlockKey) []*TaggedBlock {
	out := blocks[:0]
	for _, b := range blocks {
		if b.Key != key {
			out = append(out, b)
		}
	}
	return out
}

func encodeUnicodeNameTaggedBlock(name string) *TaggedBlock {
	return &TaggedBlock{Key: TaggedBlockUnicodeName, Payload: encodeUnicodeNameBlock(name)}
}

func encodeLayerIDTaggedBlock(id int32) *TaggedBlock {
	payload := make([]byte, 4)
	binary.BigEndian.PutUint32(payload, uint32(id))
	return &TaggedBlock{Key: TaggedBlockLayerID, Payload: payload}
}
