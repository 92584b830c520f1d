package psd

import "encoding/binary"

// groupFrame accumulates the children of a group while its flat record
// range is being walked bottom-to-top.
type groupFrame[T Sample] struct {
	children []*Layer[T]
}

// BuildLayerTree reconstructs the document-model layer tree from a flat
// "layer info" record stream. The stream is stored bottom-of-
// stack-first; a 'lsct' bounding-end marker (kind 3) opens a group frame
// and an open/closed-folder marker (kind 1/2) closes the most recently
// opened frame, turning it into a group layer. The divider that
// closes a frame IS the group's own layer record: the group's name,
// rect, opacity, clipping and flags are taken from that closing record;
// mask data on that record is not attached to the group.
func BuildLayerTree[T Sample](li *LayerInfo, depth BitDepth) ([]*Layer[T], error) {
	var stack []*groupFrame[T]
	var root []*Layer[T]

	appendLayer := func(l *Layer[T]) {
		if len(stack) == 0 {
			root = append(root, l)
			return
		}
		top := stack[len(stack)-1]
		top.children = append(top.children, l)
	}

	for _, lwc := range li.Layers {
		rec := lwc.Record
		sdBlock := FindTaggedBlock(rec.TaggedBlocks, TaggedBlockSectionDivider)

		if sdBlock != nil && sdBlock.SectionDivider != nil && sdBlock.SectionDivider.Kind == SectionDividerBoundingEnd {
			stack = append(stack, &groupFrame[T]{})
			continue
		}

		if sdBlock != nil && sdBlock.SectionDivider != nil &&
			(sdBlock.SectionDivider.Kind == SectionDividerOpenFolder || sdBlock.SectionDivider.Kind == SectionDividerClosedFolder) {
			if len(stack) == 0 {
				return nil, MalformedTreeError("group header '" + rec.Name + "' has no matching boundary marker")
			}
			frame := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			group := &Layer[T]{
				Name:         rec.Name,
				Kind:         LayerKindGroup,
				Rect:         rec.Rect,
				Opacity:      rec.Opacity,
				Clipping:     rec.Clipping,
				Flags:        LayerFlag(rec.Flags),
				TaggedBlocks: rec.TaggedBlocks,
				Children:     reverseLayers(frame.children),
			}
			sd := sdBlock.SectionDivider
			if sd.HasBlendMode {
				group.BlendMode = sd.BlendMode
			} else {
				group.BlendMode = rec.BlendMode
			}
			group.PassThrough = group.BlendMode == BlendModePassthrough
			group.Collapsed = sd.Kind == SectionDividerClosedFolder
			assignLayerID(group, rec.TaggedBlocks)

			appendLayer(group)
			continue
		}

		appendLayer(buildImageLayer[T](lwc, depth))
	}

	if len(stack) != 0 {
		return nil, MalformedTreeError("unterminated group boundary marker")
	}

	return reverseLayers(root), nil
}

func reverseLayers[T Sample](layers []*Layer[T]) []*Layer[T] {
	out := make([]*Layer[T], len(layers))
	for i, l := range layers {
		out[len(layers)-1-i] = l
	}
	return out
}

// buildImageLayer decodes one non-divider layer record into an image
// layer, splitting off any mask channel into Mask.
func buildImageLayer[T Sample](lwc *LayerWithChannels, depth BitDepth) *Layer[T] {
	rec := lwc.Record
	width := int(rec.Rect.Right - rec.Rect.Left)
	height := int(rec.Rect.Bottom - rec.Rect.Top)

	layer := &Layer[T]{
		Name:         rec.Name,
		Kind:         LayerKindImage,
		Rect:         rec.Rect,
		BlendMode:    rec.BlendMode,
		Opacity:      rec.Opacity,
		Clipping:     rec.Clipping,
		Flags:        LayerFlag(rec.Flags),
		TaggedBlocks: rec.TaggedBlocks,
		Channels:     make(map[ChannelID]*ImageChannel[T], len(rec.Channels)),
	}

	for i, ch := range rec.Channels {
		if i >= len(lwc.Channels) || lwc.Channels[i] == nil {
			continue
		}
		raw := lwc.Channels[i]

		if ch.ID == ChannelUserMask || ch.ID == ChannelRealUserMask {
			mask := &LayerMask[T]{Rect: rec.Rect, Samples: decodeSamples[T](raw.Data)}
			if rec.Mask != nil {
				mask.Rect = rec.Mask.Rect
				mask.Flags = rec.Mask.Flags
				mask.DefaultColor = rec.Mask.DefaultColor
				mask.ParamFlags = rec.Mask.ParamFlags
				mask.UserDensity = rec.Mask.UserDensity
				mask.UserFeather = rec.Mask.UserFeather
				mask.VectorDensity = rec.Mask.VectorDensity
				mask.VectorFeather = rec.Mask.VectorFeather
			}
			layer.Mask = mask
			continue
		}

		layer.Channels[ch.ID] = &ImageChannel[T]{
			ID:          ch.ID,
			Width:       width,
			Height:      height,
			Compression: raw.Compression,
			Samples:     decodeSamples[T](raw.Data),
		}
	}

	assignLayerID(layer, rec.TaggedBlocks)
	return layer
}

// assignLayerID reads the 'lyid' tagged block, if present, into the
// layer's stable numeric identity.
func assignLayerID[T Sample](layer *Layer[T], blocks []*TaggedBlock) {
	b := FindTaggedBlock(blocks, TaggedBlockLayerID)
	if b == nil || len(b.Payload) < 4 {
		return
	}
	layer.ID = int32(binary.BigEndian.Uint32(b.Payload))
	layer.HasID = true
}
