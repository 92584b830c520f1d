package psd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaggedBlockOpaqueRoundTrip(t *testing.T) {
	blocks := []*TaggedBlock{
		{Key: TaggedBlockFillOpacity, Payload: []byte{1, 2, 3}},
	}
	w := NewWriter(VersionPSD)
	WriteTaggedBlocks(w, VersionPSD, blocks, 1)

	got, err := ReadTaggedBlocks(NewReader(w.Bytes(), VersionPSD), VersionPSD, int64(len(w.Bytes())), 1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, blocks[0].Key, got[0].Key)
	assert.Equal(t, blocks[0].Payload, got[0].Payload)
}

func TestTaggedBlockOddPayloadIsPadded(t *testing.T) {
	blocks := []*TaggedBlock{{Key: TaggedBlockFillOpacity, Payload: []byte{1, 2, 3}}}
	w := NewWriter(VersionPSD)
	WriteTaggedBlocks(w, VersionPSD, blocks, 2)
	// signature(4) + key(4) + length(4) + payload(3) + pad(1) == 16
	assert.Len(t, w.Bytes(), 16)

	// The stored length stays unpadded; a reader at the same alignment
	// consumes the pad byte and lands on the next block boundary.
	got, err := ReadTaggedBlocks(NewReader(w.Bytes(), VersionPSD), VersionPSD, int64(len(w.Bytes())), 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []byte{1, 2, 3}, got[0].Payload)
}

func TestTaggedBlockSignaturePreserved(t *testing.T) {
	blocks := []*TaggedBlock{{Signature: "8B64", Key: TaggedBlockKey("zzzz"), Payload: []byte{1, 2}}}
	w := NewWriter(VersionPSD)
	WriteTaggedBlocks(w, VersionPSD, blocks, 2)
	assert.Equal(t, "8B64", string(w.Bytes()[:4]))

	got, err := ReadTaggedBlocks(NewReader(w.Bytes(), VersionPSD), VersionPSD, int64(len(w.Bytes())), 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "8B64", got[0].Signature)
}

func TestSectionDividerRoundTripAllKinds(t *testing.T) {
	kinds := []SectionDividerKind{
		SectionDividerOther, SectionDividerOpenFolder, SectionDividerClosedFolder, SectionDividerBoundingEnd,
	}
	for _, kind := range kinds {
		sd := &SectionDivider{Kind: kind}
		if kind == SectionDividerOpenFolder {
			sd.HasBlendMode = true
			sd.BlendMode = BlendModePassthrough
		}
		blocks := []*TaggedBlock{{Key: TaggedBlockSectionDivider, SectionDivider: sd}}
		w := NewWriter(VersionPSD)
		WriteTaggedBlocks(w, VersionPSD, blocks, 4)

		got, err := ReadTaggedBlocks(NewReader(w.Bytes(), VersionPSD), VersionPSD, int64(len(w.Bytes())), 4)
		require.NoError(t, err)
		require.Len(t, got, 1)
		require.NotNil(t, got[0].SectionDivider)
		assert.Equal(t, kind, got[0].SectionDivider.Kind)
		if kind == SectionDividerOpenFolder {
			assert.Equal(t, BlendModePassthrough, got[0].SectionDivider.BlendMode)
		}
	}
}

func TestTaggedBlockWideLengthOnlyAppliesToPSB(t *testing.T) {
	nested := &LayerInfo{}
	block := &TaggedBlock{Key: TaggedBlockLr16, NestedLayers: nested}

	psd := NewWriter(VersionPSD)
	WriteTaggedBlocks(psd, VersionPSD, []*TaggedBlock{block}, 1)
	// sig(4) + key(4) + 32-bit outer length(4) + nested LayerInfo(32-bit width field(4) + count(2))
	assert.Len(t, psd.Bytes(), 18)

	psb := NewWriter(VersionPSB)
	WriteTaggedBlocks(psb, VersionPSB, []*TaggedBlock{block}, 1)
	// sig(4) + key(4) + 64-bit outer length(8) + nested LayerInfo(64-bit width field(8) + count(2))
	assert.Len(t, psb.Bytes(), 26)
}

// Reading an unrecognized tagged-block key records a warning on the
// reader's File rather than failing the parse.
func TestReadTaggedBlockUnknownKeyWarns(t *testing.T) {
	blocks := []*TaggedBlock{{Key: TaggedBlockKey("zzzz"), Payload: []byte{9, 9}}}
	w := NewWriter(VersionPSD)
	WriteTaggedBlocks(w, VersionPSD, blocks, 2)

	r := NewReader(w.Bytes(), VersionPSD)
	got, err := ReadTaggedBlocks(r, VersionPSD, int64(len(w.Bytes())), 2)
	require.NoError(t, err)
	require.Len(t, got, 1)

	warnings := r.Warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "zzzz")
}

// A section divider carrying an unrecognized blend-mode code falls back
// to Normal and records a warning instead of failing the parse.
func TestReadSectionDividerUnknownBlendModeWarns(t *testing.T) {
	sd := &SectionDivider{Kind: SectionDividerOpenFolder, HasBlendMode: true, BlendMode: BlendMode("????")}
	blocks := []*TaggedBlock{{Key: TaggedBlockSectionDivider, SectionDivider: sd}}
	w := NewWriter(VersionPSD)
	WriteTaggedBlocks(w, VersionPSD, blocks, 4)

	r := NewReader(w.Bytes(), VersionPSD)
	got, err := ReadTaggedBlocks(r, VersionPSD, int64(len(w.Bytes())), 4)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, BlendModeNormal, got[0].SectionDivider.BlendMode)
	assert.Len(t, r.Warnings(), 1)
}

func TestFindTaggedBlock(t *testing.T) {
	blocks := []*TaggedBlock{
		{Key: TaggedBlockLayerID, Payload: []byte{0, 0, 0, 1}},
		{Key: TaggedBlockUnicodeName, Payload: []byte{0, 0, 0, 0}},
	}
	found := FindTaggedBlock(blocks, TaggedBlockUnicodeName)
	require.NotNil(t, found)
	assert.Equal(t, TaggedBlockUnicodeName, found.Key)
	assert.Nil(t, FindTaggedBlock(blocks, TaggedBlockFillOpacity))
}
