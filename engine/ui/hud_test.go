package ui

import (
	"testing"

	"github.com/spaghettifunk/vesta/engine/assets/loaders"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFont() *loaders.FontData {
	return &loaders.FontData{
		Face:        "test",
		Size:        8,
		LineHeight:  10,
		AtlasWidth:  16,
		AtlasHeight: 8,
		Glyphs: map[rune]loaders.FontGlyph{
			'A': {X: 0, Y: 0, Width: 8, Height: 8, XAdvance: 8},
			'V': {X: 8, Y: 0, Width: 8, Height: 8, XOffset: 1, XAdvance: 8},
			' ': {XAdvance: 4},
			'?': {X: 0, Y: 0, Width: 4, Height: 4, XAdvance: 5},
		},
		Kernings: map[loaders.KerningPair]int{
			{First: 'A', Second: 'V'}: -2,
		},
		Atlas: metadata.TextureData{Width: 16, Height: 8, Pixels: make([]uint8, 16*8*4)},
	}
}

func TestLayoutQuads(t *testing.T) {
	h := NewHUD(testFont())
	text := h.AddText("AV", 10, 20, [4]uint8{255, 255, 255, 255})

	mesh := h.Layout(text)
	require.Len(t, mesh.Vertices, 8)
	require.Len(t, mesh.Indices, 12)
	assert.Equal(t, h.AtlasID(), mesh.Texture)

	// first glyph spans the left half of the atlas
	assert.Equal(t, [2]float32{10, 20}, mesh.Vertices[0].Position)
	assert.Equal(t, [2]float32{18, 28}, mesh.Vertices[1].Position)
	assert.Equal(t, [2]float32{0, 0}, mesh.Vertices[0].UV)
	assert.Equal(t, [2]float32{0.5, 1}, mesh.Vertices[1].UV)

	// advance 8, kerning -2, x offset 1
	assert.Equal(t, [2]float32{17, 20}, mesh.Vertices[4].Position)
	assert.Equal(t, [2]float32{0.5, 0}, mesh.Vertices[4].UV)

	assert.Equal(t, []uint32{2, 1, 0, 3, 0, 1, 6, 5, 4, 7, 4, 5}, mesh.Indices)
	for _, v := range mesh.Vertices {
		assert.Equal(t, [4]uint8{255, 255, 255, 255}, v.Color)
	}
}

func TestLayoutControlCharacters(t *testing.T) {
	h := NewHUD(testFont())

	mesh := h.Layout(h.AddText("A\nA", 0, 0, [4]uint8{}))
	require.Len(t, mesh.Vertices, 8)
	assert.Equal(t, [2]float32{0, 10}, mesh.Vertices[4].Position, "newline returns to x and moves one line down")

	mesh = h.Layout(h.AddText("\tA", 0, 0, [4]uint8{}))
	require.Len(t, mesh.Vertices, 4)
	assert.Equal(t, float32(16), mesh.Vertices[0].Position[0], "tab is four spaces")

	mesh = h.Layout(h.AddText("Z", 0, 0, [4]uint8{}))
	require.Len(t, mesh.Vertices, 4, "unknown runes use the '?' glyph")
	assert.Equal(t, [2]float32{4, 4}, mesh.Vertices[1].Position)
}

func TestFrameUploadsAtlasOnce(t *testing.T) {
	h := NewHUD(testFont())
	h.AddText("A", 0, 0, [4]uint8{})
	hidden := h.AddText("V", 0, 0, [4]uint8{})
	hidden.Hidden = true
	h.AddText("", 0, 0, [4]uint8{})

	primitives, delta := h.Frame(640, 480)
	require.Len(t, primitives, 1)
	assert.Equal(t, metadata.Rect{MaxX: 640, MaxY: 480}, primitives[0].Clip)
	require.Len(t, delta.Set, 1)
	assert.Equal(t, h.AtlasID(), delta.Set[0].ID)
	assert.NoError(t, delta.Set[0].Image.Validate())

	_, delta = h.Frame(640, 480)
	assert.Empty(t, delta.Set)

	release := h.Release()
	assert.Equal(t, []metadata.TextureID{h.AtlasID()}, release.Free)
	_, delta = h.Frame(640, 480)
	assert.Len(t, delta.Set, 1, "released atlas is uploaded again")

	assert.True(t, h.RemoveText(hidden))
	assert.False(t, h.RemoveText(hidden))
}
