// Package ui lays out bitmap text into overlay paint primitives.
package ui

import (
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/spaghettifunk/vesta/engine/assets/loaders"
	"github.com/spaghettifunk/vesta/engine/core"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
)

const (
	vertsPerQuad   = 4
	indicesPerQuad = 6
	tabSpaces      = 4
)

// Text is one block of HUD text anchored at its top-left corner in pixels.
type Text struct {
	ID      uuid.UUID
	Content string
	X, Y    float32
	Color   [4]uint8
	Hidden  bool
}

// HUD owns a bitmap font atlas and the texts drawn with it. Frame produces
// the overlay input for one frame.
type HUD struct {
	font    *loaders.FontData
	atlas   metadata.TextureID
	pending bool
	texts   []*Text
}

func NewHUD(font *loaders.FontData) *HUD {
	return &HUD{
		font:    font,
		atlas:   uuid.New(),
		pending: true,
	}
}

// AtlasID is the overlay texture the glyph quads sample.
func (h *HUD) AtlasID() metadata.TextureID {
	return h.atlas
}

func (h *HUD) AddText(content string, x, y float32, color [4]uint8) *Text {
	t := &Text{ID: uuid.New(), Content: content, X: x, Y: y, Color: color}
	h.texts = append(h.texts, t)
	return t
}

func (h *HUD) RemoveText(t *Text) bool {
	for i, other := range h.texts {
		if other == t {
			h.texts = append(h.texts[:i], h.texts[i+1:]...)
			return true
		}
	}
	return false
}

// Frame returns one clipped primitive per visible text, clipped to the
// framebuffer. The atlas upload is part of the first delta only.
func (h *HUD) Frame(width, height uint32) ([]metadata.ClippedPrimitive, metadata.TexturesDelta) {
	var delta metadata.TexturesDelta
	if h.pending {
		delta.Set = append(delta.Set, metadata.TextureUpdate{ID: h.atlas, Image: h.font.Atlas})
		h.pending = false
	}

	screen := metadata.Rect{MaxX: float32(width), MaxY: float32(height)}
	primitives := make([]metadata.ClippedPrimitive, 0, len(h.texts))
	for _, t := range h.texts {
		if t.Hidden {
			continue
		}
		mesh := h.Layout(t)
		if len(mesh.Indices) == 0 {
			continue
		}
		primitives = append(primitives, metadata.ClippedPrimitive{Clip: screen, Mesh: mesh})
	}
	return primitives, delta
}

// Release frees the atlas on the renderer side. A later Frame uploads it
// again.
func (h *HUD) Release() metadata.TexturesDelta {
	h.pending = true
	return metadata.TexturesDelta{Free: []metadata.TextureID{h.atlas}}
}

// Layout generates one quad per glyph of t. Newlines move down one line
// height and tabs advance four spaces. Runes without a glyph fall back to
// '?' and are skipped if that is missing too.
func (h *HUD) Layout(t *Text) metadata.UIMesh {
	f := h.font
	count := utf8.RuneCountInString(t.Content)
	mesh := metadata.UIMesh{
		Vertices: make([]metadata.UIVertex, 0, count*vertsPerQuad),
		Indices:  make([]uint32, 0, count*indicesPerQuad),
		Texture:  h.atlas,
	}
	if f.AtlasWidth == 0 || f.AtlasHeight == 0 {
		return mesh
	}
	atlasW, atlasH := float32(f.AtlasWidth), float32(f.AtlasHeight)

	x, y := t.X, t.Y
	runes := []rune(t.Content)
	for i, r := range runes {
		switch r {
		case '\n':
			x = t.X
			y += float32(f.LineHeight)
			continue
		case '\t':
			x += float32(h.advance(' ') * tabSpaces)
			continue
		case utf8.RuneError:
			core.LogWarn("invalid UTF-8 found in HUD text, using unknown glyph")
		}

		g, ok := f.Glyphs[r]
		if !ok {
			if g, ok = f.Glyphs['?']; !ok {
				continue
			}
		}

		minx := x + float32(g.XOffset)
		miny := y + float32(g.YOffset)
		maxx := minx + float32(g.Width)
		maxy := miny + float32(g.Height)
		tminx := float32(g.X) / atlasW
		tmaxx := float32(g.X+g.Width) / atlasW
		tminy := float32(g.Y) / atlasH
		tmaxy := float32(g.Y+g.Height) / atlasH

		base := uint32(len(mesh.Vertices))
		mesh.Vertices = append(mesh.Vertices,
			metadata.UIVertex{Position: [2]float32{minx, miny}, UV: [2]float32{tminx, tminy}, Color: t.Color}, // 0    3
			metadata.UIVertex{Position: [2]float32{maxx, maxy}, UV: [2]float32{tmaxx, tmaxy}, Color: t.Color}, //
			metadata.UIVertex{Position: [2]float32{minx, maxy}, UV: [2]float32{tminx, tmaxy}, Color: t.Color}, //
			metadata.UIVertex{Position: [2]float32{maxx, miny}, UV: [2]float32{tmaxx, tminy}, Color: t.Color}, // 2    1
		)
		mesh.Indices = append(mesh.Indices, base+2, base+1, base+0, base+3, base+0, base+1)

		kerning := 0
		if i+1 < len(runes) {
			kerning = f.Kerning(r, runes[i+1])
		}
		x += float32(g.XAdvance + kerning)
	}
	return mesh
}

func (h *HUD) advance(r rune) int {
	if g, ok := h.font.Glyphs[r]; ok {
		return g.XAdvance
	}
	return h.font.Size / 2
}
