package metadata

import "github.com/google/uuid"

// TextureID names an overlay texture across frames.
type TextureID = uuid.UUID

type Rect struct {
	MinX, MinY float32
	MaxX, MaxY float32
}

type UIMesh struct {
	Vertices []UIVertex
	Indices  []uint32
	Texture  TextureID
}

// ClippedPrimitive is one overlay mesh drawn inside a clip rectangle given
// in pixels.
type ClippedPrimitive struct {
	Clip Rect
	Mesh UIMesh
}

type TextureUpdate struct {
	ID    TextureID
	Image TextureData
}

// TexturesDelta lists overlay textures to create or replace before
// painting, and textures to release after painting.
type TexturesDelta struct {
	Set  []TextureUpdate
	Free []TextureID
}
