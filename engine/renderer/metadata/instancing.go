package metadata

import "github.com/go-gl/mathgl/mgl32"

// Instancing selects how a mesh is replicated: one draw per transform, or a
// single hardware-instanced draw over an instance buffer.
type Instancing interface {
	isInstancing()
	// Empty reports whether nothing would be drawn.
	Empty() bool
}

// Individual draws the mesh once per transform.
type Individual struct {
	Transforms []mgl32.Mat4
}

func (Individual) isInstancing() {}

func (i Individual) Empty() bool {
	return len(i.Transforms) == 0
}

// Instanced draws Count instances in one call, reading per-instance data
// from Buffer.
type Instanced struct {
	Buffer *Buffer
	Count  uint32
}

func (Instanced) isInstancing() {}

func (i Instanced) Empty() bool {
	return i.Count == 0
}
