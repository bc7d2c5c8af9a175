package engine

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
)

// DefaultCamera looks at the origin from (0, 0, 3) with a 45 degree field
// of view. The projection is already flipped for Vulkan clip space.
func DefaultCamera(width, height uint32) metadata.Camera {
	aspect := float32(1)
	if width > 0 && height > 0 {
		aspect = float32(width) / float32(height)
	}
	return metadata.Camera{
		View: mgl32.LookAtV(mgl32.Vec3{0, 0, 3}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0}),
		Proj: metadata.FlipY(mgl32.Perspective(mgl32.DegToRad(45), aspect, 0.1, 100)),
	}
}
