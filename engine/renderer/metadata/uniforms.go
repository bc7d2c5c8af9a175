package metadata

import (
	"unsafe"

	"github.com/go-gl/mathgl/mgl32"
)

// MaxJoints is the capacity of a skinned mesh's joint uniform buffer.
const MaxJoints = 128

type ShaderStage uint32

const (
	ShaderStageVertex ShaderStage = 1 << iota
	ShaderStageFragment
)

type PushConstantRange struct {
	Stages ShaderStage
	Offset uint32
	Size   uint32
}

/** @brief Per-draw constants of ordinary meshes. */
type MVPPush struct {
	Model mgl32.Mat4
	View  mgl32.Mat4
	Proj  mgl32.Mat4
	Color mgl32.Vec4
}

/** @brief Per-draw constants of skinned meshes; camera and joints live in uniform buffers. */
type TimePush struct {
	Time float32
}

/** @brief Overlay constants: the framebuffer size in pixels. */
type ScreenPush struct {
	Size mgl32.Vec2
}

/** @brief Camera uniform block of skinned meshes (binding 1). */
type CameraUniforms struct {
	View mgl32.Mat4
	Proj mgl32.Mat4
}

/** @brief Joint uniform block of skinned meshes (binding 0). */
type JointMatrices [MaxJoints]mgl32.Mat4

var (
	MVPPushRange = PushConstantRange{
		Stages: ShaderStageVertex | ShaderStageFragment,
		Size:   uint32(unsafe.Sizeof(MVPPush{})),
	}
	TimePushRange = PushConstantRange{
		Stages: ShaderStageVertex,
		Size:   uint32(unsafe.Sizeof(TimePush{})),
	}
	ScreenPushRange = PushConstantRange{
		Stages: ShaderStageVertex,
		Size:   uint32(unsafe.Sizeof(ScreenPush{})),
	}
)

// NewJointMatrices copies up to MaxJoints matrices; extra entries are
// dropped and missing ones stay zero.
func NewJointMatrices(matrices []mgl32.Mat4) *JointMatrices {
	var j JointMatrices
	copy(j[:], matrices)
	return &j
}

// Camera is the view and projection used for one frame. Proj must already
// match Vulkan clip space; see FlipY.
type Camera struct {
	View mgl32.Mat4
	Proj mgl32.Mat4
}

// FlipY negates the Y scale of a projection built for a Y-up clip space.
func FlipY(proj mgl32.Mat4) mgl32.Mat4 {
	proj[5] = -proj[5]
	return proj
}

// LegacyModel is the fixed transform of geometry drawn through the legacy
// fallback.
func LegacyModel() mgl32.Mat4 {
	return mgl32.Translate3D(0, 0, -2).Mul4(mgl32.Scale3D(0.5, 0.5, 0.5))
}
