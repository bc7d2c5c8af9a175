package components

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/spaghettifunk/vesta/engine/renderer/metadata"
)

// 89 degrees
const pitchLimit = float32(1.55334306)

/**
 * @brief A free camera described by a position and Euler angles
 * (pitch, yaw, roll). The view matrix is rebuilt lazily.
 */
type Camera struct {
	// Use SetPosition so the view matrix is recalculated when needed.
	Position mgl32.Vec3
	// Use SetEulerRotation so the view matrix is recalculated when needed.
	EulerRotation mgl32.Vec3

	FieldOfView float32
	Near        float32
	Far         float32

	isDirty    bool
	viewMatrix mgl32.Mat4
}

func NewCamera() *Camera {
	camera := &Camera{}
	camera.Reset()
	return camera
}

func (c *Camera) Reset() {
	c.EulerRotation = mgl32.Vec3{}
	c.Position = mgl32.Vec3{}
	c.FieldOfView = mgl32.DegToRad(45)
	c.Near = 0.1
	c.Far = 100
	c.isDirty = false
	c.viewMatrix = mgl32.Ident4()
}

func (c *Camera) SetPosition(position mgl32.Vec3) {
	c.Position = position
	c.isDirty = true
}

func (c *Camera) SetEulerRotation(rotation mgl32.Vec3) {
	c.EulerRotation = rotation
	c.isDirty = true
}

// World returns the camera to world transform.
func (c *Camera) World() mgl32.Mat4 {
	rotation := mgl32.HomogRotate3DY(c.EulerRotation.Y()).
		Mul4(mgl32.HomogRotate3DX(c.EulerRotation.X())).
		Mul4(mgl32.HomogRotate3DZ(c.EulerRotation.Z()))
	return mgl32.Translate3D(c.Position.Elem()).Mul4(rotation)
}

func (c *Camera) GetView() mgl32.Mat4 {
	if c.isDirty {
		c.viewMatrix = c.World().Inv()
		c.isDirty = false
	}
	return c.viewMatrix
}

// Frame pairs the view with a perspective projection for a width x height
// target, flipped for Vulkan clip space.
func (c *Camera) Frame(width, height uint32) metadata.Camera {
	aspect := float32(1)
	if width > 0 && height > 0 {
		aspect = float32(width) / float32(height)
	}
	return metadata.Camera{
		View: c.GetView(),
		Proj: metadata.FlipY(mgl32.Perspective(c.FieldOfView, aspect, c.Near, c.Far)),
	}
}

func (c *Camera) Forward() mgl32.Vec3 {
	return c.World().Mul4x1(mgl32.Vec4{0, 0, -1, 0}).Vec3().Normalize()
}

func (c *Camera) Backward() mgl32.Vec3 {
	return c.Forward().Mul(-1)
}

func (c *Camera) Right() mgl32.Vec3 {
	return c.World().Mul4x1(mgl32.Vec4{1, 0, 0, 0}).Vec3().Normalize()
}

func (c *Camera) Left() mgl32.Vec3 {
	return c.Right().Mul(-1)
}

func (c *Camera) move(direction mgl32.Vec3, amount float32) {
	c.Position = c.Position.Add(direction.Mul(amount))
	c.isDirty = true
}

func (c *Camera) MoveForward(amount float32)  { c.move(c.Forward(), amount) }
func (c *Camera) MoveBackward(amount float32) { c.move(c.Backward(), amount) }
func (c *Camera) MoveLeft(amount float32)     { c.move(c.Left(), amount) }
func (c *Camera) MoveRight(amount float32)    { c.move(c.Right(), amount) }
func (c *Camera) MoveUp(amount float32)       { c.move(mgl32.Vec3{0, 1, 0}, amount) }
func (c *Camera) MoveDown(amount float32)     { c.move(mgl32.Vec3{0, -1, 0}, amount) }

func (c *Camera) Yaw(amount float32) {
	c.EulerRotation[1] += amount
	c.isDirty = true
}

func (c *Camera) Pitch(amount float32) {
	c.EulerRotation[0] += amount

	// Clamp to avoid Gimbal lock.
	c.EulerRotation[0] = mgl32.Clamp(c.EulerRotation[0], -pitchLimit, pitchLimit)
	c.isDirty = true
}

// Orbit places the camera on a circle of radius around target at the given
// height, facing the target.
func (c *Camera) Orbit(target mgl32.Vec3, radius, height, angle float32) {
	c.Position = target.Add(mgl32.Vec3{radius * math32.Sin(angle), height, radius * math32.Cos(angle)})
	c.EulerRotation = mgl32.Vec3{-math32.Atan2(height, radius), angle, 0}
	c.isDirty = true
}
