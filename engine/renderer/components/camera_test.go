package components

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestCameraView(t *testing.T) {
	c := NewCamera()
	assert.True(t, c.GetView().ApproxEqual(mgl32.Ident4()))

	c.SetPosition(mgl32.Vec3{0, 0, 3})
	want := mgl32.LookAtV(mgl32.Vec3{0, 0, 3}, mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	assert.True(t, c.GetView().ApproxEqualThreshold(want, 1e-5))

	c.MoveForward(1)
	assert.InDelta(t, 2, c.Position.Z(), 1e-5)
	c.MoveRight(1)
	assert.InDelta(t, 1, c.Position.X(), 1e-5)
	c.MoveUp(0.5)
	assert.InDelta(t, 0.5, c.Position.Y(), 1e-5)
}

func TestCameraPitchClamp(t *testing.T) {
	c := NewCamera()
	c.Pitch(10)
	assert.Equal(t, pitchLimit, c.EulerRotation.X())
	c.Pitch(-20)
	assert.Equal(t, -pitchLimit, c.EulerRotation.X())
}

func TestCameraOrbitFacesTarget(t *testing.T) {
	c := NewCamera()
	target := mgl32.Vec3{0, -0.2, 0}
	for _, angle := range []float32{0, 1, 2.5, -1} {
		c.Orbit(target, 3.5, 1.2, angle)
		toTarget := target.Sub(c.Position).Normalize()
		assert.InDelta(t, 1, c.Forward().Dot(toTarget), 1e-4, "angle %v", angle)

		want := mgl32.LookAtV(c.Position, target, mgl32.Vec3{0, 1, 0})
		assert.True(t, c.GetView().ApproxEqualThreshold(want, 1e-4), "angle %v", angle)
	}
}

func TestCameraFrame(t *testing.T) {
	c := NewCamera()
	frame := c.Frame(800, 400)
	proj := mgl32.Perspective(c.FieldOfView, 2, c.Near, c.Far)
	assert.InDelta(t, -proj[5], frame.Proj[5], 1e-6)
	assert.InDelta(t, proj[0], frame.Proj[0], 1e-6)

	square := c.Frame(0, 0)
	assert.InDelta(t, -square.Proj[0], square.Proj[5], 1e-6)
}
