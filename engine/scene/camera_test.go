package scene

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
)

func TestCameraViewIsInverseOfPosition(t *testing.T) {
	c := NewCamera()
	c.SetPosition(mgl32.Vec3{3, 1, -2})

	view := c.View()
	origin := view.Mul4x1(mgl32.Vec4{3, 1, -2, 1})
	assert.InDelta(t, 0, origin.X(), 1e-5)
	assert.InDelta(t, 0, origin.Y(), 1e-5)
	assert.InDelta(t, 0, origin.Z(), 1e-5)
}

func TestCameraViewCachedUntilDirty(t *testing.T) {
	c := NewCamera()
	assert.Equal(t, mgl32.Ident4(), c.View())

	c.SetPosition(mgl32.Vec3{1, 0, 0})
	assert.NotEqual(t, mgl32.Ident4(), c.View())
}

func TestCameraProjectionFlipsY(t *testing.T) {
	c := NewCamera()
	projection := c.Projection(1280, 720)
	assert.Less(t, projection[5], float32(0))

	// A zero height surface must not divide by zero.
	projection = c.Projection(100, 0)
	assert.False(t, math32.IsNaN(projection[0]))
}

func TestCameraYawWraps(t *testing.T) {
	c := NewCamera()
	c.Yaw(3 * math32.Pi)
	assert.InDelta(t, math32.Pi, float64(c.EulerRotation.Y()), 1e-4)

	c.Reset()
	c.Yaw(-3 * math32.Pi)
	assert.InDelta(t, math32.Pi, math32.Abs(c.EulerRotation.Y()), 1e-4)
}

func TestCameraPitchClamps(t *testing.T) {
	c := NewCamera()
	c.Pitch(10)
	assert.InDelta(t, float64(mgl32.DegToRad(89)), float64(c.EulerRotation.X()), 1e-5)

	c.Pitch(-20)
	assert.InDelta(t, float64(-mgl32.DegToRad(89)), float64(c.EulerRotation.X()), 1e-5)
}

func TestCameraForwardDefault(t *testing.T) {
	c := NewCamera()
	forward := c.Forward()
	assert.InDelta(t, 0, forward.X(), 1e-5)
	assert.InDelta(t, 0, forward.Y(), 1e-5)
	assert.InDelta(t, -1, forward.Z(), 1e-5)
}
