package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Camera converts a position and Euler rotation into the view and
// projection matrices the global uniform block carries.
//
// Do not set Position or EulerRotation directly; use the setters so the
// view matrix is recalculated when needed.
type Camera struct {
	Position      mgl32.Vec3
	EulerRotation mgl32.Vec3

	fovY    float32
	nearZ   float32
	farZ    float32
	isDirty bool
	view    mgl32.Mat4
}

func NewCamera() *Camera {
	camera := &Camera{
		fovY:  mgl32.DegToRad(45),
		nearZ: 0.1,
		farZ:  1000,
	}
	camera.Reset()
	return camera
}

func (c *Camera) Reset() {
	c.Position = mgl32.Vec3{}
	c.EulerRotation = mgl32.Vec3{}
	c.view = mgl32.Ident4()
	c.isDirty = false
}

func (c *Camera) SetPosition(position mgl32.Vec3) {
	c.Position = position
	c.isDirty = true
}

func (c *Camera) SetEulerRotation(rotation mgl32.Vec3) {
	c.EulerRotation = rotation
	c.isDirty = true
}

// View returns the world-to-camera matrix, rebuilding it only after a
// position or rotation change.
func (c *Camera) View() mgl32.Mat4 {
	if c.isDirty {
		rotation := mgl32.Rotate3DX(c.EulerRotation.X()).
			Mul3(mgl32.Rotate3DY(c.EulerRotation.Y())).
			Mul3(mgl32.Rotate3DZ(c.EulerRotation.Z())).Mat4()
		translation := mgl32.Translate3D(c.Position.X(), c.Position.Y(), c.Position.Z())
		c.view = translation.Mul4(rotation).Inv()
		c.isDirty = false
	}
	return c.view
}

// Projection builds a perspective matrix for the given surface aspect
// ratio with the Y axis flipped for Vulkan clip space.
func (c *Camera) Projection(width, height uint32) mgl32.Mat4 {
	if height == 0 {
		height = 1
	}
	aspect := float32(width) / float32(height)
	projection := mgl32.Perspective(c.fovY, aspect, c.nearZ, c.farZ)
	projection[5] *= -1
	return projection
}

func (c *Camera) Forward() mgl32.Vec3 {
	view := c.View()
	return mgl32.Vec3{-view[2], -view[6], -view[10]}.Normalize()
}

func (c *Camera) Right() mgl32.Vec3 {
	view := c.View()
	return mgl32.Vec3{view[0], view[4], view[8]}.Normalize()
}

func (c *Camera) MoveForward(amount float32) {
	c.Position = c.Position.Add(c.Forward().Mul(amount))
	c.isDirty = true
}

func (c *Camera) MoveRight(amount float32) {
	c.Position = c.Position.Add(c.Right().Mul(amount))
	c.isDirty = true
}

// Yaw rotates around the vertical axis, keeping the angle in (-pi, pi].
func (c *Camera) Yaw(amount float32) {
	y := c.EulerRotation.Y() + amount
	for y > math32.Pi {
		y -= 2 * math32.Pi
	}
	for y <= -math32.Pi {
		y += 2 * math32.Pi
	}
	c.EulerRotation[1] = y
	c.isDirty = true
}

// Pitch rotates around the side axis, clamped short of the poles.
func (c *Camera) Pitch(amount float32) {
	limit := mgl32.DegToRad(89)
	c.EulerRotation[0] = math32.Max(-limit, math32.Min(limit, c.EulerRotation.X()+amount))
	c.isDirty = true
}
