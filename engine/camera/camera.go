package camera

import (
	"github.com/Carmen-Shannon/mpm-go/common"
)

// cameraImpl is the implementation of the Camera interface.
type cameraImpl struct {
	// center is the world-space point the camera looks at.
	center common.Vec2

	// halfHeight is half the vertical extent of the view in world units.
	// Smaller values zoom in.
	halfHeight float32

	// aspect is the viewport width divided by height.
	aspect float32
}

// Camera is a 2D orthographic camera for the particle viewer.
// It maps a rectangle of world space onto the viewport and produces the
// view-projection matrix the particle shader consumes.
type Camera interface {
	// Center returns the world-space point at the middle of the view.
	//
	// Returns:
	//   - common.Vec2: the view center
	Center() common.Vec2

	// SetCenter moves the view to look at the given world-space point.
	//
	// Parameters:
	//   - center: the new view center
	SetCenter(center common.Vec2)

	// Pan shifts the view center by a world-space delta.
	//
	// Parameters:
	//   - delta: the world-space offset to move by
	Pan(delta common.Vec2)

	// HalfHeight returns half the vertical extent of the view in world units.
	//
	// Returns:
	//   - float32: the half-height
	HalfHeight() float32

	// SetHalfHeight sets half the vertical extent of the view in world units.
	// Values below the minimum zoom are clamped.
	//
	// Parameters:
	//   - halfHeight: the new half-height
	SetHalfHeight(halfHeight float32)

	// ZoomBy scales the view extent by the given factor. Factors below 1
	// zoom in, above 1 zoom out.
	//
	// Parameters:
	//   - factor: the scale factor to apply
	ZoomBy(factor float32)

	// Aspect returns the viewport aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// SetAspect updates the aspect ratio. Call this from the window resize
	// callback so particles stay round.
	//
	// Parameters:
	//   - aspect: the new aspect ratio (width / height)
	SetAspect(aspect float32)

	// ViewProjectionMatrix returns the combined orthographic view-projection
	// matrix in column-major order, ready to upload to the GPU.
	//
	// Returns:
	//   - [16]float32: the view-projection matrix
	ViewProjectionMatrix() [16]float32
}

var _ Camera = &cameraImpl{}

// minHalfHeight bounds zoom-in so the projection never degenerates.
const minHalfHeight = 1e-3

// NewCamera creates a new 2D orthographic Camera with the specified options.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the configured camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		center:     common.Vec2{},
		halfHeight: 10,
		aspect:     16.0 / 9.0,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

func (c *cameraImpl) Center() common.Vec2 {
	return c.center
}

func (c *cameraImpl) SetCenter(center common.Vec2) {
	c.center = center
}

func (c *cameraImpl) Pan(delta common.Vec2) {
	c.center = c.center.Add(delta)
}

func (c *cameraImpl) HalfHeight() float32 {
	return c.halfHeight
}

func (c *cameraImpl) SetHalfHeight(halfHeight float32) {
	if halfHeight < minHalfHeight {
		halfHeight = minHalfHeight
	}
	c.halfHeight = halfHeight
}

func (c *cameraImpl) ZoomBy(factor float32) {
	if factor <= 0 {
		return
	}
	c.SetHalfHeight(c.halfHeight * factor)
}

func (c *cameraImpl) Aspect() float32 {
	return c.aspect
}

func (c *cameraImpl) SetAspect(aspect float32) {
	if aspect > 0 {
		c.aspect = aspect
	}
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	sy := 1.0 / c.halfHeight
	sx := sy / c.aspect

	// Orthographic projection translated by the view center; world z is
	// always 0 so the depth row passes it through into WebGPU's [0, 1) range.
	return [16]float32{
		sx, 0, 0, 0,
		0, sy, 0, 0,
		0, 0, 1, 0,
		-c.center.X * sx, -c.center.Y * sy, 0, 1,
	}
}
