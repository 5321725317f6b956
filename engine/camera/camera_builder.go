package camera

import (
	"github.com/Carmen-Shannon/mpm-go/common"
)

// CameraBuilderOption is a functional option for configuring a camera during construction via NewCamera.
type CameraBuilderOption func(*cameraImpl)

// WithCenter sets the initial world-space point the camera looks at.
//
// Parameters:
//   - center: the view center
//
// Returns:
//   - CameraBuilderOption: a function that applies the center option to a camera
func WithCenter(center common.Vec2) CameraBuilderOption {
	return func(c *cameraImpl) {
		c.center = center
	}
}

// WithHalfHeight sets half the vertical extent of the view in world units.
//
// Parameters:
//   - halfHeight: the half-height (smaller values zoom in)
//
// Returns:
//   - CameraBuilderOption: a function that applies the half-height option to a camera
func WithHalfHeight(halfHeight float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if halfHeight >= minHalfHeight {
			c.halfHeight = halfHeight
		}
	}
}

// WithAspect sets the initial viewport aspect ratio (width / height).
//
// Parameters:
//   - aspect: the aspect ratio
//
// Returns:
//   - CameraBuilderOption: a function that applies the aspect option to a camera
func WithAspect(aspect float32) CameraBuilderOption {
	return func(c *cameraImpl) {
		if aspect > 0 {
			c.aspect = aspect
		}
	}
}
