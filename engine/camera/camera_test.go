package camera

import (
	"testing"

	"github.com/Carmen-Shannon/mpm-go/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// project applies the column-major view-projection matrix to a world point.
func project(m [16]float32, p common.Vec2) (float32, float32) {
	x := m[0]*p.X + m[4]*p.Y + m[12]
	y := m[1]*p.X + m[5]*p.Y + m[13]
	return x, y
}

func TestViewProjectionMapsViewRectToClipSpace(t *testing.T) {
	cam := NewCamera(
		WithCenter(common.Vec2{X: 3, Y: -2}),
		WithHalfHeight(5),
		WithAspect(2),
	)

	m := cam.ViewProjectionMatrix()

	x, y := project(m, common.Vec2{X: 3, Y: -2})
	assert.InDelta(t, 0.0, x, 1e-6)
	assert.InDelta(t, 0.0, y, 1e-6)

	// Top of the view rect lands on clip-space y = 1.
	_, y = project(m, common.Vec2{X: 3, Y: 3})
	assert.InDelta(t, 1.0, y, 1e-6)

	// Right edge is halfHeight*aspect from the center.
	x, _ = project(m, common.Vec2{X: 13, Y: -2})
	assert.InDelta(t, 1.0, x, 1e-6)
}

func TestPanShiftsCenter(t *testing.T) {
	cam := NewCamera(WithCenter(common.Vec2{X: 1, Y: 1}))
	cam.Pan(common.Vec2{X: -1, Y: 2})

	require.Equal(t, common.Vec2{X: 0, Y: 3}, cam.Center())
}

func TestZoomByScalesAndClamps(t *testing.T) {
	cam := NewCamera(WithHalfHeight(10))

	cam.ZoomBy(0.5)
	assert.InDelta(t, 5.0, cam.HalfHeight(), 1e-6)

	cam.ZoomBy(0)
	assert.InDelta(t, 5.0, cam.HalfHeight(), 1e-6, "non-positive factors are ignored")

	cam.SetHalfHeight(0)
	assert.Greater(t, cam.HalfHeight(), float32(0), "zoom-in is clamped above zero")
}

func TestSetAspectIgnoresNonPositive(t *testing.T) {
	cam := NewCamera(WithAspect(1.5))
	cam.SetAspect(-1)

	assert.InDelta(t, 1.5, cam.Aspect(), 1e-6)
}
