package common

import "math"

// Vec2 is a 2D vector with float32 components, matching the layout expected
// by WGSL `vec2<f32>` fields in GPU storage buffers.
type Vec2 struct {
	X, Y float32
}

// Add returns the component-wise sum of v and o.
//
// Parameters:
//   - o: the vector to add
//
// Returns:
//   - Vec2: v + o
func (v Vec2) Add(o Vec2) Vec2 {
	return Vec2{X: v.X + o.X, Y: v.Y + o.Y}
}

// Sub returns the component-wise difference of v and o.
//
// Parameters:
//   - o: the vector to subtract
//
// Returns:
//   - Vec2: v - o
func (v Vec2) Sub(o Vec2) Vec2 {
	return Vec2{X: v.X - o.X, Y: v.Y - o.Y}
}

// Scale returns v multiplied by the scalar s.
//
// Parameters:
//   - s: the scalar multiplier
//
// Returns:
//   - Vec2: v * s
func (v Vec2) Scale(s float32) Vec2 {
	return Vec2{X: v.X * s, Y: v.Y * s}
}

// Length returns the Euclidean length of v.
//
// Returns:
//   - float32: sqrt(x² + y²)
func (v Vec2) Length() float32 {
	return float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y)))
}

// Rot2 is a 2D rotation stored as a cosine/sine pair rather than an angle,
// so it can be consumed directly by GPU kernels without trigonometry.
type Rot2 struct {
	Cos, Sin float32
}

// MakeRot2 builds a Rot2 from an angle in radians.
//
// Parameters:
//   - angle: rotation angle in radians
//
// Returns:
//   - Rot2: the cos/sin representation of the angle
func MakeRot2(angle float32) Rot2 {
	return Rot2{
		Cos: float32(math.Cos(float64(angle))),
		Sin: float32(math.Sin(float64(angle))),
	}
}

// IdentityRot2 returns the identity rotation.
//
// Returns:
//   - Rot2: rotation of zero radians
func IdentityRot2() Rot2 {
	return Rot2{Cos: 1, Sin: 0}
}

// Angle returns the rotation angle in radians.
//
// Returns:
//   - float32: atan2(sin, cos)
func (r Rot2) Angle() float32 {
	return float32(math.Atan2(float64(r.Sin), float64(r.Cos)))
}

// Apply rotates the vector v by r.
//
// Parameters:
//   - v: the vector to rotate
//
// Returns:
//   - Vec2: the rotated vector
func (r Rot2) Apply(v Vec2) Vec2 {
	return Vec2{
		X: r.Cos*v.X - r.Sin*v.Y,
		Y: r.Sin*v.X + r.Cos*v.Y,
	}
}

// Transform2 is a 2D rigid transform (rotation then translation).
// The field order matches the GPU-side pose record layout: [cos, sin, x, y].
type Transform2 struct {
	Rotation    Rot2
	Translation Vec2
}

// IdentityTransform2 returns the identity transform.
//
// Returns:
//   - Transform2: identity rotation and zero translation
func IdentityTransform2() Transform2 {
	return Transform2{Rotation: IdentityRot2()}
}

// Apply transforms the point p by t (rotation then translation).
//
// Parameters:
//   - p: the point to transform
//
// Returns:
//   - Vec2: the transformed point
func (t Transform2) Apply(p Vec2) Vec2 {
	return t.Rotation.Apply(p).Add(t.Translation)
}
