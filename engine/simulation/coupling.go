package simulation

import "github.com/Carmen-Shannon/mpm-go/common"

// BodyHandle identifies a rigid body in the external physics world.
// Handles are assigned at scene setup in registration order and remain
// valid for the whole session.
type BodyHandle int

// ColliderHandle identifies a collider in the external physics world.
type ColliderHandle int

// CouplingMode is the direction of influence between a rigid body and the
// GPU particle simulation.
type CouplingMode uint8

const (
	// CouplingOneWay pushes rigid-body state into the particle simulation only.
	CouplingOneWay CouplingMode = iota
	// CouplingTwoWay additionally feeds particle impulses back into the rigid
	// body. The current step logic never exercises this variant; it is kept so
	// the extension point is not silently dropped.
	CouplingTwoWay
)

// CouplingEntry declares that one rigid body / collider pair exchanges state
// with the GPU particle simulation. The coupling set is produced once at
// scene setup and is immutable for the session; the stepper reads it each
// frame, in the stable order established at setup, to know which external
// bodies to sample.
type CouplingEntry struct {
	Body     BodyHandle
	Collider ColliderHandle
	Mode     CouplingMode
}

// BodyVelocity is the per-entry velocity record uploaded to the GPU each
// frame. The linear part carries the injected gravity contribution for
// dynamic bodies; angular is the scalar 2D angular velocity.
type BodyVelocity struct {
	Linear  common.Vec2
	Angular float32
}

// RigidWorld is the read-only view of the external rigid-body engine the
// stepper samples each frame. Implementations translate engine-native body
// and fixture references into the stable handles carried by CouplingEntry.
type RigidWorld interface {
	// Ready reports whether the rigid-body world has been initialized.
	// A frame invoked before the world is ready is a silent no-op.
	//
	// Returns:
	//   - bool: true once the world can be sampled
	Ready() bool

	// ColliderPose returns the current world-space pose of a coupled collider.
	//
	// Parameters:
	//   - c: the collider handle from a CouplingEntry
	//
	// Returns:
	//   - common.Transform2: the collider's world pose
	//   - bool: false if the handle is unknown
	ColliderPose(c ColliderHandle) (common.Transform2, bool)

	// Body returns the current velocity of a coupled rigid body and whether
	// the body is dynamic. Static and kinematic bodies are not dynamic and
	// receive no gravity injection in the upload.
	//
	// Parameters:
	//   - b: the body handle from a CouplingEntry
	//
	// Returns:
	//   - BodyVelocity: the body's linear and angular velocity
	//   - bool: true if the body is dynamic
	//   - bool: false if the handle is unknown
	Body(b BodyHandle) (BodyVelocity, bool, bool)

	// Dt returns the fixed integration timestep of one rendered frame.
	//
	// Returns:
	//   - float32: the frame timestep in seconds
	Dt() float32
}
