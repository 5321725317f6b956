// Package physics adapts the Box2D rigid-body engine to the read-only world
// view the simulation stepper samples each frame. Bodies and fixtures are
// registered once at scene setup and addressed by stable integer handles for
// the rest of the session.
package physics

import (
	"github.com/ByteArena/box2d"
	"github.com/Carmen-Shannon/mpm-go/common"
	"github.com/Carmen-Shannon/mpm-go/engine/simulation"
)

// World wraps a box2d.B2World plus the handle registries mapping coupling
// handles to engine-native bodies and fixtures. It implements
// simulation.RigidWorld.
//
// The frame loop owns the world: Step and the registration methods must be
// called from the same goroutine that drives the stepper.
type World struct {
	world box2d.B2World
	dt    float32

	velocityIterations int
	positionIterations int

	bodies   []*box2d.B2Body
	fixtures []*box2d.B2Fixture
	coupling []simulation.CouplingEntry

	ready bool
}

// WorldBuilderOption is a functional option for configuring a World.
type WorldBuilderOption func(*World)

// WithGravity sets the rigid-body world gravity, default (0, -9.81).
//
// Parameters:
//   - g: the gravity acceleration vector in m/s²
//
// Returns:
//   - WorldBuilderOption: option function to apply
func WithGravity(g common.Vec2) WorldBuilderOption {
	return func(w *World) {
		w.world.SetGravity(box2d.MakeB2Vec2(float64(g.X), float64(g.Y)))
	}
}

// WithDt sets the fixed frame timestep in seconds, default 1/60.
//
// Parameters:
//   - dt: the timestep
//
// Returns:
//   - WorldBuilderOption: option function to apply
func WithDt(dt float32) WorldBuilderOption {
	return func(w *World) {
		if dt > 0 {
			w.dt = dt
		}
	}
}

// WithSolverIterations sets the Box2D velocity and position solver iteration
// counts, default 8 and 3.
//
// Parameters:
//   - velocity: velocity solver iterations
//   - position: position solver iterations
//
// Returns:
//   - WorldBuilderOption: option function to apply
func WithSolverIterations(velocity, position int) WorldBuilderOption {
	return func(w *World) {
		w.velocityIterations = velocity
		w.positionIterations = position
	}
}

// NewWorld creates a rigid-body world with gravity (0, -9.81) and a 1/60s
// fixed timestep.
//
// Parameters:
//   - options: functional options for world configuration
//
// Returns:
//   - *World: the newly created world
func NewWorld(options ...WorldBuilderOption) *World {
	w := &World{
		world:              box2d.MakeB2World(box2d.MakeB2Vec2(0, -9.81)),
		dt:                 1.0 / 60.0,
		velocityIterations: 8,
		positionIterations: 3,
	}
	for _, opt := range options {
		opt(w)
	}
	return w
}

// CreateBody creates a rigid body in the underlying Box2D world.
//
// Parameters:
//   - def: the Box2D body definition
//
// Returns:
//   - *box2d.B2Body: the created body
func (w *World) CreateBody(def *box2d.B2BodyDef) *box2d.B2Body {
	return w.world.CreateBody(def)
}

// RegisterCoupled registers a body/fixture pair as coupled with the GPU
// particle simulation and returns its coupling entry. Handles are assigned
// in registration order, which is the stable upload order for the session.
//
// Parameters:
//   - body: the rigid body providing velocities
//   - fixture: the collider providing the world pose
//   - mode: the direction of influence
//
// Returns:
//   - simulation.CouplingEntry: the entry carrying the assigned handles
func (w *World) RegisterCoupled(body *box2d.B2Body, fixture *box2d.B2Fixture, mode simulation.CouplingMode) simulation.CouplingEntry {
	entry := simulation.CouplingEntry{
		Body:     simulation.BodyHandle(len(w.bodies)),
		Collider: simulation.ColliderHandle(len(w.fixtures)),
		Mode:     mode,
	}
	w.bodies = append(w.bodies, body)
	w.fixtures = append(w.fixtures, fixture)
	w.coupling = append(w.coupling, entry)
	return entry
}

// Coupling returns every registered coupling entry, in registration order.
//
// Returns:
//   - []simulation.CouplingEntry: the coupling set
func (w *World) Coupling() []simulation.CouplingEntry {
	return w.coupling
}

// Finalize marks the world ready to be sampled. Called once scene setup has
// registered all couplings; frames invoked before this are silent no-ops.
func (w *World) Finalize() {
	w.ready = true
}

// Step advances the rigid-body world by one fixed frame timestep. This is
// the CPU half of the lockstep; the caller invokes it once per frame, before
// the GPU step samples the resulting state.
func (w *World) Step() {
	w.world.Step(float64(w.dt), w.velocityIterations, w.positionIterations)
}

// Ready reports whether scene setup has finalized the world.
//
// Returns:
//   - bool: true once the world can be sampled
func (w *World) Ready() bool {
	return w.ready
}

// ColliderPose returns the world pose of a registered fixture's body origin.
//
// Parameters:
//   - c: the collider handle
//
// Returns:
//   - common.Transform2: the world pose
//   - bool: false if the handle was never registered
func (w *World) ColliderPose(c simulation.ColliderHandle) (common.Transform2, bool) {
	if int(c) < 0 || int(c) >= len(w.fixtures) {
		return common.Transform2{}, false
	}
	xf := w.fixtures[c].GetBody().GetTransform()
	return common.Transform2{
		Rotation:    common.Rot2{Cos: float32(xf.Q.C), Sin: float32(xf.Q.S)},
		Translation: common.Vec2{X: float32(xf.P.X), Y: float32(xf.P.Y)},
	}, true
}

// Body returns the velocity of a registered body and whether it is dynamic.
//
// Parameters:
//   - b: the body handle
//
// Returns:
//   - simulation.BodyVelocity: the linear and angular velocity
//   - bool: true if the body is dynamic
//   - bool: false if the handle was never registered
func (w *World) Body(b simulation.BodyHandle) (simulation.BodyVelocity, bool, bool) {
	if int(b) < 0 || int(b) >= len(w.bodies) {
		return simulation.BodyVelocity{}, false, false
	}
	body := w.bodies[b]
	linear := body.GetLinearVelocity()
	vel := simulation.BodyVelocity{
		Linear:  common.Vec2{X: float32(linear.X), Y: float32(linear.Y)},
		Angular: float32(body.GetAngularVelocity()),
	}
	return vel, body.GetType() == box2d.B2BodyType.B2_dynamicBody, true
}

// Dt returns the fixed frame timestep in seconds.
//
// Returns:
//   - float32: the timestep
func (w *World) Dt() float32 {
	return w.dt
}

// Raw returns the underlying Box2D world for scene setup needs not covered
// by the adapter.
//
// Returns:
//   - *box2d.B2World: the wrapped world
func (w *World) Raw() *box2d.B2World {
	return &w.world
}

var _ simulation.RigidWorld = &World{}
