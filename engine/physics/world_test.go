package physics

import (
	"testing"

	"github.com/ByteArena/box2d"
	"github.com/Carmen-Shannon/mpm-go/engine/simulation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeBody(w *World, bodyType uint8, x, y float64) (*box2d.B2Body, *box2d.B2Fixture) {
	def := box2d.NewB2BodyDef()
	def.Type = bodyType
	def.Position = box2d.MakeB2Vec2(x, y)
	body := w.CreateBody(def)

	shape := box2d.NewB2PolygonShape()
	shape.SetAsBox(1.0, 1.0)
	fixture := body.CreateFixture(shape, 1.0)
	return body, fixture
}

func TestWorld_ReadyGate(t *testing.T) {
	w := NewWorld()
	assert.False(t, w.Ready(), "a world is not sampleable before scene setup finalizes it")
	w.Finalize()
	assert.True(t, w.Ready())
}

func TestWorld_HandlesFollowRegistrationOrder(t *testing.T) {
	w := NewWorld()
	ground, groundFix := makeBody(w, box2d.B2BodyType.B2_staticBody, 0, -2)
	box, boxFix := makeBody(w, box2d.B2BodyType.B2_dynamicBody, 0, 5)

	e0 := w.RegisterCoupled(ground, groundFix, simulation.CouplingOneWay)
	e1 := w.RegisterCoupled(box, boxFix, simulation.CouplingTwoWay)

	assert.Equal(t, simulation.BodyHandle(0), e0.Body)
	assert.Equal(t, simulation.ColliderHandle(0), e0.Collider)
	assert.Equal(t, simulation.BodyHandle(1), e1.Body)
	assert.Equal(t, simulation.CouplingTwoWay, e1.Mode)

	coupling := w.Coupling()
	require.Len(t, coupling, 2)
	assert.Equal(t, e0, coupling[0])
	assert.Equal(t, e1, coupling[1])
}

func TestWorld_ColliderPose(t *testing.T) {
	w := NewWorld()
	body, fixture := makeBody(w, box2d.B2BodyType.B2_staticBody, 3, -2)
	entry := w.RegisterCoupled(body, fixture, simulation.CouplingOneWay)

	pose, ok := w.ColliderPose(entry.Collider)
	require.True(t, ok)
	assert.InDelta(t, 3.0, pose.Translation.X, 1e-6)
	assert.InDelta(t, -2.0, pose.Translation.Y, 1e-6)
	assert.InDelta(t, 1.0, pose.Rotation.Cos, 1e-6)
	assert.InDelta(t, 0.0, pose.Rotation.Sin, 1e-6)

	_, ok = w.ColliderPose(simulation.ColliderHandle(99))
	assert.False(t, ok, "unregistered handles are reported, not invented")
}

func TestWorld_BodyDynamicFlag(t *testing.T) {
	tests := []struct {
		name     string
		bodyType uint8
		dynamic  bool
	}{
		{name: "static", bodyType: box2d.B2BodyType.B2_staticBody, dynamic: false},
		{name: "kinematic", bodyType: box2d.B2BodyType.B2_kinematicBody, dynamic: false},
		{name: "dynamic", bodyType: box2d.B2BodyType.B2_dynamicBody, dynamic: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWorld()
			body, fixture := makeBody(w, tt.bodyType, 0, 10)
			entry := w.RegisterCoupled(body, fixture, simulation.CouplingOneWay)

			_, dynamic, ok := w.Body(entry.Body)
			require.True(t, ok)
			assert.Equal(t, tt.dynamic, dynamic)
		})
	}
}

func TestWorld_BodyVelocityAfterStep(t *testing.T) {
	w := NewWorld()
	body, fixture := makeBody(w, box2d.B2BodyType.B2_dynamicBody, 0, 10)
	entry := w.RegisterCoupled(body, fixture, simulation.CouplingOneWay)
	w.Finalize()

	before, _, ok := w.Body(entry.Body)
	require.True(t, ok)
	assert.Zero(t, before.Linear.Y)

	// One step of free fall under default gravity.
	w.Step()

	after, _, ok := w.Body(entry.Body)
	require.True(t, ok)
	assert.InDelta(t, -9.81*(1.0/60.0), after.Linear.Y, 1e-4)
}

func TestWorld_Dt(t *testing.T) {
	assert.InDelta(t, 1.0/60.0, NewWorld().Dt(), 1e-9)
	assert.InDelta(t, 1.0/120.0, NewWorld(WithDt(1.0/120.0)).Dt(), 1e-9)
}
