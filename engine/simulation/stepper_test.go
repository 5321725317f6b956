package simulation

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/mpm-go/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syncSpawner runs readback tasks inline so tests observe their effects
// deterministically.
func syncSpawner() Spawner {
	return func(task func()) {
		task()
	}
}

type fakeFrame struct {
	calls     *[]string
	submitErr error
}

func (f *fakeFrame) Submit() error {
	*f.calls = append(*f.calls, "submit")
	return f.submitErr
}

type fakeQueries struct {
	calls    *[]string
	samples  []float64
	waitErr  error
	cursor   uint32
	cleared  int
	released int
}

func (q *fakeQueries) Clear() {
	q.cursor = 0
	q.cleared++
}

func (q *fakeQueries) NextPair() (uint32, uint32, bool) {
	begin := q.cursor
	q.cursor += 2
	return begin, begin + 1, true
}

func (q *fakeQueries) Resolve(_ Frame) {
	*q.calls = append(*q.calls, "resolve")
}

func (q *fakeQueries) WaitResultsMs() ([]float64, error) {
	return q.samples, q.waitErr
}

func (q *fakeQueries) Release() {
	q.released++
}

type fakeDevice struct {
	calls        *[]string
	queries      []*fakeQueries // returned by NewTimestamps in order; nil entry = unsupported
	queriesIdx   int
	beginErr     error
	submitErr    error
	noTimestamps bool
}

func (d *fakeDevice) BeginFrame() (Frame, error) {
	if d.beginErr != nil {
		return nil, d.beginErr
	}
	*d.calls = append(*d.calls, "begin")
	return &fakeFrame{calls: d.calls, submitErr: d.submitErr}, nil
}

func (d *fakeDevice) NewTimestamps(capacity int) TimestampQueries {
	if d.noTimestamps {
		return nil
	}
	if d.queriesIdx < len(d.queries) {
		q := d.queries[d.queriesIdx]
		d.queriesIdx++
		if q != nil {
			q.calls = d.calls
		}
		return q
	}
	// Default set carries a zeroed sample buffer sized like a real
	// query-set, so a synchronous readback always has enough to aggregate.
	return &fakeQueries{calls: d.calls, samples: make([]float64, capacity)}
}

type fakeContext struct {
	calls    *[]string
	coupling []CouplingEntry

	poses       []common.Transform2
	vels        []BodyVelocity
	substeps    []int
	profiled    []bool
	hasInstance bool
}

func (c *fakeContext) Coupling() []CouplingEntry {
	return c.coupling
}

func (c *fakeContext) WriteBodyPoses(poses []common.Transform2) {
	*c.calls = append(*c.calls, "poses")
	c.poses = poses
}

func (c *fakeContext) WriteBodyVelocities(vels []BodyVelocity) {
	*c.calls = append(*c.calls, "vels")
	c.vels = vels
}

func (c *fakeContext) QueueSubsteps(_ Frame, substeps int, queries TimestampQueries) {
	*c.calls = append(*c.calls, "substeps")
	c.substeps = append(c.substeps, substeps)
	c.profiled = append(c.profiled, queries != nil)
}

func (c *fakeContext) QueuePoseReadback(_ Frame) {
	*c.calls = append(*c.calls, "readback")
}

func (c *fakeContext) QueueRenderRepack(_ Frame, _ TimestampQueries) bool {
	*c.calls = append(*c.calls, "repack")
	return c.hasInstance
}

type fakeWorld struct {
	ready    bool
	dt       float32
	poses    map[ColliderHandle]common.Transform2
	vels     map[BodyHandle]BodyVelocity
	dynamic  map[BodyHandle]bool
	bodyMiss bool
}

func (w *fakeWorld) Ready() bool {
	return w.ready
}

func (w *fakeWorld) ColliderPose(c ColliderHandle) (common.Transform2, bool) {
	p, ok := w.poses[c]
	return p, ok
}

func (w *fakeWorld) Body(b BodyHandle) (BodyVelocity, bool, bool) {
	if w.bodyMiss {
		return BodyVelocity{}, false, false
	}
	v, ok := w.vels[b]
	return v, w.dynamic[b], ok
}

func (w *fakeWorld) Dt() float32 {
	return w.dt
}

// singleCouplingWorld builds a device, context, and world sharing one call
// log, so tests can assert the interleaving of device and context commands.
func singleCouplingWorld(dynamic bool) (*fakeDevice, *fakeContext, *fakeWorld, *[]string) {
	calls := &[]string{}
	device := &fakeDevice{calls: calls}
	ctx := &fakeContext{
		calls:    calls,
		coupling: []CouplingEntry{{Body: 0, Collider: 0, Mode: CouplingOneWay}},
	}
	world := &fakeWorld{
		ready:   true,
		dt:      1.0 / 60.0,
		poses:   map[ColliderHandle]common.Transform2{0: common.IdentityTransform2()},
		vels:    map[BodyHandle]BodyVelocity{0: {}},
		dynamic: map[BodyHandle]bool{0: dynamic},
	}
	return device, ctx, world, calls
}

func TestStepper_PausedIsNoOp(t *testing.T) {
	device, ctx, world, calls := singleCouplingWorld(true)
	s := NewStepper(device,
		WithProfiling(false),
		WithSpawner(syncSpawner()),
		WithRunState(RunStatePaused),
	)

	// A queued aggregate must not leak into the snapshot while paused.
	s.Channel().Send(Timings{P2G: 5})

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Step(ctx, world))
	}

	assert.Empty(t, *calls, "paused frames must not touch the GPU")
	assert.Nil(t, ctx.poses, "paused frames must not upload body state")
	assert.Zero(t, s.Timings().Total())
	assert.Equal(t, 1, s.Channel().Len(), "paused frames must not drain the channel")
}

func TestStepper_StepCollapsesToPaused(t *testing.T) {
	tests := []struct {
		name      string
		profiling bool
	}{
		{name: "profiling enabled", profiling: true},
		{name: "profiling disabled", profiling: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device, ctx, world, _ := singleCouplingWorld(true)
			s := NewStepper(device,
				WithProfiling(tt.profiling),
				WithSpawner(syncSpawner()),
				WithRunState(RunStateStep),
			)

			require.NoError(t, s.Step(ctx, world))
			assert.Equal(t, RunStatePaused, s.RunState())
			assert.Equal(t, []int{1}, ctx.substeps, "exactly one frame must execute")

			// A second invocation is gated by the collapsed state.
			require.NoError(t, s.Step(ctx, world))
			assert.Equal(t, []int{1}, ctx.substeps)
		})
	}
}

func TestStepper_GravityInjection(t *testing.T) {
	tests := []struct {
		name      string
		dynamic   bool
		substeps  int
		factor    float32
		expectedY float32
	}{
		{
			name:     "dynamic body, 4 substeps",
			dynamic:  true,
			substeps: 4,
			factor:   1.0,
			// -9.81 * (1/60) / 4
			expectedY: -9.81 * (1.0 / 60.0) / 4.0,
		},
		{
			name:      "static body receives no gravity",
			dynamic:   false,
			substeps:  4,
			factor:    1.0,
			expectedY: 0,
		},
		{
			name:      "gravity factor scales the contribution",
			dynamic:   true,
			substeps:  2,
			factor:    0.5,
			expectedY: -9.81 * 0.5 * (1.0 / 60.0) / 2.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			device, ctx, world, _ := singleCouplingWorld(tt.dynamic)
			s := NewStepper(device,
				WithProfiling(false),
				WithSpawner(syncSpawner()),
				WithSubsteps(tt.substeps),
				WithGravityFactor(tt.factor),
			)

			require.NoError(t, s.Step(ctx, world))
			require.Len(t, ctx.vels, 1)
			assert.InDelta(t, 0, ctx.vels[0].Linear.X, 1e-7)
			assert.InDelta(t, tt.expectedY, ctx.vels[0].Linear.Y, 1e-7)
			assert.InDelta(t, 0, ctx.vels[0].Angular, 1e-7)
		})
	}

	// Zero initial velocity, dt = 1/60, 4 substeps, gravity factor 1.0
	// uploads exactly (0, -0.040875).
	t.Run("reference value", func(t *testing.T) {
		device, ctx, world, _ := singleCouplingWorld(true)
		s := NewStepper(device,
			WithProfiling(false),
			WithSpawner(syncSpawner()),
			WithSubsteps(4),
		)

		require.NoError(t, s.Step(ctx, world))
		require.Len(t, ctx.vels, 1)
		assert.InDelta(t, -0.040875, ctx.vels[0].Linear.Y, 1e-6)
	})
}

func TestStepper_EmptyCoupling(t *testing.T) {
	calls := &[]string{}
	device := &fakeDevice{calls: calls}
	ctx := &fakeContext{calls: calls}
	world := &fakeWorld{ready: true, dt: 1.0 / 60.0}
	s := NewStepper(device,
		WithProfiling(false),
		WithSpawner(syncSpawner()),
		WithSubsteps(3),
	)

	require.NoError(t, s.Step(ctx, world))
	assert.Len(t, ctx.poses, 0)
	assert.Len(t, ctx.vels, 0)
	assert.Equal(t, []int{3}, ctx.substeps, "substeps still execute with no couplings")
}

func TestStepper_FrameCommandOrder(t *testing.T) {
	device, ctx, world, calls := singleCouplingWorld(true)
	s := NewStepper(device,
		WithProfiling(true),
		WithSpawner(syncSpawner()),
	)

	require.NoError(t, s.Step(ctx, world))
	assert.Equal(t, []string{
		"poses", "vels", "begin", "substeps", "readback", "repack", "resolve", "submit",
	}, *calls)
}

func TestStepper_WorldNotReadyIsNoOp(t *testing.T) {
	device, ctx, world, calls := singleCouplingWorld(true)
	world.ready = false
	s := NewStepper(device, WithProfiling(false), WithSpawner(syncSpawner()))

	require.NoError(t, s.Step(ctx, world))
	require.NoError(t, s.Step(nil, nil))
	assert.Empty(t, *calls)

	// Once the world comes up the next invocation proceeds normally.
	world.ready = true
	require.NoError(t, s.Step(ctx, world))
	assert.Equal(t, []int{1}, ctx.substeps)
}

func TestStepper_MissingHandlePanics(t *testing.T) {
	device, ctx, world, _ := singleCouplingWorld(true)
	s := NewStepper(device, WithProfiling(false), WithSpawner(syncSpawner()))

	t.Run("unknown collider", func(t *testing.T) {
		world.poses = map[ColliderHandle]common.Transform2{}
		assert.Panics(t, func() {
			_ = s.Step(ctx, world)
		})
	})

	t.Run("unknown body", func(t *testing.T) {
		world.poses = map[ColliderHandle]common.Transform2{0: common.IdentityTransform2()}
		world.bodyMiss = true
		assert.Panics(t, func() {
			_ = s.Step(ctx, world)
		})
	})
}

func TestStepper_SubmitErrorPropagates(t *testing.T) {
	deviceErr := errors.New("device lost")
	device, ctx, world, _ := singleCouplingWorld(true)
	device.submitErr = deviceErr
	s := NewStepper(device, WithProfiling(false), WithSpawner(syncSpawner()))

	err := s.Step(ctx, world)
	require.Error(t, err)
	assert.ErrorIs(t, err, deviceErr)
}

func TestStepper_BeginFrameErrorPropagates(t *testing.T) {
	deviceErr := errors.New("out of memory")
	device, ctx, world, _ := singleCouplingWorld(true)
	device.beginErr = deviceErr
	s := NewStepper(device, WithProfiling(false), WithSpawner(syncSpawner()))

	err := s.Step(ctx, world)
	require.Error(t, err)
	assert.ErrorIs(t, err, deviceErr)
}

func TestStepper_DrainKeepsLast(t *testing.T) {
	device, ctx, world, _ := singleCouplingWorld(true)
	s := NewStepper(device, WithProfiling(false), WithSpawner(syncSpawner()))

	s.Channel().Send(Timings{P2G: 1.0})
	s.Channel().Send(Timings{P2G: 2.5, G2P: 0.5})

	require.NoError(t, s.Step(ctx, world))
	snap := s.Timings()
	assert.Equal(t, 2.5, snap.P2G, "last enqueued aggregate wins, no merging")
	assert.Equal(t, 0.5, snap.G2P)
	assert.Zero(t, s.Channel().Len())
}

func TestStepper_DrainRetainsSnapshotWhenEmpty(t *testing.T) {
	device, ctx, world, _ := singleCouplingWorld(true)
	s := NewStepper(device, WithProfiling(false), WithSpawner(syncSpawner()))

	s.Channel().Send(Timings{GridSort: 3.0})
	require.NoError(t, s.Step(ctx, world))
	require.NoError(t, s.Step(ctx, world))
	assert.Equal(t, 3.0, s.Timings().GridSort, "empty drains keep the previous snapshot")
}

func TestStepper_ReadbackAggregation(t *testing.T) {
	const substeps = 2

	// Two substeps of StageCount stages, each pass taking 1ms, 2ms, ... in
	// sequence. The repack pass appends one extra pair that must be ignored.
	samples := make([]float64, 0, (substeps*StageCount+1)*2)
	cursor := 0.0
	for i := 0; i < substeps*StageCount+1; i++ {
		samples = append(samples, cursor, cursor+float64(i+1))
		cursor += float64(i + 1)
	}

	device, ctx, world, _ := singleCouplingWorld(true)
	device.queries = []*fakeQueries{{samples: samples}}
	s := NewStepper(device,
		WithProfiling(true),
		WithSpawner(syncSpawner()),
		WithSubsteps(substeps),
	)

	// First profiled frame: the synchronous spawner posts the aggregate
	// before Step returns, but the snapshot only updates on the next drain.
	require.NoError(t, s.Step(ctx, world))
	assert.Zero(t, s.Timings().Total(), "snapshot lags the frame that produced it")
	require.Equal(t, 1, s.Channel().Len())

	require.NoError(t, s.Step(ctx, world))
	snap := s.Timings()
	// Stage k sums deltas (k+1) and (StageCount+k+1) over the two substeps.
	assert.InDelta(t, float64(1+StageCount+1), snap.GridSort, 1e-9)
	assert.InDelta(t, float64(StageCount+2*StageCount), snap.IntegrateBodies, 1e-9)

	expectedTotal := 0.0
	for i := 0; i < substeps*StageCount; i++ {
		expectedTotal += float64(i + 1)
	}
	assert.InDelta(t, expectedTotal, snap.Total(), 1e-9)
}

func TestStepper_QuerySetOwnershipTransfer(t *testing.T) {
	q1 := &fakeQueries{samples: make([]float64, StageCount*2)}
	q2 := &fakeQueries{samples: make([]float64, StageCount*2)}
	device, ctx, world, _ := singleCouplingWorld(true)
	device.queries = []*fakeQueries{q1, q2}
	s := NewStepper(device,
		WithProfiling(true),
		WithSpawner(syncSpawner()),
	)

	require.NoError(t, s.Step(ctx, world))
	assert.Equal(t, 1, q1.released, "the readback task releases the set it was handed")

	require.NoError(t, s.Step(ctx, world))
	assert.Equal(t, 1, q2.released, "each profiled frame gets a fresh query-set")
	assert.Equal(t, 2, device.queriesIdx)
}

func TestStepper_ProfilingUnsupportedDegradesSilently(t *testing.T) {
	device, ctx, world, _ := singleCouplingWorld(true)
	device.noTimestamps = true
	spawned := 0
	s := NewStepper(device,
		WithProfiling(true),
		WithSpawner(func(task func()) {
			spawned++
			task()
		}),
	)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Step(ctx, world))
	}

	assert.Zero(t, spawned, "no readback task may be spawned without timestamp support")
	assert.Zero(t, s.Timings().Total())
	for _, profiled := range ctx.profiled {
		assert.False(t, profiled, "substeps must be enqueued without queries")
	}
}

func TestStepper_TunableAccessors(t *testing.T) {
	s := NewStepper(&fakeDevice{calls: &[]string{}}, WithProfiling(false), WithSpawner(syncSpawner()))

	s.SetNumSubsteps(0)
	assert.Equal(t, 1, s.NumSubsteps(), "substeps clamp to 1")
	s.SetNumSubsteps(16)
	assert.Equal(t, 16, s.NumSubsteps())

	s.SetGravityFactor(2.5)
	assert.Equal(t, float32(2.5), s.GravityFactor())

	s.SetRunState(RunStateStep)
	assert.Equal(t, RunStateStep, s.RunState())
}
