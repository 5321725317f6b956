package simulation

import (
	"fmt"

	"github.com/Carmen-Shannon/mpm-go/common"
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Spawner launches a detached background task. The default spawner submits to
// a worker pool; tests inject a synchronous spawner so readback resolves
// inline. Once spawned a task runs to completion with no cancellation path —
// outstanding tasks at teardown are the pool's problem, not the stepper's.
type Spawner func(task func())

// Stepper advances the GPU particle simulation in lockstep with the external
// rigid-body world, once per rendered frame. Per invocation it drains pending
// profiling results, uploads fresh rigid-body state for every coupling entry,
// enqueues the configured number of substeps plus an optional render repack
// pass, submits the whole batch to the GPU queue exactly once, and — when
// profiling — detaches a readback task that aggregates the frame's timestamps
// without ever blocking the frame loop.
//
// Exactly one Step invocation executes at a time; the caller owns frame
// pacing. The run state may be set from another goroutine at any time between
// invocations.
type Stepper struct {
	runState atomic.Int32

	numSubsteps   int
	gravityFactor float32
	gravity       common.Vec2

	device  Device
	channel *TimingsChannel
	spawn   Spawner
	log     *zap.Logger

	profile bool
	timings Timings
	taskID  atomic.Int64
}

// Step runs one frame of the simulation, implementing the per-invocation
// protocol: gate on run state, drain profiling results, upload coupled body
// state, enqueue substeps + pose readback + render repack, submit, and spawn
// the timestamp readback task. Must be called exactly once per frame by a
// single goroutine.
//
// A world that is not yet ready makes the invocation a silent no-op. A
// coupling entry referencing a handle the world no longer knows is a setup
// bug and panics. Device-level submission failures propagate as errors.
//
// Parameters:
//   - data: the GPU-resident simulation data for this session
//   - world: the read-only rigid-body world view for this frame
//
// Returns:
//   - error: a device-level fatal error, nil otherwise
func (s *Stepper) Step(data Context, world RigidWorld) error {
	if data == nil || world == nil || !world.Ready() {
		// The rigid-body world comes up asynchronously; retry next frame.
		return nil
	}

	if s.RunState() == RunStatePaused {
		return nil
	}

	// Drain every pending aggregate and keep the newest. Aggregates coming
	// off the channel never carry a live query-set, so the frame loop's own
	// set survives the overwrite.
	for {
		t, ok := s.channel.TryRecv()
		if !ok {
			break
		}
		t.Queries = s.timings.Queries
		s.timings = t
	}

	if s.profile {
		if s.timings.Queries != nil {
			// Left over from a frame that never handed it off; reuse it.
			s.timings.Queries.Clear()
		} else if s.timings.Queries = s.device.NewTimestamps(TimestampSampleCapacity); s.timings.Queries == nil {
			// Device lacks timestamp queries; timing collection degrades
			// silently to "no data" rather than erroring.
			s.profile = false
			s.log.Info("timestamp queries unsupported, gpu profiling disabled")
		}
	}

	s.uploadBodyState(data, world)

	frame, err := s.device.BeginFrame()
	if err != nil {
		return errors.Wrap(err, "simulation: begin frame")
	}

	data.QueueSubsteps(frame, s.numSubsteps, s.timings.Queries)
	data.QueuePoseReadback(frame)
	data.QueueRenderRepack(frame, s.timings.Queries)
	if q := s.timings.Queries; q != nil {
		q.Resolve(frame)
	}

	if err := frame.Submit(); err != nil {
		return errors.Wrap(err, "simulation: submit frame")
	}

	if q := s.timings.Queries; q != nil {
		// Ownership of the query-set transfers to the readback task; the
		// frame loop starts fresh next frame.
		s.timings.Queries = nil
		s.spawnReadback(q, s.numSubsteps)
	}

	if s.RunState() == RunStateStep {
		s.SetRunState(RunStatePaused)
	}
	return nil
}

// uploadBodyState samples every coupling entry from the rigid-body world and
// overwrites the GPU upload buffers at offset 0. Dynamic bodies receive the
// frame's gravity contribution scaled by dt_frame / num_substeps; static and
// kinematic bodies do not.
func (s *Stepper) uploadBodyState(data Context, world RigidWorld) {
	entries := data.Coupling()
	poses := make([]common.Transform2, len(entries))
	vels := make([]BodyVelocity, len(entries))

	gravityDt := s.gravity.Scale(s.gravityFactor * world.Dt() / float32(s.numSubsteps))
	for i, entry := range entries {
		pose, ok := world.ColliderPose(entry.Collider)
		if !ok {
			panic(fmt.Sprintf("simulation: coupling entry %d references unknown collider %d", i, entry.Collider))
		}
		vel, dynamic, ok := world.Body(entry.Body)
		if !ok {
			panic(fmt.Sprintf("simulation: coupling entry %d references unknown body %d", i, entry.Body))
		}
		if dynamic {
			vel.Linear = vel.Linear.Add(gravityDt)
		}
		poses[i] = pose
		vels[i] = vel
	}

	data.WriteBodyPoses(poses)
	data.WriteBodyVelocities(vels)
}

// spawnReadback detaches the background task that awaits the GPU's resolution
// of the frame's query-set, sums the per-substep stage deltas into a new
// aggregate, and posts it into the channel. The await suspends only the task,
// never the frame loop; a new frame may submit before this one resolves.
func (s *Stepper) spawnReadback(q TimestampQueries, substeps int) {
	id := s.taskID.Inc()
	s.spawn(func() {
		samples, err := q.WaitResultsMs()
		q.Release()
		if err != nil {
			s.log.Warn("timestamp readback failed",
				zap.Int64("task", id),
				zap.Error(err))
			return
		}

		var t Timings
		t.Accumulate(samples, substeps)
		s.channel.Send(t)
	})
}

// RunState returns the current run state.
//
// Returns:
//   - RunState: the current state
func (s *Stepper) RunState() RunState {
	return RunState(s.runState.Load())
}

// SetRunState sets the run state. Safe to call from any goroutine between
// invocations, e.g. from window input callbacks.
//
// Parameters:
//   - state: the new run state
func (s *Stepper) SetRunState(state RunState) {
	s.runState.Store(int32(state))
}

// NumSubsteps returns the configured number of substeps per frame.
//
// Returns:
//   - int: the substep count
func (s *Stepper) NumSubsteps() int {
	return s.numSubsteps
}

// SetNumSubsteps sets the number of substeps per frame. Values < 1 are
// clamped to 1.
//
// Parameters:
//   - n: the new substep count
func (s *Stepper) SetNumSubsteps(n int) {
	s.numSubsteps = max(n, 1)
}

// GravityFactor returns the gravity scale applied to dynamic coupled bodies.
//
// Returns:
//   - float32: the gravity factor
func (s *Stepper) GravityFactor() float32 {
	return s.gravityFactor
}

// SetGravityFactor sets the gravity scale applied to dynamic coupled bodies.
//
// Parameters:
//   - f: the new gravity factor
func (s *Stepper) SetGravityFactor(f float32) {
	s.gravityFactor = f
}

// Timings returns the externally visible timing snapshot: the most recently
// drained aggregate. Because readback is asynchronous the snapshot always
// lags the frame that produced it by at least one invocation.
//
// Returns:
//   - Timings: a copy of the snapshot, without the live query-set handle
func (s *Stepper) Timings() Timings {
	t := s.timings
	t.Queries = nil
	return t
}

// Channel returns the profiling channel shared with the readback tasks.
//
// Returns:
//   - *TimingsChannel: the channel
func (s *Stepper) Channel() *TimingsChannel {
	return s.channel
}
