package simulation

import (
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/mpm-go/common"
	"go.uber.org/zap"
)

// StepperBuilderOption is a functional option for configuring a Stepper.
// Use the With* functions to create options that are applied directly to the
// stepper instance.
type StepperBuilderOption func(*Stepper)

// readbackWorkers bounds the pool backing the default spawner. One worker
// suffices for the single-producer profiling design; a second absorbs a
// late-resolving frame overlapping the next one.
const readbackWorkers = 2

// NewStepper creates a new Stepper driving the given device.
// Defaults: running, 1 substep, gravity (0, -9.81) at factor 1.0, profiling
// enabled (degrading silently if the device lacks timestamp queries), a
// worker-pool-backed spawner for readback tasks, and a no-op logger.
//
// Parameters:
//   - device: the GPU device abstraction frames are created on
//   - options: functional options for stepper configuration
//
// Returns:
//   - *Stepper: the newly created stepper
func NewStepper(device Device, options ...StepperBuilderOption) *Stepper {
	s := &Stepper{
		numSubsteps:   1,
		gravityFactor: 1.0,
		gravity:       common.Vec2{X: 0, Y: -9.81},
		device:        device,
		channel:       NewTimingsChannel(),
		log:           zap.NewNop(),
		profile:       true,
	}
	s.runState.Store(int32(RunStateRunning))

	for _, opt := range options {
		opt(s)
	}

	if s.spawn == nil {
		pool := worker.NewDynamicWorkerPool(readbackWorkers, 64, 1*time.Second)
		s.spawn = func(task func()) {
			pool.SubmitTask(worker.Task{
				ID: int(s.taskID.Load()),
				Do: func() (any, error) {
					task()
					return nil, nil
				},
			})
		}
	}

	return s
}

// WithSubsteps sets the number of simulation substeps enqueued per frame.
// Values < 1 are clamped to 1.
//
// Parameters:
//   - n: substeps per frame (typically 1-32)
//
// Returns:
//   - StepperBuilderOption: option function to apply
func WithSubsteps(n int) StepperBuilderOption {
	return func(s *Stepper) {
		s.numSubsteps = max(n, 1)
	}
}

// WithGravityFactor sets the scale applied to the gravity contribution
// injected into dynamic coupled bodies.
//
// Parameters:
//   - f: the gravity factor (1.0 = unscaled)
//
// Returns:
//   - StepperBuilderOption: option function to apply
func WithGravityFactor(f float32) StepperBuilderOption {
	return func(s *Stepper) {
		s.gravityFactor = f
	}
}

// WithGravity overrides the gravity vector, default (0, -9.81).
//
// Parameters:
//   - g: the gravity acceleration vector in m/s²
//
// Returns:
//   - StepperBuilderOption: option function to apply
func WithGravity(g common.Vec2) StepperBuilderOption {
	return func(s *Stepper) {
		s.gravity = g
	}
}

// WithProfiling enables or disables GPU timing collection. Enabled by
// default; a device without timestamp-query support disables it silently at
// the first profiled frame regardless of this option.
//
// Parameters:
//   - enabled: if true, collect per-stage GPU timings
//
// Returns:
//   - StepperBuilderOption: option function to apply
func WithProfiling(enabled bool) StepperBuilderOption {
	return func(s *Stepper) {
		s.profile = enabled
	}
}

// WithRunState sets the initial run state, default RunStateRunning.
//
// Parameters:
//   - state: the initial state
//
// Returns:
//   - StepperBuilderOption: option function to apply
func WithRunState(state RunState) StepperBuilderOption {
	return func(s *Stepper) {
		s.runState.Store(int32(state))
	}
}

// WithSpawner sets the background task spawner used for timestamp readback.
// The default submits to an internal worker pool; tests inject a spawner
// that runs the task synchronously.
//
// Parameters:
//   - spawn: the spawner to use
//
// Returns:
//   - StepperBuilderOption: option function to apply
func WithSpawner(spawn Spawner) StepperBuilderOption {
	return func(s *Stepper) {
		s.spawn = spawn
	}
}

// WithChannel sets the profiling channel, default a fresh unbounded channel.
// Sharing a channel lets a host observe aggregates without polling the
// stepper snapshot.
//
// Parameters:
//   - c: the channel to use
//
// Returns:
//   - StepperBuilderOption: option function to apply
func WithChannel(c *TimingsChannel) StepperBuilderOption {
	return func(s *Stepper) {
		s.channel = c
	}
}

// WithLogger sets the logger, default a no-op logger.
//
// Parameters:
//   - log: the zap logger to use
//
// Returns:
//   - StepperBuilderOption: option function to apply
func WithLogger(log *zap.Logger) StepperBuilderOption {
	return func(s *Stepper) {
		if log != nil {
			s.log = log
		}
	}
}
