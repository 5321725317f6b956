package simulation

import "github.com/Carmen-Shannon/mpm-go/common"

// Device abstracts the GPU device/queue surface the stepper drives each
// frame. The production implementation wraps a WebGPU device; tests inject a
// fake so the stepper runs without hardware.
type Device interface {
	// BeginFrame creates a fresh command encoder for one frame's command
	// batch. The returned frame must be submitted exactly once.
	//
	// Returns:
	//   - Frame: the new frame
	//   - error: a device-level error (device lost, out of memory)
	BeginFrame() (Frame, error)

	// NewTimestamps creates a timestamp query-set with room for the given
	// number of samples. Returns nil when the device does not support
	// timestamp queries; profiling then degrades silently to no timing data.
	//
	// Parameters:
	//   - capacity: the number of timestamp samples the set must hold
	//
	// Returns:
	//   - TimestampQueries: the live query-set, or nil if unsupported
	NewTimestamps(capacity int) TimestampQueries
}

// Frame is one frame's GPU command batch under construction. Commands are
// enqueued in order and submitted to the GPU queue in a single non-blocking
// submission.
type Frame interface {
	// Submit finishes the command encoder and submits the batch to the GPU
	// queue. This is the single synchronization point with the frame loop;
	// submission is fire-and-forget.
	//
	// Returns:
	//   - error: a device-level error; not locally recoverable
	Submit() error
}

// Context is the GPU-resident simulation data the stepper writes into and
// enqueues work against. It owns the particle buffers, the per-body upload
// buffers, the poses staging buffer, and the coupling set; the stepper treats
// its internal layout as opaque.
type Context interface {
	// Coupling returns the coupling set established at scene setup. Read-only,
	// fixed for the session; iteration order is the stable upload order.
	//
	// Returns:
	//   - []CouplingEntry: the coupling entries
	Coupling() []CouplingEntry

	// WriteBodyPoses uploads the per-entry world poses to the pose upload
	// buffer at offset 0, fully replacing the previous frame's values.
	//
	// Parameters:
	//   - poses: one pose per coupling entry, in coupling order
	WriteBodyPoses(poses []common.Transform2)

	// WriteBodyVelocities uploads the per-entry velocities to the velocity
	// upload buffer at offset 0, fully replacing the previous frame's values.
	//
	// Parameters:
	//   - vels: one velocity per coupling entry, in coupling order
	WriteBodyVelocities(vels []BodyVelocity)

	// QueueSubsteps enqueues the simulation kernels for the given number of
	// substeps onto the frame. When queries is non-nil every kernel pass also
	// writes a begin/end timestamp pair into it.
	//
	// Parameters:
	//   - f: the frame receiving the commands
	//   - substeps: how many substeps to enqueue (positive)
	//   - queries: the live query-set, or nil when profiling is off
	QueueSubsteps(f Frame, substeps int, queries TimestampQueries)

	// QueuePoseReadback enqueues a device-to-staging copy of the post-step
	// body poses so a later read can observe where coupled bodies would end
	// up if two-way feedback were enabled.
	//
	// Parameters:
	//   - f: the frame receiving the copy command
	QueuePoseReadback(f Frame)

	// QueueRenderRepack enqueues the kernel that repacks live particle state
	// into the render-instance layout, if a render-instance buffer exists.
	//
	// Parameters:
	//   - f: the frame receiving the command
	//   - queries: the live query-set, or nil when profiling is off
	//
	// Returns:
	//   - bool: false when no instance buffer is attached and nothing was enqueued
	QueueRenderRepack(f Frame, queries TimestampQueries) bool
}
