package gpu

import (
	"github.com/Carmen-Shannon/mpm-go/common"
	"github.com/Carmen-Shannon/mpm-go/engine/simulation"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
)

// gpuVelocity is the velocity record layout uploaded to the GPU: a WGSL
// struct of vec2<f32> linear plus f32 angular, padded to 16 bytes.
type gpuVelocity struct {
	Linear  common.Vec2
	Angular float32
	_       float32
}

const (
	bodyPoseStride     = 16 // [cos, sin, x, y] as f32
	bodyVelocityStride = 16
)

// SimData owns the GPU-resident simulation data shared between the CPU frame
// loop and the MPM kernels: the per-body pose and velocity upload buffers,
// the poses staging buffer, the substep kernel queue, an optional render
// repack invocation, and the coupling set fixed at creation. It implements
// simulation.Context.
type SimData struct {
	device   *Device
	coupling []simulation.CouplingEntry

	posesBuf *wgpu.Buffer
	velsBuf  *wgpu.Buffer

	posesStaging *StagingBuffer

	substeps *KernelQueue
	repack   *KernelInvocation
}

// NewSimData allocates the upload and staging buffers for the given coupling
// set. The set is copied and immutable afterwards; its order is the stable
// upload order for the whole session.
//
// Parameters:
//   - device: the device to allocate on
//   - coupling: the rigid-body couplings established at scene setup
//
// Returns:
//   - *SimData: the newly created simulation data
//   - error: an error if buffer allocation fails
func NewSimData(device *Device, coupling []simulation.CouplingEntry) (*SimData, error) {
	// WebGPU forbids zero-sized buffers; an empty coupling set still gets
	// one stride of backing storage.
	count := max(len(coupling), 1)

	posesBuf, err := device.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Body Poses",
		Size:  uint64(count) * bodyPoseStride,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		return nil, errors.Wrap(err, "gpu: create body poses buffer")
	}

	velsBuf, err := device.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Body Velocities",
		Size:  uint64(count) * bodyVelocityStride,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		posesBuf.Release()
		return nil, errors.Wrap(err, "gpu: create body velocities buffer")
	}

	posesStaging, err := NewStagingBuffer(device, uint64(count)*bodyPoseStride)
	if err != nil {
		posesBuf.Release()
		velsBuf.Release()
		return nil, err
	}

	return &SimData{
		device:       device,
		coupling:     append([]simulation.CouplingEntry(nil), coupling...),
		posesBuf:     posesBuf,
		velsBuf:      velsBuf,
		posesStaging: posesStaging,
		substeps:     NewKernelQueue(),
	}, nil
}

// Coupling returns the coupling set, in stable upload order.
//
// Returns:
//   - []simulation.CouplingEntry: the coupling entries
func (d *SimData) Coupling() []simulation.CouplingEntry {
	return d.coupling
}

// WriteBodyPoses uploads the per-entry world poses at offset 0, fully
// replacing the previous frame's values.
//
// Parameters:
//   - poses: one pose per coupling entry, in coupling order
func (d *SimData) WriteBodyPoses(poses []common.Transform2) {
	if len(poses) == 0 {
		return
	}
	d.device.queue.WriteBuffer(d.posesBuf, 0, common.SliceToBytes(poses))
}

// WriteBodyVelocities uploads the per-entry velocities at offset 0, fully
// replacing the previous frame's values.
//
// Parameters:
//   - vels: one velocity per coupling entry, in coupling order
func (d *SimData) WriteBodyVelocities(vels []simulation.BodyVelocity) {
	if len(vels) == 0 {
		return
	}
	records := make([]gpuVelocity, len(vels))
	for i, v := range vels {
		records[i] = gpuVelocity{Linear: v.Linear, Angular: v.Angular}
	}
	d.device.queue.WriteBuffer(d.velsBuf, 0, common.SliceToBytes(records))
}

// RegisterSubstepKernel appends a kernel invocation to the substep queue.
// The MPM solver registers its kernels once, in stage order; the order must
// match the stage order of the timing aggregate.
//
// Parameters:
//   - inv: the kernel invocation to register
func (d *SimData) RegisterSubstepKernel(inv KernelInvocation) {
	d.substeps.Register(inv)
}

// SetRenderRepack attaches the kernel that repacks live particle state into
// the render-instance layout. Pass nil to detach.
//
// Parameters:
//   - inv: the repack invocation, or nil
func (d *SimData) SetRenderRepack(inv *KernelInvocation) {
	d.repack = inv
}

// QueueSubsteps encodes the substep kernel queue the given number of times
// onto the frame, all sharing the same command batch.
//
// Parameters:
//   - f: the frame receiving the commands
//   - substeps: how many substeps to enqueue
//   - queries: the live query-set, or nil when profiling is off
func (d *SimData) QueueSubsteps(f simulation.Frame, substeps int, queries simulation.TimestampQueries) {
	frame := mustFrame(f)
	for i := 0; i < substeps; i++ {
		d.substeps.Encode(frame, queries)
	}
}

// QueuePoseReadback enqueues a device-to-staging copy of the post-step body
// poses. The staged poses are where coupled bodies would end up if two-way
// feedback were enabled; nothing consumes them yet.
//
// Parameters:
//   - f: the frame receiving the copy command
func (d *SimData) QueuePoseReadback(f simulation.Frame) {
	d.posesStaging.CopyFrom(mustFrame(f), d.posesBuf)
}

// QueueRenderRepack encodes the render repack invocation if one is attached.
//
// Parameters:
//   - f: the frame receiving the command
//   - queries: the live query-set, or nil when profiling is off
//
// Returns:
//   - bool: false when no repack invocation is attached
func (d *SimData) QueueRenderRepack(f simulation.Frame, queries simulation.TimestampQueries) bool {
	if d.repack == nil {
		return false
	}
	var ts *Timestamps
	if queries != nil {
		ts, _ = queries.(*Timestamps)
	}
	encodeInvocation(mustFrame(f), *d.repack, ts)
	return true
}

// PosesBuffer returns the pose upload buffer, for bind group creation by the
// kernel owner.
//
// Returns:
//   - *wgpu.Buffer: the pose buffer
func (d *SimData) PosesBuffer() *wgpu.Buffer {
	return d.posesBuf
}

// VelocitiesBuffer returns the velocity upload buffer.
//
// Returns:
//   - *wgpu.Buffer: the velocity buffer
func (d *SimData) VelocitiesBuffer() *wgpu.Buffer {
	return d.velsBuf
}

// PosesStaging returns the staging buffer holding the post-step pose copy.
//
// Returns:
//   - *StagingBuffer: the staging buffer
func (d *SimData) PosesStaging() *StagingBuffer {
	return d.posesStaging
}

// Release frees all GPU buffers owned by the simulation data.
func (d *SimData) Release() {
	if d.posesBuf != nil {
		d.posesBuf.Release()
		d.posesBuf = nil
	}
	if d.velsBuf != nil {
		d.velsBuf.Release()
		d.velsBuf = nil
	}
	if d.posesStaging != nil {
		d.posesStaging.Release()
		d.posesStaging = nil
	}
}

func mustFrame(f simulation.Frame) *Frame {
	frame, ok := f.(*Frame)
	if !ok {
		panic("gpu: simulation data driven by a foreign frame implementation")
	}
	return frame
}

var _ simulation.Context = &SimData{}
