package gpu

import (
	"github.com/Carmen-Shannon/mpm-go/engine/simulation"
	"github.com/cogentcore/webgpu/wgpu"
)

// KernelInvocation is one registered compute dispatch: a pipeline, its bind
// group, and the workgroup grid. The WGSL kernels themselves belong to the
// MPM solver that registers them; the queue only owns the encoding order.
type KernelInvocation struct {
	// Label names the pipeline stage, used as the compute pass debug label.
	Label string
	// Pipeline is the compute pipeline to dispatch.
	Pipeline *wgpu.ComputePipeline
	// BindGroup is bound at group 0 for the dispatch.
	BindGroup *wgpu.BindGroup
	// Workgroups is the dispatch grid in x, y, z.
	Workgroups [3]uint32
}

// KernelQueue holds the ordered kernel invocations making up one simulation
// substep. Registered once at scene setup, encoded once per substep per
// frame; the registration order must match the stage order of the timing
// aggregate.
type KernelQueue struct {
	invocations []KernelInvocation
}

// NewKernelQueue creates an empty kernel queue.
//
// Returns:
//   - *KernelQueue: the newly created queue
func NewKernelQueue() *KernelQueue {
	return &KernelQueue{}
}

// Register appends an invocation to the queue.
//
// Parameters:
//   - inv: the kernel invocation to append
func (q *KernelQueue) Register(inv KernelInvocation) {
	q.invocations = append(q.invocations, inv)
}

// Len returns the number of registered invocations.
//
// Returns:
//   - int: the invocation count
func (q *KernelQueue) Len() int {
	return len(q.invocations)
}

// Encode encodes every registered invocation onto the frame, one compute
// pass per invocation. When queries is non-nil each pass is bracketed by a
// begin/end timestamp pair, so one encode contributes 2 samples per
// invocation.
//
// Parameters:
//   - f: the frame receiving the passes
//   - queries: the live query-set, or nil when profiling is off
func (q *KernelQueue) Encode(f *Frame, queries simulation.TimestampQueries) {
	var ts *Timestamps
	if queries != nil {
		// A foreign implementation cannot supply a wgpu query-set; encode
		// without timestamps rather than fail the frame.
		ts, _ = queries.(*Timestamps)
	}

	for _, inv := range q.invocations {
		encodeInvocation(f, inv, ts)
	}
}

func encodeInvocation(f *Frame, inv KernelInvocation, ts *Timestamps) {
	var begin, end uint32
	timed := false
	if ts != nil {
		begin, end, timed = ts.NextPair()
	}
	if timed {
		ts.writeSample(f, begin)
	}

	pass := f.encoder.BeginComputePass(&wgpu.ComputePassDescriptor{Label: inv.Label})
	pass.SetPipeline(inv.Pipeline)
	if inv.BindGroup != nil {
		pass.SetBindGroup(0, inv.BindGroup, nil)
	}
	pass.DispatchWorkgroups(inv.Workgroups[0], inv.Workgroups[1], inv.Workgroups[2])
	pass.End()

	if timed {
		ts.writeSample(f, end)
	}
}
