package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
)

// Frame is one frame's GPU command batch: a command encoder paired with the
// queue it submits to. Commands are enqueued through the other gpu types
// (KernelQueue, StagingBuffer, Timestamps) and the whole batch is submitted
// exactly once. Submission never blocks the calling goroutine; the GPU
// executes on its own timeline.
type Frame struct {
	encoder *wgpu.CommandEncoder
	queue   *wgpu.Queue

	submitted bool
}

// Submit finishes the command encoder and submits the batch to the GPU
// queue. Calling Submit twice is a programming error and panics.
//
// Returns:
//   - error: a device-level error (device lost, out of memory)
func (f *Frame) Submit() error {
	if f.submitted {
		panic("gpu: frame submitted twice")
	}
	f.submitted = true

	commandBuffer, err := f.encoder.Finish(nil)
	if err != nil {
		f.encoder.Release()
		return errors.Wrap(err, "gpu: finish command encoder")
	}

	f.queue.Submit(commandBuffer)
	commandBuffer.Release()
	f.encoder.Release()
	return nil
}

// Encoder returns the underlying command encoder for enqueueing commands.
// Must not be used after Submit.
//
// Returns:
//   - *wgpu.CommandEncoder: the frame's encoder
func (f *Frame) Encoder() *wgpu.CommandEncoder {
	return f.encoder
}
