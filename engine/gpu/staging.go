package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
)

// StagingBuffer is a map-readable buffer used to copy GPU-computed state
// back off the device without blocking the submitting thread. The copy is
// enqueued inside the frame; the blocking Read happens elsewhere, after the
// frame resolves. The buffer is overwritten every frame with no versioning —
// a reader must not assume staged data is stable across frames.
type StagingBuffer struct {
	device *Device
	buffer *wgpu.Buffer
	size   uint64
}

// NewStagingBuffer creates a staging buffer of the given byte size.
//
// Parameters:
//   - device: the device to allocate on
//   - size: the buffer size in bytes
//
// Returns:
//   - *StagingBuffer: the newly created buffer
//   - error: an error if allocation fails
func NewStagingBuffer(device *Device, size uint64) (*StagingBuffer, error) {
	buffer, err := device.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Staging Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		return nil, errors.Wrap(err, "gpu: create staging buffer")
	}
	return &StagingBuffer{device: device, buffer: buffer, size: size}, nil
}

// CopyFrom enqueues a device-to-staging copy of src into this buffer.
//
// Parameters:
//   - f: the frame whose encoder receives the copy command
//   - src: the device buffer to copy from; must be at least as large
func (s *StagingBuffer) CopyFrom(f *Frame, src *wgpu.Buffer) {
	f.encoder.CopyBufferToBuffer(src, 0, s.buffer, 0, s.size)
}

// Read blocks until outstanding GPU work completes, then returns a copy of
// the staged bytes. Never call this from the frame loop.
//
// Returns:
//   - []byte: a copy of the staged contents
//   - error: an error if the buffer could not be mapped
func (s *StagingBuffer) Read() ([]byte, error) {
	var status wgpu.BufferMapAsyncStatus
	err := s.buffer.MapAsync(wgpu.MapModeRead, 0, s.size, func(st wgpu.BufferMapAsyncStatus) {
		status = st
	})
	if err != nil {
		return nil, errors.Wrap(err, "gpu: map staging buffer")
	}
	s.device.device.Poll(true, nil)
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, errors.Errorf("gpu: staging buffer map failed with status %v", status)
	}
	defer s.buffer.Unmap()

	mapped := s.buffer.GetMappedRange(0, uint(s.size))
	out := make([]byte, len(mapped))
	copy(out, mapped)
	return out, nil
}

// Release frees the staging buffer.
func (s *StagingBuffer) Release() {
	if s.buffer != nil {
		s.buffer.Release()
		s.buffer = nil
	}
}
