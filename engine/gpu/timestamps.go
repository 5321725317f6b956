package gpu

import (
	"encoding/binary"

	"github.com/Carmen-Shannon/mpm-go/engine/simulation"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/pkg/errors"
)

const timestampSampleBytes = 8 // one GPU-clock sample is a uint64 tick count

// timestampPeriodNs is the assumed nanoseconds per GPU tick. The binding does
// not expose wgpuQueueGetTimestampPeriod; desktop Vulkan and Metal report 1ns,
// and stage deltas stay proportionally correct under any fixed period.
const timestampPeriodNs = 1.0

// Timestamps owns a GPU timestamp query-set for one frame plus the resolve
// and map-read buffers needed to get the raw tick samples back to the CPU.
// It implements simulation.TimestampQueries.
//
// Ownership follows the frame protocol: the stepper allocates sample pairs
// and enqueues the resolve while encoding, then hands the whole set to the
// background readback task, which calls WaitResultsMs and Release. The two
// sides never touch the same set concurrently.
type Timestamps struct {
	device *Device

	querySet   *wgpu.QuerySet
	resolveBuf *wgpu.Buffer
	readBuf    *wgpu.Buffer

	capacity uint32
	cursor   uint32
}

func newTimestamps(device *Device, capacity int) (*Timestamps, error) {
	querySet, err := device.device.CreateQuerySet(&wgpu.QuerySetDescriptor{
		Label: "Frame Timestamps",
		Type:  wgpu.QueryTypeTimestamp,
		Count: uint32(capacity),
	})
	if err != nil {
		return nil, errors.Wrap(err, "gpu: create query set")
	}

	size := uint64(capacity) * timestampSampleBytes
	resolveBuf, err := device.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Timestamps Resolve Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageQueryResolve | wgpu.BufferUsageCopySrc,
	})
	if err != nil {
		querySet.Release()
		return nil, errors.Wrap(err, "gpu: create timestamp resolve buffer")
	}

	readBuf, err := device.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "Timestamps Readback Buffer",
		Size:  size,
		Usage: wgpu.BufferUsageCopyDst | wgpu.BufferUsageMapRead,
	})
	if err != nil {
		querySet.Release()
		resolveBuf.Release()
		return nil, errors.Wrap(err, "gpu: create timestamp readback buffer")
	}

	return &Timestamps{
		device:     device,
		querySet:   querySet,
		resolveBuf: resolveBuf,
		readBuf:    readBuf,
		capacity:   uint32(capacity),
	}, nil
}

// Clear resets the allocation cursor so the set can capture a new frame.
func (t *Timestamps) Clear() {
	t.cursor = 0
}

// NextPair reserves a begin/end sample slot pair for one compute pass.
//
// Returns:
//   - uint32: the begin sample index
//   - uint32: the end sample index
//   - bool: false if the set is exhausted
func (t *Timestamps) NextPair() (uint32, uint32, bool) {
	if t.cursor+2 > t.capacity {
		return 0, 0, false
	}
	begin := t.cursor
	t.cursor += 2
	return begin, begin + 1, true
}

// writeSample records the GPU clock into the given query slot at this point
// in the command stream. The binding exposes no per-pass timestamp writes, so
// passes are bracketed with encoder-level samples instead.
func (t *Timestamps) writeSample(f *Frame, index uint32) {
	f.encoder.WriteTimestamp(t.querySet, index)
}

// Resolve enqueues resolution of all reserved queries into the resolve
// buffer, followed by a copy into the map-read buffer.
//
// Parameters:
//   - f: the frame whose encoder receives the commands
func (t *Timestamps) Resolve(f simulation.Frame) {
	frame, ok := f.(*Frame)
	if !ok {
		panic("gpu: timestamps resolved against a foreign frame implementation")
	}
	if t.cursor == 0 {
		return
	}
	frame.encoder.ResolveQuerySet(t.querySet, 0, t.cursor, t.resolveBuf, 0)
	frame.encoder.CopyBufferToBuffer(
		t.resolveBuf, 0,
		t.readBuf, 0,
		uint64(t.cursor)*timestampSampleBytes,
	)
}

// WaitResultsMs blocks until the GPU has executed the frame, then maps the
// readback buffer and converts every captured sample from raw ticks to
// milliseconds at the assumed tick period. Only the background
// readback task may call this; it never runs on the frame loop.
//
// Returns:
//   - []float64: the resolved samples in milliseconds, one per reserved slot
//   - error: an error if the buffer could not be mapped
func (t *Timestamps) WaitResultsMs() ([]float64, error) {
	size := uint64(t.cursor) * timestampSampleBytes
	if size == 0 {
		return nil, nil
	}

	var status wgpu.BufferMapAsyncStatus
	err := t.readBuf.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
	})
	if err != nil {
		return nil, errors.Wrap(err, "gpu: map timestamp readback buffer")
	}
	t.device.device.Poll(true, nil)
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return nil, errors.Errorf("gpu: timestamp readback map failed with status %v", status)
	}
	defer t.readBuf.Unmap()

	raw := t.readBuf.GetMappedRange(0, uint(size))
	return decodeSamplesMs(raw, t.cursor), nil
}

// decodeSamplesMs converts little-endian uint64 tick samples to milliseconds.
func decodeSamplesMs(raw []byte, count uint32) []float64 {
	samples := make([]float64, count)
	for i := range samples {
		ticks := binary.LittleEndian.Uint64(raw[i*timestampSampleBytes:])
		// 1e6 ns per ms.
		samples[i] = float64(ticks) * timestampPeriodNs / 1e6
	}
	return samples
}

// Release frees the query-set and both buffers.
func (t *Timestamps) Release() {
	if t.querySet != nil {
		t.querySet.Release()
		t.querySet = nil
	}
	if t.resolveBuf != nil {
		t.resolveBuf.Release()
		t.resolveBuf = nil
	}
	if t.readBuf != nil {
		t.readBuf.Release()
		t.readBuf = nil
	}
}
