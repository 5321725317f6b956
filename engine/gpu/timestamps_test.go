package gpu

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeSamplesMs(t *testing.T) {
	// Three samples: 0 ticks, 1ms worth of ticks, and 2.5ms.
	ticks := []uint64{0, 1_000_000, 2_500_000}
	raw := make([]byte, len(ticks)*timestampSampleBytes)
	for i, v := range ticks {
		binary.LittleEndian.PutUint64(raw[i*timestampSampleBytes:], v)
	}

	samples := decodeSamplesMs(raw, uint32(len(ticks)))
	assert.Len(t, samples, 3)
	assert.InDelta(t, 0.0, samples[0], 1e-12)
	assert.InDelta(t, 1.0, samples[1], 1e-9)
	assert.InDelta(t, 2.5, samples[2], 1e-9)
}

func TestDecodeSamplesMsIgnoresTrailingBytes(t *testing.T) {
	raw := make([]byte, 4*timestampSampleBytes)
	binary.LittleEndian.PutUint64(raw, 3_000_000)

	samples := decodeSamplesMs(raw, 1)
	assert.Len(t, samples, 1)
	assert.InDelta(t, 3.0, samples[0], 1e-9)
}
