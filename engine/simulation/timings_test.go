package simulation

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimings_AccumulateAdditivity(t *testing.T) {
	// For every substep count in range, the aggregate of a stage must equal
	// the sum of that stage's per-substep (end - start) deltas.
	rng := rand.New(rand.NewSource(42))

	for substeps := 1; substeps <= 64; substeps++ {
		samples := make([]float64, substeps*StageCount*2)
		expected := [StageCount]float64{}

		cursor := 0.0
		for i := 0; i < substeps; i++ {
			for k := 0; k < StageCount; k++ {
				delta := rng.Float64() * 3.0
				idx := (i*StageCount + k) * 2
				samples[idx] = cursor
				samples[idx+1] = cursor + delta
				cursor += delta
				expected[k] += delta
			}
		}

		var agg Timings
		agg.Accumulate(samples, substeps)

		stages := agg.stages()
		for k := 0; k < StageCount; k++ {
			require.InDelta(t, expected[k], *stages[k], 1e-9,
				"substeps=%d stage=%d", substeps, k)
		}
	}
}

func TestTimings_AccumulateSumsAcrossCalls(t *testing.T) {
	samples := make([]float64, StageCount*2)
	for k := 0; k < StageCount; k++ {
		samples[k*2] = 0
		samples[k*2+1] = 1
	}

	var agg Timings
	agg.Accumulate(samples, 1)
	agg.Accumulate(samples, 1)
	assert.InDelta(t, 2.0, agg.GridSort, 1e-9, "accumulation adds, never overwrites")
}

func TestTimings_AccumulateShortBufferPanics(t *testing.T) {
	var agg Timings
	short := make([]float64, 4*StageCount*2-1)
	assert.Panics(t, func() {
		agg.Accumulate(short, 4)
	})
}

func TestTimings_Total(t *testing.T) {
	agg := Timings{
		GridSort:        1,
		GridUpdateCDF:   2,
		P2GCDF:          3,
		G2PCDF:          4,
		P2G:             5,
		GridUpdate:      6,
		G2P:             7,
		ParticlesUpdate: 8,
		IntegrateBodies: 9,
	}
	assert.InDelta(t, 45.0, agg.Total(), 1e-9)

	var zero Timings
	assert.Zero(t, zero.Total())

	// Total must be callable directly on a returned snapshot.
	snapshot := func() Timings { return Timings{P2G: 1.5, G2P: 0.5} }
	assert.InDelta(t, 2.0, snapshot().Total(), 1e-9)
}
