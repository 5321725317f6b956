package simulation

import "fmt"

// StageCount is the number of tracked pipeline stages per substep. Each stage
// contributes one begin/end timestamp pair per substep when profiling.
const StageCount = 9

// TimestampSampleCapacity is the size of the timestamp query-set allocated for
// a profiled frame. It bounds substeps at StageCount pairs each plus the
// render repack pass: 512 covers 28 substeps with headroom.
const TimestampSampleCapacity = 512

// TimestampQueries is the live GPU timestamp query-set captured for one frame.
// The stepper owns it between the channel drain and the frame submit; after
// submission, ownership transfers to the background readback task, which
// releases it once the results have been read. The two sides never touch the
// same query-set concurrently.
type TimestampQueries interface {
	// Clear resets the query allocation cursor so the set can be reused for a
	// new frame's queries.
	Clear()

	// NextPair reserves a begin/end timestamp slot pair for one compute pass.
	//
	// Returns:
	//   - uint32: the begin sample index
	//   - uint32: the end sample index
	//   - bool: false if the set is exhausted
	NextPair() (uint32, uint32, bool)

	// Resolve enqueues the query-resolution command at the end of the frame.
	//
	// Parameters:
	//   - f: the frame whose encoder receives the resolve command
	Resolve(f Frame)

	// WaitResultsMs blocks until the GPU has resolved the query-set, then
	// returns every captured sample converted from raw ticks to milliseconds.
	// Only the background readback task may call this.
	//
	// Returns:
	//   - []float64: the resolved samples in milliseconds
	//   - error: an error if the readback failed
	WaitResultsMs() ([]float64, error)

	// Release frees the GPU resources backing the query-set.
	Release()
}

// Timings aggregates per-stage GPU execution durations for one full frame.
// Each stage field is the sum in milliseconds across all substeps executed in
// that frame, never a single substep's value. Queries, when non-nil, is the
// live query-set capturing raw timestamps for the current frame; aggregates
// produced by the background readback task carry only the millisecond fields.
type Timings struct {
	Queries TimestampQueries

	GridSort        float64
	GridUpdateCDF   float64
	P2GCDF          float64
	G2PCDF          float64
	P2G             float64
	GridUpdate      float64
	G2P             float64
	ParticlesUpdate float64
	IntegrateBodies float64
}

// Total returns the sum of all stage durations in milliseconds.
//
// Returns:
//   - float64: the total GPU time of the frame across all tracked stages
func (t Timings) Total() float64 {
	return t.GridSort +
		t.GridUpdateCDF +
		t.P2GCDF +
		t.G2PCDF +
		t.P2G +
		t.GridUpdate +
		t.G2P +
		t.ParticlesUpdate +
		t.IntegrateBodies
}

// stages returns the stage fields in encoding order. The order must match the
// order in which the kernel queue encodes its passes each substep.
func (t *Timings) stages() [StageCount]*float64 {
	return [StageCount]*float64{
		&t.GridSort,
		&t.GridUpdateCDF,
		&t.P2GCDF,
		&t.G2PCDF,
		&t.P2G,
		&t.GridUpdate,
		&t.G2P,
		&t.ParticlesUpdate,
		&t.IntegrateBodies,
	}
}

// Accumulate sums per-substep (end - start) timestamp deltas into the stage
// fields. The sample layout is substep-major: substep i occupies samples
// [i*StageCount*2, (i+1)*StageCount*2), two samples (begin, end) per stage.
// Samples beyond substeps*StageCount*2 (the render repack pass) are ignored.
//
// A buffer shorter than substeps*StageCount*2 means the query-set was created
// too small, which is a setup bug, not a runtime condition.
//
// Parameters:
//   - samplesMs: resolved timestamp samples in milliseconds
//   - substeps: the number of substeps executed in the frame
func (t *Timings) Accumulate(samplesMs []float64, substeps int) {
	if len(samplesMs) < substeps*StageCount*2 {
		panic(fmt.Sprintf(
			"simulation: timestamp buffer holds %d samples, need at least %d; query-set created too small",
			len(samplesMs), substeps*StageCount*2,
		))
	}

	stages := t.stages()
	for i := 0; i < substeps; i++ {
		times := samplesMs[i*StageCount*2:]
		for k, stage := range stages {
			*stage += times[k*2+1] - times[k*2]
		}
	}
}
