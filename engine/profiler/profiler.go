package profiler

import (
	"log"
	"runtime"
	"time"

	"github.com/Carmen-Shannon/mpm-go/engine/simulation"
)

// Profiler tracks frame rate, memory statistics, and the latest GPU stage
// timings for performance monitoring. Outputs stats to the log at a
// configurable interval.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	// timingsSource, when set, supplies the most recent GPU timing snapshot
	// for the overlay line. The snapshot lags the frame that produced it by
	// at least one invocation; that is inherent to async readback.
	timingsSource func() simulation.Timings
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		frameCount:     0,
		lastTime:       time.Now(),
		updateInterval: time.Second,
		memStats:       runtime.MemStats{},
	}
}

// SetTimingsSource attaches a GPU timing snapshot provider, typically the
// stepper's Timings method. When attached, each stats line includes the
// per-stage GPU breakdown and total.
//
// Parameters:
//   - source: function returning the latest timing snapshot
func (p *Profiler) SetTimingsSource(source func() simulation.Timings) {
	p.timingsSource = source
}

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause
// times, total memory, and — when a timings source is attached — the GPU
// stage breakdown.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := time.Now()
	elapsed := currentTime.Sub(p.lastTime)

	if elapsed < p.updateInterval {
		return false
	}

	fps := float64(p.frameCount) / elapsed.Seconds()

	runtime.ReadMemStats(&p.memStats)
	// Alloc: Bytes of allocated heap objects (live memory)
	// TotalAlloc: Cumulative bytes allocated for heap objects (increases forever, tracks churn)
	// Sys: Total bytes of memory obtained from the OS (actual process footprint)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024

	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc
	allocRateMB := float64(allocDelta) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 GC pauses.
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
	}

	log.Printf("[Profiler] FPS: %.2f | Heap: %.2f MB | Alloc Rate: %.2f MB/s | GC: %d (last: %d µs) | Sys: %.2f MB",
		fps, allocMB, allocRateMB, gcCount, lastPauseUs, sysMB)

	if p.timingsSource != nil {
		t := p.timingsSource()
		log.Printf("[Profiler] GPU ms/frame: sort %.3f | grid-cdf %.3f | p2g-cdf %.3f | g2p-cdf %.3f | p2g %.3f | grid %.3f | g2p %.3f | particles %.3f | bodies %.3f | total %.3f",
			t.GridSort, t.GridUpdateCDF, t.P2GCDF, t.G2PCDF, t.P2G,
			t.GridUpdate, t.G2P, t.ParticlesUpdate, t.IntegrateBodies, t.Total())
	}

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
