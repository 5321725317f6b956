package engine

import (
	"sync"
	"time"

	"github.com/Carmen-Shannon/mpm-go/engine/profiler"
	"github.com/Carmen-Shannon/mpm-go/engine/simulation"
	"github.com/Carmen-Shannon/mpm-go/engine/window"
	"go.uber.org/zap"
)

// engine implements the Engine interface.
// Coordinates the simulation frame loop and window thread.
type engine struct {
	tickRateChannel chan time.Duration // Channel for dynamic tick rate updates

	running bool
	wg      sync.WaitGroup

	quitChannel chan struct{}
	quitOnce    sync.Once // Ensures quitChannel is only closed once

	window window.Window

	profiler         *profiler.Profiler
	profilingEnabled bool

	frameRate time.Duration

	stepper *simulation.Stepper
	data    simulation.Context
	world   RigidStepper

	frameCallback func(deltaTime float32)

	log *zap.Logger
}

// RigidStepper is the CPU rigid-body world as the frame loop sees it: it can
// be advanced by one fixed timestep and sampled by the simulation stepper.
type RigidStepper interface {
	simulation.RigidWorld

	// Step advances the rigid-body world by one frame timestep.
	Step()
}

// Engine is the main entry point for the simulation host.
// It drives the lockstep frame loop: once per frame, the CPU rigid-body
// world advances one timestep and the GPU particle simulation steps in
// lockstep with it through the stepper.
type Engine interface {
	// Window returns the underlying window, or nil when running headless.
	//
	// Returns:
	//   - window.Window: the window instance
	Window() window.Window

	// Stepper returns the simulation stepper, for run-state control and
	// timing telemetry.
	//
	// Returns:
	//   - *simulation.Stepper: the stepper
	Stepper() *simulation.Stepper

	// EnableProfiler enables performance profiling output to the log.
	EnableProfiler()

	// DisableProfiler disables performance profiling output.
	DisableProfiler()

	// SetFrameRate sets the frame rate in frames per second.
	// The simulation steps once per frame at this rate.
	//
	// Parameters:
	//   - fps: target frames per second (defaults to 60 if <= 0)
	SetFrameRate(fps float64)

	// SetFrameCallback registers a function called after each frame's
	// simulation step, receiving the delta time in seconds. Use this for
	// per-frame host logic such as camera updates.
	//
	// Parameters:
	//   - callback: function to call each frame
	SetFrameCallback(callback func(deltaTime float32))

	// Run starts the frame loop. Blocks until the window closes or Quit is
	// called; when running headless it blocks until Quit.
	Run()

	// Quit signals all engine goroutines to stop and shuts down the engine.
	// Safe to call multiple times; subsequent calls are no-ops.
	Quit()
}

// NewEngine creates a new Engine instance with the provided options.
// The stepper, simulation data, and rigid-body world are wired via options;
// a window is optional (headless compute is supported).
//
// Parameters:
//   - options: functional options for engine configuration
//
// Returns:
//   - Engine: the newly created engine
func NewEngine(options ...EngineBuilderOption) Engine {
	e := &engine{
		tickRateChannel:  make(chan time.Duration, 1),
		quitChannel:      make(chan struct{}),
		running:          false,
		wg:               sync.WaitGroup{},
		profiler:         profiler.NewProfiler(),
		profilingEnabled: false,
		frameRate:        time.Second / 60,
		log:              zap.NewNop(),
	}

	for _, opt := range options {
		opt(e)
	}

	if e.stepper != nil {
		e.profiler.SetTimingsSource(e.stepper.Timings)
	}

	if e.window != nil && e.stepper != nil {
		// Space toggles run/pause, S single-steps. Input arrives on the
		// window thread; the run state is safe to set between frames.
		e.window.SetKeyDownCallback(func(key uint32) {
			switch key {
			case window.KeySpace:
				if e.stepper.RunState() == simulation.RunStatePaused {
					e.stepper.SetRunState(simulation.RunStateRunning)
				} else {
					e.stepper.SetRunState(simulation.RunStatePaused)
				}
			case window.KeyS:
				e.stepper.SetRunState(simulation.RunStateStep)
			}
		})
	}

	return e
}

func (e *engine) Window() window.Window {
	return e.window
}

func (e *engine) Stepper() *simulation.Stepper {
	return e.stepper
}

func (e *engine) Run() {
	e.handle()
	if e.window != nil {
		e.window.ProcessMessages()
		e.signalQuit()
	}
	e.wg.Wait()
}

// Quit signals all engine goroutines to stop and shuts down the engine.
// Safe to call multiple times; subsequent calls are no-ops due to sync.Once.
func (e *engine) Quit() {
	e.signalQuit()
}

// signalQuit closes the quit channel to signal all goroutines to exit.
// Uses sync.Once to ensure the channel is only closed once.
func (e *engine) signalQuit() {
	e.quitOnce.Do(func() {
		e.running = false
		close(e.quitChannel)
	})
}

// handle launches the frame-loop and quit goroutines.
// Each goroutine is tracked by the engine's WaitGroup.
func (e *engine) handle() {
	e.running = true
	e.wg.Add(2)
	go e.handleFrames()
	go e.handleQuit()
}

// handleFrames runs the fixed-rate frame loop in its own goroutine. Each
// tick advances the CPU rigid-body world one timestep and invokes the
// simulation stepper exactly once, preserving the lockstep contract.
// Listens for dynamic rate changes via tickRateChannel and exits when the
// quit channel is closed. Recovers from panics to avoid crashing the whole
// process and signals quit on recovery.
func (e *engine) handleFrames() {
	defer e.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("frame loop recovered from panic", zap.Any("panic", r))
			e.signalQuit()
		}
	}()

	ticker := time.NewTicker(e.frameRate)
	defer ticker.Stop()

	lastTick := time.Now()

	for {
		select {
		case <-e.quitChannel:
			return
		case <-ticker.C:
			now := time.Now()
			dt := float32(now.Sub(lastTick).Seconds())
			lastTick = now

			e.stepFrame(dt)
		case newRate := <-e.tickRateChannel:
			ticker.Reset(newRate)
			e.frameRate = newRate
		}
	}
}

// stepFrame executes one frame: CPU world step, GPU simulation step, host
// callback, profiler tick. Device-level step failures are fatal and tear
// the engine down.
func (e *engine) stepFrame(dt float32) {
	if e.world != nil && e.stepper != nil {
		if e.stepper.RunState() != simulation.RunStatePaused {
			e.world.Step()
		}
		if err := e.stepper.Step(e.data, e.world); err != nil {
			e.log.Error("simulation step failed", zap.Error(err))
			e.signalQuit()
			return
		}
	}

	if e.frameCallback != nil {
		e.frameCallback(dt)
	}

	if e.profilingEnabled && e.profiler != nil {
		e.profiler.Tick()
	}
}

// handleQuit blocks until the quit channel is closed, then decrements the WaitGroup.
func (e *engine) handleQuit() {
	defer e.wg.Done()
	<-e.quitChannel
}

// EnableProfiler enables performance profiling output to the log.
func (e *engine) EnableProfiler() {
	e.profilingEnabled = true
}

// DisableProfiler disables performance profiling output.
func (e *engine) DisableProfiler() {
	e.profilingEnabled = false
}

// SetFrameRate sets the frame rate in frames per second.
// If the engine is running, the change takes effect immediately.
func (e *engine) SetFrameRate(fps float64) {
	if fps <= 0 {
		fps = 60
	}
	newRate := time.Second / time.Duration(fps)

	if e.running {
		// Non-blocking send - if the channel holds a pending update, replace it.
		select {
		case e.tickRateChannel <- newRate:
		default:
			select {
			case <-e.tickRateChannel:
			default:
			}
			e.tickRateChannel <- newRate
		}
	} else {
		e.frameRate = newRate
	}
}

// SetFrameCallback registers the function called after each frame's step.
func (e *engine) SetFrameCallback(callback func(deltaTime float32)) {
	e.frameCallback = callback
}
