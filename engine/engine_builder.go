package engine

import (
	"time"

	"github.com/Carmen-Shannon/mpm-go/engine/simulation"
	"github.com/Carmen-Shannon/mpm-go/engine/window"
	"go.uber.org/zap"
)

// EngineBuilderOption defines a functional option for configuring the engine.
type EngineBuilderOption func(*engine)

// WithWindow attaches a window to the engine. Without one the engine runs
// headless and Run blocks until Quit.
//
// Parameters:
//   - w: the window to attach
//
// Returns:
//   - EngineBuilderOption: the option function
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithStepper attaches the simulation stepper driven once per frame.
//
// Parameters:
//   - s: the stepper
//
// Returns:
//   - EngineBuilderOption: the option function
func WithStepper(s *simulation.Stepper) EngineBuilderOption {
	return func(e *engine) {
		e.stepper = s
	}
}

// WithSimulationData attaches the GPU-resident simulation data the stepper
// operates on each frame.
//
// Parameters:
//   - data: the simulation context
//
// Returns:
//   - EngineBuilderOption: the option function
func WithSimulationData(data simulation.Context) EngineBuilderOption {
	return func(e *engine) {
		e.data = data
	}
}

// WithRigidWorld attaches the CPU rigid-body world advanced in lockstep with
// the GPU simulation.
//
// Parameters:
//   - w: the rigid-body world
//
// Returns:
//   - EngineBuilderOption: the option function
func WithRigidWorld(w RigidStepper) EngineBuilderOption {
	return func(e *engine) {
		e.world = w
	}
}

// WithFrameRate sets the initial frame rate in frames per second.
//
// Parameters:
//   - fps: target frames per second (values <= 0 fall back to 60)
//
// Returns:
//   - EngineBuilderOption: the option function
func WithFrameRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		if fps <= 0 {
			fps = 60
		}
		e.frameRate = time.Second / time.Duration(fps)
	}
}

// WithProfiling enables performance profiling from startup.
//
// Returns:
//   - EngineBuilderOption: the option function
func WithProfiling() EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = true
	}
}

// WithEngineLogger sets the engine's structured logger.
//
// Parameters:
//   - log: the logger
//
// Returns:
//   - EngineBuilderOption: the option function
func WithEngineLogger(log *zap.Logger) EngineBuilderOption {
	return func(e *engine) {
		if log != nil {
			e.log = log
		}
	}
}
