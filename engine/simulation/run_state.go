package simulation

// RunState is the tri-state control flag governing whether a frame performs
// simulation work. It is set externally (input handling, UI) at any time
// between invocations; the only transition the stepper performs itself is
// RunStateStep -> RunStatePaused after executing a single frame.
type RunState int32

const (
	// RunStateRunning executes simulation substeps every frame.
	RunStateRunning RunState = iota
	// RunStatePaused skips all GPU work; the frame is a no-op.
	RunStatePaused
	// RunStateStep executes exactly one frame, then collapses to RunStatePaused.
	RunStateStep
)

// String returns a human-readable name for the run state.
//
// Returns:
//   - string: "running", "paused", "step", or "unknown"
func (s RunState) String() string {
	switch s {
	case RunStateRunning:
		return "running"
	case RunStatePaused:
		return "paused"
	case RunStateStep:
		return "step"
	default:
		return "unknown"
	}
}
