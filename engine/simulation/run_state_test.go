package simulation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunState_String(t *testing.T) {
	tests := []struct {
		state RunState
		want  string
	}{
		{state: RunStateRunning, want: "running"},
		{state: RunStatePaused, want: "paused"},
		{state: RunStateStep, want: "step"},
		{state: RunState(99), want: "unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.state.String())
	}
}
