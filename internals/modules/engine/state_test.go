package engine

import (
	"testing"

	"healthwatch/internals/modules/probe"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name      string
		start     TargetState
		result    probe.Result
		threshold int
		want      Transition
		wantState TargetState
	}{
		{
			name:      "success while up",
			start:     TargetState{Status: StatusUp},
			result:    probe.Result{Success: true},
			threshold: 2,
			want:      TransitionNone,
			wantState: TargetState{Status: StatusUp},
		},
		{
			name:      "first failure below threshold",
			start:     TargetState{Status: StatusUp},
			result:    probe.Result{},
			threshold: 2,
			want:      TransitionNone,
			wantState: TargetState{Status: StatusUp, ConsecutiveFailures: 1},
		},
		{
			name:      "failure reaching threshold",
			start:     TargetState{Status: StatusUp, ConsecutiveFailures: 1},
			result:    probe.Result{},
			threshold: 2,
			want:      TransitionFailed,
			wantState: TargetState{Status: StatusDown, ConsecutiveFailures: 2},
		},
		{
			name:      "threshold of one fails immediately",
			start:     TargetState{Status: StatusUp},
			result:    probe.Result{},
			threshold: 1,
			want:      TransitionFailed,
			wantState: TargetState{Status: StatusDown, ConsecutiveFailures: 1},
		},
		{
			name:      "failure while down keeps counting",
			start:     TargetState{Status: StatusDown, ConsecutiveFailures: 2, ActiveIncidentID: "api_1"},
			result:    probe.Result{},
			threshold: 2,
			want:      TransitionNone,
			wantState: TargetState{Status: StatusDown, ConsecutiveFailures: 3, ActiveIncidentID: "api_1"},
		},
		{
			name:      "single success recovers",
			start:     TargetState{Status: StatusDown, ConsecutiveFailures: 5, ActiveIncidentID: "api_1"},
			result:    probe.Result{Success: true},
			threshold: 2,
			want:      TransitionRecovered,
			wantState: TargetState{Status: StatusUp, ActiveIncidentID: "api_1"},
		},
		{
			name:      "success resets counter without transition",
			start:     TargetState{Status: StatusUp, ConsecutiveFailures: 1},
			result:    probe.Result{Success: true},
			threshold: 2,
			want:      TransitionNone,
			wantState: TargetState{Status: StatusUp},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := tt.start
			got := Evaluate(&state, tt.result, tt.threshold)

			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantState, state)
		})
	}
}

func TestTransitionString(t *testing.T) {
	assert.Equal(t, "NONE", TransitionNone.String())
	assert.Equal(t, "FAILED", TransitionFailed.String())
	assert.Equal(t, "RECOVERED", TransitionRecovered.String())
}
