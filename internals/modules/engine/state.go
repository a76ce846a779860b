package engine

import (
	"time"

	"healthwatch/internals/modules/probe"
)

type Status string

const (
	StatusUp   Status = "UP"
	StatusDown Status = "DOWN"
)

type Transition int

const (
	TransitionNone Transition = iota
	TransitionFailed
	TransitionRecovered
)

func (t Transition) String() string {
	switch t {
	case TransitionFailed:
		return "FAILED"
	case TransitionRecovered:
		return "RECOVERED"
	default:
		return "NONE"
	}
}

// TargetState is the runtime state of one target. A target starts UP.
type TargetState struct {
	Status              Status
	ConsecutiveFailures int
	ActiveIncidentID    string
	LastCheckedAt       time.Time
	LastResult          *probe.Result
}

func newTargetState() TargetState {
	return TargetState{Status: StatusUp}
}

// Evaluate applies one probe result to state. It touches only the failure
// counter and the status; incident bookkeeping is left to the caller.
// A target goes DOWN after threshold consecutive failures and comes back UP
// on the first success.
func Evaluate(state *TargetState, result probe.Result, threshold int) Transition {
	if result.Success {
		state.ConsecutiveFailures = 0
		if state.Status == StatusDown {
			state.Status = StatusUp
			return TransitionRecovered
		}
		return TransitionNone
	}

	state.ConsecutiveFailures++
	if state.Status == StatusUp && state.ConsecutiveFailures >= threshold {
		state.Status = StatusDown
		return TransitionFailed
	}
	return TransitionNone
}
