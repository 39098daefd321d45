package session

import (
	"errors"

	"focusflow/internal/model"
)

// ErrTerminal reports an update attempted against a COMPLETED or ENDED_EARLY
// session.
var ErrTerminal = errors.New("session is in a terminal status")

// State is the machine position derived from a session's fields.
type State string

const (
	StateCreated      State = "created"
	StateWorkRunning  State = "work_running"
	StateWorkPaused   State = "work_paused"
	StateBreakRunning State = "break_running"
	StateBreakPaused  State = "break_paused"
	StateCompleted    State = "completed"
	StateEndedEarly   State = "ended_early"
)

func StateOf(s model.Session) State {
	switch s.Status {
	case model.StatusCompleted:
		return StateCompleted
	case model.StatusEndedEarly:
		return StateEndedEarly
	}

	switch {
	case s.IsRunning && s.IsBreak:
		return StateBreakRunning
	case s.IsRunning:
		return StateWorkRunning
	case s.Status == model.StatusCreated:
		return StateCreated
	case s.IsBreak:
		return StateBreakPaused
	default:
		return StateWorkPaused
	}
}

// CompletionDue is the watchdog predicate: every work cycle has been
// consumed and the countdown of the current phase is exhausted. A final
// work phase that is still counting down is not completion; the tick path
// moves it into the long break.
//
// This deliberately differs from the literal "!isBreak || timeLeft == 0"
// form, which would end the final work phase on the first watchdog pass.
func CompletionDue(s model.Session) bool {
	if s.Status.Terminal() || s.CurrentCycle < s.TotalCycles {
		return false
	}
	return s.TimeLeftSeconds == 0
}
