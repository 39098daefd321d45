package model

import (
	"math"
	"time"
)

type Status string

const (
	StatusCreated    Status = "CREATED"
	StatusActive     Status = "ACTIVE"
	StatusPaused     Status = "PAUSED"
	StatusCompleted  Status = "COMPLETED"
	StatusEndedEarly Status = "ENDED_EARLY"
)

// Terminal reports whether no further mutation of a session in this status
// is accepted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusEndedEarly
}

func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusActive, StatusPaused, StatusCompleted, StatusEndedEarly:
		return true
	}
	return false
}

const (
	MinPhaseMinutes = 0.01
	// MaxPhaseSeconds bounds a single phase so the countdown fits in an int32.
	MaxPhaseSeconds = math.MaxInt32
	MaxPhaseMinutes = MaxPhaseSeconds / 60
)

// Session is the authoritative record of one shared focus session.
type Session struct {
	ID               string     `json:"id"`
	Code             string     `json:"code"`
	CreatorID        string     `json:"creatorId,omitempty"`
	FocusMinutes     float64    `json:"focusMinutes"`
	BreakMinutes     float64    `json:"breakMinutes"`
	LongBreakMinutes float64    `json:"longBreakMinutes"`
	TotalCycles      int        `json:"totalCycles"`
	CurrentCycle     int        `json:"currentCycle"`
	IsBreak          bool       `json:"isBreak"`
	TimeLeftSeconds  int        `json:"timeLeftSeconds"`
	IsRunning        bool       `json:"isRunning"`
	Status           Status     `json:"status"`
	CreatedAt        time.Time  `json:"createdAt"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// PhaseSeconds converts a configured minute value into whole seconds,
// rounding to the nearest second. The result is clamped to
// [0, MaxPhaseSeconds].
func PhaseSeconds(minutes float64) int {
	seconds := math.Round(minutes * 60)
	switch {
	case math.IsNaN(seconds) || seconds <= 0:
		return 0
	case seconds >= MaxPhaseSeconds:
		return MaxPhaseSeconds
	}
	return int(seconds)
}

func (s *Session) FocusSeconds() int     { return PhaseSeconds(s.FocusMinutes) }
func (s *Session) BreakSeconds() int     { return PhaseSeconds(s.BreakMinutes) }
func (s *Session) LongBreakSeconds() int { return PhaseSeconds(s.LongBreakMinutes) }

// InLongBreak reports whether the current break is the final long break.
func (s *Session) InLongBreak() bool {
	return s.IsBreak && s.CurrentCycle >= s.TotalCycles
}

func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		TimeLeftSeconds: s.TimeLeftSeconds,
		IsRunning:       s.IsRunning,
		IsBreak:         s.IsBreak,
		CurrentCycle:    s.CurrentCycle,
		Status:          s.Status,
	}
}


// OriginHeader carries the client id on store and channel requests so the
// snapshots they cause can be tagged with their origin.
const OriginHeader = "X-FocusFlow-Client"

// Snapshot is the state tuple carried on the session/{code} topic. Origin
// names the client whose action produced it, when known.
type Snapshot struct {
	TimeLeftSeconds int    `json:"timeLeftSeconds"`
	IsRunning       bool   `json:"isRunning"`
	IsBreak         bool   `json:"isBreak"`
	CurrentCycle    int    `json:"currentCycle"`
	Status          Status `json:"status"`
	Origin          string `json:"origin,omitempty"`
}

type TimerState struct {
	TimeLeftSeconds int  `json:"timeLeftSeconds"`
	IsRunning       bool `json:"isRunning"`
	IsBreak         bool `json:"isBreak"`
}

// JoinNotice is carried on the session/{code}/joined topic.
type JoinNotice struct {
	Participant string    `json:"participant"`
	JoinedAt    time.Time `json:"joinedAt"`
}

type CreateSessionParams struct {
	FocusMinutes     float64 `json:"focusMinutes"`
	BreakMinutes     float64 `json:"breakMinutes"`
	LongBreakMinutes float64 `json:"longBreakMinutes"`
	TotalCycles      int     `json:"totalCycles"`
}
