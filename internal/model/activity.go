package model

import "time"

type ActivityType string

const (
	ActivitySessionStarted   ActivityType = "SESSION_STARTED"
	ActivitySessionPaused    ActivityType = "SESSION_PAUSED"
	ActivitySessionCompleted ActivityType = "SESSION_COMPLETED"
	ActivitySessionEnded     ActivityType = "SESSION_ENDED"
	ActivityTimerStarted     ActivityType = "TIMER_STARTED"
	ActivityTimerPaused      ActivityType = "TIMER_PAUSED"
	ActivityTimerReset       ActivityType = "TIMER_RESET"
	ActivityBreakStarted     ActivityType = "BREAK_STARTED"
	ActivityCycleStarted     ActivityType = "CYCLE_STARTED"
	ActivityCycleCompleted   ActivityType = "CYCLE_COMPLETED"
	ActivityUserJoined       ActivityType = "USER_JOINED"
)

func (t ActivityType) Valid() bool {
	switch t {
	case ActivitySessionStarted, ActivitySessionPaused, ActivitySessionCompleted,
		ActivitySessionEnded, ActivityTimerStarted, ActivityTimerPaused, ActivityTimerReset,
		ActivityBreakStarted, ActivityCycleStarted, ActivityCycleCompleted, ActivityUserJoined:
		return true
	}
	return false
}

type Activity struct {
	ID        string       `json:"id"`
	SessionID string       `json:"sessionId"`
	UserID    string       `json:"userId,omitempty"`
	Type      ActivityType `json:"type"`
	Message   string       `json:"message"`
	CreatedAt time.Time    `json:"createdAt"`
}
