package session

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"focusflow/internal/model"
)

var ErrInvalidParams = errors.New("invalid session parameters")

// ValidationError lists every rejected creation field with a reason.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", key, e.Fields[key]))
	}
	return ErrInvalidParams.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidParams
}

// ValidateParams checks creation input. maxCycles <= 0 disables the upper
// bound on totalCycles.
func ValidateParams(params model.CreateSessionParams, maxCycles int) error {
	fields := make(map[string]string)

	checkMinutes := func(name string, value float64, label string) {
		switch {
		case math.IsNaN(value) || value < model.MinPhaseMinutes:
			fields[name] = fmt.Sprintf("%s must be at least %.2f minutes (%.1f seconds)",
				label, model.MinPhaseMinutes, model.MinPhaseMinutes*60)
		case math.IsInf(value, 0) || value*60 > model.MaxPhaseSeconds:
			fields[name] = fmt.Sprintf("%s must be at most %d minutes", label, model.MaxPhaseMinutes)
		}
	}
	checkMinutes("focusMinutes", params.FocusMinutes, "focus duration")
	checkMinutes("breakMinutes", params.BreakMinutes, "break duration")
	checkMinutes("longBreakMinutes", params.LongBreakMinutes, "long break duration")

	switch {
	case params.TotalCycles < 1:
		fields["totalCycles"] = "total cycles must be a positive integer"
	case maxCycles > 0 && params.TotalCycles > maxCycles:
		fields["totalCycles"] = fmt.Sprintf("total cycles must be at most %d", maxCycles)
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// New builds the initial state of a freshly created session.
func New(id, code string, params model.CreateSessionParams) model.Session {
	s := model.Session{
		ID:               id,
		Code:             code,
		FocusMinutes:     params.FocusMinutes,
		BreakMinutes:     params.BreakMinutes,
		LongBreakMinutes: params.LongBreakMinutes,
		TotalCycles:      params.TotalCycles,
		CurrentCycle:     1,
		Status:           model.StatusCreated,
	}
	s.TimeLeftSeconds = s.FocusSeconds()
	return s
}
