package errors

import (
	"fmt"
	"net/http"
)

const (
	CodeInvalidJSON          = "invalid_json"
	CodeInvalidSessionParams = "invalid_session_params"
	CodeInvalidStatus        = "invalid_status"
	CodeInvalidCycle         = "invalid_cycle"
	CodeInvalidTimerState    = "invalid_timer_state"
	CodeInvalidActivity      = "invalid_activity"
	CodeInvalidLimit         = "invalid_limit"
	CodeSessionNotFound      = "session_not_found"
	CodeSessionTerminal      = "session_terminal"
	CodeInternal             = "internal_error"
)

type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return e.Message
}

func New(status int, code, message string) *APIError {
	return &APIError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

func Internal(message string) *APIError {
	if message == "" {
		message = "internal server error"
	}
	return New(http.StatusInternalServerError, CodeInternal, message)
}

func BadRequest(code, message string) *APIError {
	return New(http.StatusBadRequest, code, message)
}

func InvalidJSON() *APIError {
	return BadRequest(CodeInvalidJSON, "invalid request body")
}

// Validation is a 400 whose details map each rejected field to a reason.
func Validation(code, message string, fields map[string]string) *APIError {
	err := BadRequest(code, message)
	if len(fields) > 0 {
		err.Details = map[string]any{"fields": fields}
	}
	return err
}

func Unauthorized(message string) *APIError {
	if message == "" {
		message = "unauthorized"
	}
	return New(http.StatusUnauthorized, "unauthorized", message)
}

func Forbidden(message string) *APIError {
	if message == "" {
		message = "forbidden"
	}
	return New(http.StatusForbidden, "forbidden", message)
}

func NotFound(code, message string) *APIError {
	return New(http.StatusNotFound, code, message)
}

func SessionNotFound() *APIError {
	return NotFound(CodeSessionNotFound, "session not found")
}

func Conflict(code, message string, details any) *APIError {
	err := New(http.StatusConflict, code, message)
	err.Details = details
	return err
}

// Terminal rejects an update against a session whose status is absorbing.
func Terminal(status string) *APIError {
	return Conflict(CodeSessionTerminal,
		fmt.Sprintf("session is %s and accepts no further updates", status),
		map[string]any{"status": status},
	)
}
