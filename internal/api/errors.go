package api

import (
	"errors"
	"fmt"
)

// ConflictError indicates the server rejected a status-change submission
// because a response for the interview was already recorded. The action
// very likely succeeded earlier; callers should refresh and reconcile
// rather than report a failure.
type ConflictError struct {
	InterviewID string
	Message     string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("interview %s: response already recorded: %s", e.InterviewID, e.Message)
}

// IsConflict reports whether err (or any error in its chain) is a
// ConflictError.
func IsConflict(err error) bool {
	var conflictErr *ConflictError
	return errors.As(err, &conflictErr)
}

// StatusError is a non-2xx REST response that is not a recognized conflict.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}
