package types

import (
	"errors"
	"fmt"
)

// Failure taxonomy for the notification pipeline. None of these may escape
// to a UI caller as a panic; every failure mode degrades to a logged,
// non-blocking state.
var (
	// ErrAuthMissing means no session credential is present. Callers must
	// skip the operation, not retry it.
	ErrAuthMissing = errors.New("no session credential")
	// ErrFetch means the hydration fetch returned a non-success status.
	// The inbox degrades to an empty collection.
	ErrFetch = errors.New("hydration fetch failed")
	// ErrChannel means the push channel failed to connect or dropped.
	ErrChannel = errors.New("push channel error")
	// ErrMutation means a mark-read call failed. Local optimistic state is
	// kept as-is.
	ErrMutation = errors.New("mutation call failed")
)

// APIError wraps a failed REST call with the HTTP status that caused it.
type APIError struct {
	Code int    // HTTP status code returned by the server; 0 if none
	Msg  string // short description for logs
	Err  error  // underlying error, if any
}

func (e APIError) Error() string {
	return fmt.Sprintf("api error[%d]: %s, %v", e.Code, e.Msg, e.Err)
}

func (e APIError) Unwrap() error {
	return e.Err
}

// NewAPIError creates a new APIError.
func NewAPIError(code int, msg string, err error) APIError {
	return APIError{Code: code, Msg: msg, Err: err}
}
