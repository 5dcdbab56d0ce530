package worker

import (
	"context"
	"errors"
	"fmt"
)

// Error is returned by a worker when its provider call fails: a timeout, a
// bad response or an unparseable payload.
type Error struct {
	Agent      string
	Op         string
	Diagnostic string
	Transient  bool
	Err        error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %s", e.Agent, e.Op, e.Diagnostic)
	}
	return fmt.Sprintf("%s %s: %v", e.Agent, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Fail wraps err as a worker error. Deadline and cancellation errors are
// marked transient.
func Fail(agent, op string, err error) *Error {
	var werr *Error
	if errors.As(err, &werr) {
		return werr
	}
	diag := ""
	if err != nil {
		diag = err.Error()
	}
	return &Error{
		Agent:      agent,
		Op:         op,
		Diagnostic: diag,
		Transient:  errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled),
		Err:        err,
	}
}

// Failf builds a worker error from a formatted diagnostic.
func Failf(agent, op, format string, args ...any) *Error {
	return &Error{Agent: agent, Op: op, Diagnostic: fmt.Sprintf(format, args...)}
}

// AsError extracts a *Error from err.
func AsError(err error) (*Error, bool) {
	var werr *Error
	if errors.As(err, &werr) {
		return werr, true
	}
	return nil, false
}
