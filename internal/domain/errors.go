// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates a malformed or incomplete request.
var ErrValidation = errors.New("validation")

// ErrTerminalState indicates an attempt to move a task out of completed or failed.
var ErrTerminalState = errors.New("task is in a terminal state")
