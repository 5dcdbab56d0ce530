package task

import (
	"fmt"

	"github.com/Strob0t/A2APipeline/internal/domain"
)

// State represents the lifecycle state of a task.
type State string

const (
	StateQueued        State = "queued"
	StateWorking       State = "working"
	StateInputRequired State = "input-required"
	StateCompleted     State = "completed"
	StateFailed        State = "failed"
)

var allowedTransitions = map[State]map[State]struct{}{
	StateQueued: {
		StateWorking:       {},
		StateInputRequired: {},
		StateCompleted:     {},
		StateFailed:        {},
	},
	StateWorking: {
		StateWorking:       {},
		StateInputRequired: {},
		StateCompleted:     {},
		StateFailed:        {},
	},
	StateInputRequired: {
		StateWorking:   {},
		StateCompleted: {},
		StateFailed:    {},
	},
	StateCompleted: {},
	StateFailed:    {},
}

// IsTerminal reports whether no further transitions are allowed.
func (s State) IsTerminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// ValidateTransition returns an error unless from -> to is a legal move.
// Leaving completed or failed wraps domain.ErrTerminalState.
func ValidateTransition(from, to State) error {
	if !from.Valid() {
		return fmt.Errorf("invalid task state: %q", from)
	}
	if !to.Valid() {
		return fmt.Errorf("invalid task state: %q", to)
	}
	if from.IsTerminal() {
		return fmt.Errorf("%w: %s -> %s", domain.ErrTerminalState, from, to)
	}
	if _, ok := allowedTransitions[from][to]; !ok {
		return fmt.Errorf("invalid task transition: %s -> %s", from, to)
	}
	return nil
}
