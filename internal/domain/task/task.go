// Package task defines the Task domain entity shared by every agent: its
// lifecycle states, progress events and the snapshot returned on resubscribe.
package task

import (
	"fmt"
	"strings"

	"github.com/Strob0t/A2APipeline/internal/domain"
)

// Role tags the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a role-tagged text payload exchanged between orchestrator and agent.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Validate rejects roles other than user and assistant. An empty role is
// treated as user.
func (m *Message) Validate() error {
	switch Role(strings.ToLower(string(m.Role))) {
	case "":
		m.Role = RoleUser
	case RoleUser, RoleAssistant:
		m.Role = Role(strings.ToLower(string(m.Role)))
	default:
		return fmt.Errorf("%w: unknown message role %q", domain.ErrValidation, m.Role)
	}
	return nil
}

// Artifact is an opaque structured result record attached to a task.
type Artifact map[string]any

// Clone returns a shallow copy so callers can't mutate stored artifacts.
func (a Artifact) Clone() Artifact {
	if a == nil {
		return nil
	}
	out := make(Artifact, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// CloneArtifacts copies an artifact slice and each record in it.
func CloneArtifacts(in []Artifact) []Artifact {
	out := make([]Artifact, 0, len(in))
	for _, a := range in {
		out = append(out, a.Clone())
	}
	return out
}

// Snapshot is the last known state of a task as returned by resubscribe.
type Snapshot struct {
	TaskID    string     `json:"task_id"`
	ContextID string     `json:"context_id,omitempty"`
	State     State      `json:"state"`
	LastEvent *Event     `json:"last_event,omitempty"`
	Artifacts []Artifact `json:"artifacts"`
}

// QueuedSnapshot is the placeholder returned for a task id the store has
// never seen.
func QueuedSnapshot(taskID string) Snapshot {
	return Snapshot{
		TaskID:    taskID,
		State:     StateQueued,
		Artifacts: []Artifact{},
	}
}

// Clone returns a deep-enough copy of the snapshot for handing across the
// store boundary.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Artifacts = CloneArtifacts(s.Artifacts)
	if s.LastEvent != nil {
		ev := s.LastEvent.Clone()
		out.LastEvent = &ev
	}
	return out
}
