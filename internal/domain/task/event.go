package task

import "time"

// EventKind distinguishes the two notifications a progress channel carries.
type EventKind string

const (
	KindStatus   EventKind = "task-status"
	KindArtifact EventKind = "task-artifact"
)

// Event is a single notification on a task's progress channel. Seq is
// assigned by the progress log and increases strictly per task.
type Event struct {
	Kind      EventKind `json:"event"`
	TaskID    string    `json:"task_id"`
	State     State     `json:"state,omitempty"`
	Detail    string    `json:"detail,omitempty"`
	Artifact  Artifact  `json:"artifact,omitempty"`
	Seq       uint64    `json:"seq,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewStatusEvent builds a status-update event.
func NewStatusEvent(taskID string, state State, detail string) Event {
	return Event{
		Kind:      KindStatus,
		TaskID:    taskID,
		State:     state,
		Detail:    detail,
		Timestamp: time.Now().UTC(),
	}
}

// NewArtifactEvent builds an artifact-update event.
func NewArtifactEvent(taskID string, artifact Artifact) Event {
	return Event{
		Kind:      KindArtifact,
		TaskID:    taskID,
		Artifact:  artifact.Clone(),
		Timestamp: time.Now().UTC(),
	}
}

// IsTerminal reports whether the event is a status update into completed or failed.
func (e Event) IsTerminal() bool {
	return e.Kind == KindStatus && e.State.IsTerminal()
}

// Clone copies the event including its artifact payload.
func (e Event) Clone() Event {
	out := e
	out.Artifact = e.Artifact.Clone()
	return out
}
