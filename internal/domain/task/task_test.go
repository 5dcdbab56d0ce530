package task

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/Strob0t/A2APipeline/internal/domain"
)

func TestValidateTransition(t *testing.T) {
	tests := []struct {
		from, to State
		wantErr  bool
	}{
		{StateQueued, StateWorking, false},
		{StateQueued, StateCompleted, false},
		{StateWorking, StateWorking, false},
		{StateWorking, StateInputRequired, false},
		{StateInputRequired, StateWorking, false},
		{StateWorking, StateFailed, false},
		{StateInputRequired, StateQueued, true},
		{StateCompleted, StateWorking, true},
		{StateFailed, StateCompleted, true},
		{State("paused"), StateWorking, true},
		{StateWorking, State("paused"), true},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			err := ValidateTransition(tt.from, tt.to)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateTransition(%s, %s) error = %v, wantErr %v", tt.from, tt.to, err, tt.wantErr)
			}
		})
	}
}

func TestValidateTransitionTerminalSentinel(t *testing.T) {
	err := ValidateTransition(StateCompleted, StateWorking)
	if !errors.Is(err, domain.ErrTerminalState) {
		t.Fatalf("expected ErrTerminalState, got %v", err)
	}
}

func TestMessageValidate(t *testing.T) {
	m := Message{Content: "hi"}
	if err := m.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Role != RoleUser {
		t.Fatalf("expected empty role to default to user, got %q", m.Role)
	}

	m = Message{Role: "Assistant", Content: "hi"}
	if err := m.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Role != RoleAssistant {
		t.Fatalf("expected assistant, got %q", m.Role)
	}

	m = Message{Role: "system", Content: "hi"}
	if err := m.Validate(); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestQueuedSnapshotJSON(t *testing.T) {
	data, err := json.Marshal(QueuedSnapshot("t-1"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got["state"] != "queued" {
		t.Fatalf("expected queued, got %v", got["state"])
	}
	if _, ok := got["last_event"]; ok {
		t.Fatal("expected no last_event on queued placeholder")
	}
	arts, ok := got["artifacts"].([]any)
	if !ok || len(arts) != 0 {
		t.Fatalf("expected empty artifacts array, got %v", got["artifacts"])
	}
}

func TestSnapshotCloneIsolation(t *testing.T) {
	ev := NewArtifactEvent("t-1", Artifact{"note": "a"})
	s := Snapshot{TaskID: "t-1", State: StateWorking, LastEvent: &ev, Artifacts: []Artifact{{"k": "v"}}}

	c := s.Clone()
	c.Artifacts[0]["k"] = "changed"
	c.LastEvent.Artifact["note"] = "changed"

	if s.Artifacts[0]["k"] != "v" {
		t.Fatal("clone shares artifact map with original")
	}
	if s.LastEvent.Artifact["note"] != "a" {
		t.Fatal("clone shares last event artifact with original")
	}
}

func TestEventIsTerminal(t *testing.T) {
	if !NewStatusEvent("t", StateCompleted, "").IsTerminal() {
		t.Fatal("completed status should be terminal")
	}
	if NewStatusEvent("t", StateWorking, "x").IsTerminal() {
		t.Fatal("working status should not be terminal")
	}
	if NewArtifactEvent("t", Artifact{"state": "completed"}).IsTerminal() {
		t.Fatal("artifact events are never terminal")
	}
}
