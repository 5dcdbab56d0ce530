package main

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/Strob0t/A2APipeline/internal/domain/task"
	"github.com/Strob0t/A2APipeline/internal/service"
)

func TestPrinterStageText(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, false)

	p.stage(service.Stage{Agent: "research", Response: &task.MessageResponse{
		TaskID:   "t-1",
		Message:  task.Message{Role: task.RoleAssistant, Content: "line one\nline two"},
		Metadata: map[string]any{"fallback": true},
	}})

	out := buf.String()
	if !strings.HasPrefix(out, "==> research (fallback)  task t-1\n") {
		t.Fatalf("unexpected header %q", out)
	}
	if !strings.Contains(out, "    line one\n    line two") {
		t.Fatalf("expected indented content, got %q", out)
	}
}

func TestPrinterJSONSkipsStages(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, true)

	p.stage(service.Stage{Agent: "triage", Response: &task.MessageResponse{}})
	if buf.Len() != 0 {
		t.Fatalf("expected no per-stage output in JSON mode, got %q", buf.String())
	}

	res := &service.PipelineResult{ContextID: "ctx", Route: service.RoutePresentation}
	if err := p.result(res); err != nil {
		t.Fatalf("result: %v", err)
	}
	var got service.PipelineResult
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Route != service.RoutePresentation || got.ContextID != "ctx" {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestPrinterEvent(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, false)

	_ = p.event("review", task.Event{Kind: task.KindArtifact, Seq: 2, Artifact: task.Artifact{"b": 2, "a": 1}})
	_ = p.event("", task.Event{Kind: task.KindStatus, Seq: 3, State: task.StateCompleted})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	if !strings.HasPrefix(lines[0], "[review] ") || !strings.HasSuffix(lines[0], "#2 artifact a=1 b=2") {
		t.Fatalf("unexpected artifact line %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "#3 completed") {
		t.Fatalf("unexpected status line %q", lines[1])
	}
}

func TestPrinterEventJSON(t *testing.T) {
	var buf bytes.Buffer
	p := newPrinter(&buf, true)

	_ = p.event("triage", task.Event{Kind: task.KindStatus, TaskID: "t", State: task.StateWorking, Seq: 1})

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["agent"] != "triage" || got["task_id"] != "t" {
		t.Fatalf("unexpected event json %v", got)
	}
}
