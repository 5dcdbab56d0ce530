package triage

import (
	"context"
	"errors"
	"testing"

	"github.com/Strob0t/A2APipeline/internal/domain/task"
	"github.com/Strob0t/A2APipeline/internal/port/worker"
	"github.com/Strob0t/A2APipeline/internal/service"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		prompt string
		want   service.Route
	}{
		{"topic defaults to research", "Create a presentation about diabetes", service.RouteResearch},
		{"research keyword", "Research the latest hypertension guidance", service.RouteResearch},
		{"empty", "", service.RouteResearch},
		{"skip research", "Make slides on asthma, skip research please", service.RoutePresentation},
		{"slides only", "Slides only: my talk notes below", service.RoutePresentation},
		{"explicit route", `{"route": "presentation", "content": "..."}`, service.RoutePresentation},
		{"slide content", "Slide 1: Intro\nSlide 2: Symptoms\nSlide 3: Treatment", service.RoutePresentation},
		{"bullet content", "Diabetes talk\n- What it is\n- Managing glucose\n- Diet and exercise", service.RoutePresentation},
		{"two bullets are not enough", "Compare\n- insulin\n- metformin", service.RouteResearch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.prompt); got != tt.want {
				t.Fatalf("Classify(%q) = %s, expected %s", tt.prompt, got, tt.want)
			}
		})
	}
}

type recordingReporter struct {
	working   []string
	artifacts []task.Artifact
}

func (r *recordingReporter) Working(d string)         { r.working = append(r.working, d) }
func (r *recordingReporter) Artifact(a task.Artifact) { r.artifacts = append(r.artifacts, a) }

func TestRulesRun(t *testing.T) {
	rep := &recordingReporter{}
	res, err := Rules{}.Run(context.Background(), "Create a presentation about diabetes", rep)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PrimaryText != "Routed to medical_research agent" {
		t.Fatalf("unexpected message %q", res.PrimaryText)
	}
	if len(res.Artifacts) != 1 || res.Artifacts[0]["route"] != "medical_research" {
		t.Fatalf("unexpected artifacts %v", res.Artifacts)
	}
	if len(rep.artifacts) != 1 || rep.artifacts[0]["note"] != "Triaging request" {
		t.Fatalf("expected triaging note, got %v", rep.artifacts)
	}
}

type fakeCompleter struct {
	out      string
	err      error
	jsonMode bool
}

func (f *fakeCompleter) Complete(_ context.Context, _, _ string, jsonMode bool) (string, error) {
	f.jsonMode = jsonMode
	return f.out, f.err
}

func TestLLMRun(t *testing.T) {
	fc := &fakeCompleter{out: "```json\n{\"route\": \"presentation\"}\n```"}
	res, err := NewLLM(fc).Run(context.Background(), "slides please", worker.NopReporter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !fc.jsonMode {
		t.Fatal("expected JSON mode completion")
	}
	if res.Artifacts[0]["route"] != "presentation" {
		t.Fatalf("expected presentation route, got %v", res.Artifacts)
	}
}

func TestLLMRunUnknownRoute(t *testing.T) {
	_, err := NewLLM(&fakeCompleter{out: `{"route":"cooking"}`}).Run(context.Background(), "x", worker.NopReporter{})
	werr, ok := worker.AsError(err)
	if !ok {
		t.Fatalf("expected worker error, got %v", err)
	}
	if werr.Agent != Name || werr.Op != "parse" {
		t.Fatalf("unexpected worker error %+v", werr)
	}
}

func TestLLMRunProviderError(t *testing.T) {
	boom := errors.New("upstream down")
	_, err := NewLLM(&fakeCompleter{err: boom}).Run(context.Background(), "x", worker.NopReporter{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped provider error, got %v", err)
	}
}

func TestFallbackRoutesToResearch(t *testing.T) {
	res := Fallback("x", worker.Failf(Name, "classify", "down"))
	if res.Artifacts[0]["route"] != string(service.RouteResearch) {
		t.Fatalf("expected research route, got %v", res.Artifacts)
	}
}

func TestRegistered(t *testing.T) {
	for _, variant := range []string{"rules", "openai"} {
		if _, err := worker.New(Name, variant, map[string]string{"api_key": "k"}); err != nil {
			t.Fatalf("variant %s: %v", variant, err)
		}
	}
}

func TestScriptEndsCompleted(t *testing.T) {
	last := Script[len(Script)-1]
	if last.State != task.StateCompleted {
		t.Fatalf("expected script to end completed, got %s", last.State)
	}
}
