package review

import (
	"context"
	"errors"
	"testing"

	"github.com/Strob0t/A2APipeline/internal/domain/task"
	"github.com/Strob0t/A2APipeline/internal/port/worker"
)

type fakeCompleter struct {
	out string
	err error
}

func (f fakeCompleter) Complete(context.Context, string, string, bool) (string, error) {
	return f.out, f.err
}

type noteReporter struct{ notes []task.Artifact }

func (r *noteReporter) Working(string)           {}
func (r *noteReporter) Artifact(a task.Artifact) { r.notes = append(r.notes, a) }

func TestMock(t *testing.T) {
	rep := &noteReporter{}
	res, err := Mock{}.Run(context.Background(), "anything", rep)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PrimaryText != Placeholder {
		t.Fatalf("expected placeholder, got %q", res.PrimaryText)
	}
	if res.Artifacts[0]["patientFriendlyScore"] != 4 {
		t.Fatalf("expected score 4, got %v", res.Artifacts[0]["patientFriendlyScore"])
	}
	if len(rep.notes) != 1 || rep.notes[0]["note"] != "Checking tone" {
		t.Fatalf("expected tone note, got %v", rep.notes)
	}
}

func TestLLMRun(t *testing.T) {
	l := NewLLM(fakeCompleter{out: `{"revisedSummary":"Plain words.","patientFriendlyScore":9}`})
	res, err := l.Run(context.Background(), "Clinical words.", worker.NopReporter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PrimaryText != "Plain words." {
		t.Fatalf("unexpected summary %q", res.PrimaryText)
	}
	if res.Artifacts[0]["patientFriendlyScore"] != 5 {
		t.Fatalf("expected score clamped to 5, got %v", res.Artifacts[0]["patientFriendlyScore"])
	}
}

func TestLLMRunMissingSummary(t *testing.T) {
	_, err := NewLLM(fakeCompleter{out: `{"patientFriendlyScore":3}`}).Run(context.Background(), "x", worker.NopReporter{})
	if _, ok := worker.AsError(err); !ok {
		t.Fatalf("expected worker error, got %v", err)
	}
}

func TestLLMRunProviderError(t *testing.T) {
	boom := errors.New("timeout")
	_, err := NewLLM(fakeCompleter{err: boom}).Run(context.Background(), "x", worker.NopReporter{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
}

func TestFallbackPassesInputThrough(t *testing.T) {
	res := Fallback("Original summary.", nil)
	if res.PrimaryText != "Original summary." {
		t.Fatalf("expected input passthrough, got %q", res.PrimaryText)
	}
	if got := Fallback("  ", nil).PrimaryText; got != Placeholder {
		t.Fatalf("expected placeholder for empty input, got %q", got)
	}
}

func TestRegistered(t *testing.T) {
	for _, variant := range []string{"mock", "openai"} {
		if _, err := worker.New(Name, variant, nil); err != nil {
			t.Fatalf("variant %s: %v", variant, err)
		}
	}
}
