package presentation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Strob0t/A2APipeline/internal/adapter/gamma"
	"github.com/Strob0t/A2APipeline/internal/domain/task"
	"github.com/Strob0t/A2APipeline/internal/port/worker"
)

type recordingReporter struct{ artifacts []task.Artifact }

func (r *recordingReporter) Working(string)           {}
func (r *recordingReporter) Artifact(a task.Artifact) { r.artifacts = append(r.artifacts, a) }

type fakeDeck struct {
	req      gamma.GenerateRequest
	genErr   error
	waitErr  error
	statuses []string
}

func (f *fakeDeck) Generate(_ context.Context, req gamma.GenerateRequest) (gamma.Generation, error) {
	f.req = req
	if f.genErr != nil {
		return gamma.Generation{}, f.genErr
	}
	return gamma.Generation{ID: "gen-9"}, nil
}

func (f *fakeDeck) WaitForURL(_ context.Context, _ string, onPoll gamma.PollFunc) (string, error) {
	for i, s := range f.statuses {
		onPoll(i+1, gamma.Generation{Status: s})
	}
	if f.waitErr != nil {
		return "", f.waitErr
	}
	return "https://gamma.app/docs/gen-9", nil
}

func TestMock(t *testing.T) {
	rep := &recordingReporter{}
	res, err := Mock{}.Run(context.Background(), "slides", rep)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.PrimaryText != "Presentation ready: "+PlaceholderURL {
		t.Fatalf("unexpected message %q", res.PrimaryText)
	}
	if res.Artifacts[0]["gammaUrl"] != PlaceholderURL {
		t.Fatalf("unexpected artifact %v", res.Artifacts[0])
	}
	if len(rep.artifacts) != 1 || rep.artifacts[0]["progress"] != "50%" {
		t.Fatalf("expected 50%% progress, got %v", rep.artifacts)
	}
}

func TestGammaRun(t *testing.T) {
	deck := &fakeDeck{statuses: []string{"pending", "completed"}}
	rep := &recordingReporter{}

	res, err := NewGamma(deck, 5).Run(context.Background(), "Reviewed summary", rep)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deck.req.InputText != "Reviewed summary" || deck.req.NumCards != 5 || deck.req.Format != "presentation" {
		t.Fatalf("unexpected generate request %+v", deck.req)
	}
	if !strings.HasPrefix(res.PrimaryText, "Presentation ready: https://gamma.app/docs/gen-9") {
		t.Fatalf("unexpected message %q", res.PrimaryText)
	}
	if res.Artifacts[0]["generationId"] != "gen-9" {
		t.Fatalf("expected generation id in artifact, got %v", res.Artifacts[0])
	}
	// submitted + one per poll
	if len(rep.artifacts) != 3 {
		t.Fatalf("expected 3 progress artifacts, got %d", len(rep.artifacts))
	}
	if rep.artifacts[2]["status"] != "completed" {
		t.Fatalf("expected last poll completed, got %v", rep.artifacts[2])
	}
}

func TestGammaRunFailures(t *testing.T) {
	_, err := NewGamma(&fakeDeck{genErr: errors.New("401")}, 5).Run(context.Background(), "x", worker.NopReporter{})
	if werr, ok := worker.AsError(err); !ok || werr.Op != "gamma generate" {
		t.Fatalf("expected generate worker error, got %v", err)
	}

	_, err = NewGamma(&fakeDeck{waitErr: gamma.ErrGenerationFailed}, 5).Run(context.Background(), "x", worker.NopReporter{})
	if !errors.Is(err, gamma.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
}

func TestGammaVariant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"g1"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"completed","url":"https://gamma.app/docs/g1"}`))
	}))
	defer srv.Close()

	w, err := worker.New(Name, "gamma", map[string]string{
		"base_url": srv.URL, "api_key": "k", "poll_interval": "1ms", "max_polls": "3",
	})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	res, err := w.Run(context.Background(), "content", worker.NopReporter{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.PrimaryText != "Presentation ready: https://gamma.app/docs/g1" {
		t.Fatalf("unexpected message %q", res.PrimaryText)
	}
}

func TestFallback(t *testing.T) {
	res := Fallback("x", nil)
	if !strings.Contains(res.PrimaryText, "Presentation ready") {
		t.Fatalf("unexpected fallback %q", res.PrimaryText)
	}
}
