package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/Strob0t/A2APipeline/internal/adapter/httpagent"
	"github.com/Strob0t/A2APipeline/internal/config"
	"github.com/Strob0t/A2APipeline/internal/middleware"
	"github.com/Strob0t/A2APipeline/internal/port/a2a"
	"github.com/Strob0t/A2APipeline/internal/port/worker"
	"github.com/Strob0t/A2APipeline/internal/service"
	"github.com/Strob0t/A2APipeline/internal/worker/catalog"
	"github.com/Strob0t/A2APipeline/internal/worker/presentation"
	"github.com/Strob0t/A2APipeline/internal/worker/research"
	"github.com/Strob0t/A2APipeline/internal/worker/review"
	"github.com/Strob0t/A2APipeline/internal/worker/triage"
)

func TestStatusAndHealth(t *testing.T) {
	srv := newAgentServer(t, echoAgent("alpha"), echoAgent("beta"))

	resp, err := http.Get(srv.URL + "/") //nolint:noctx // test
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	var status map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&status)
	if status["status"] != StatusMessage {
		t.Fatalf("expected %q, got %v", StatusMessage, status)
	}

	resp2, err := http.Get(srv.URL + "/health") //nolint:noctx // test
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer func() { _ = resp2.Body.Close() }()
	var health struct {
		Status string   `json:"status"`
		Agents []string `json:"agents"`
	}
	_ = json.NewDecoder(resp2.Body).Decode(&health)
	if health.Status != "ok" || len(health.Agents) != 2 || health.Agents[0] != "alpha" {
		t.Fatalf("unexpected health %+v", health)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := NewRouter(HostConfig{CORSOrigin: "http://localhost:3000", Agents: []Mount{{Exec: newExecutor(t, echoAgent("echo"))}}})

	req := httptest.NewRequest(http.MethodOptions, "/echo/message", http.NoBody)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("unexpected allow-origin %q", got)
	}
	if !strings.Contains(w.Header().Get("Access-Control-Allow-Methods"), "POST") {
		t.Fatalf("expected POST allowed, got %q", w.Header().Get("Access-Control-Allow-Methods"))
	}
}

func TestRequestIDEchoed(t *testing.T) {
	r := NewRouter(HostConfig{})

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set("X-Request-ID", "rid-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "rid-42" {
		t.Fatalf("expected request id echoed, got %q", got)
	}
}

func TestAgentCardMounted(t *testing.T) {
	exec := newExecutor(t, echoAgent("research"))
	card := a2a.NewHandler(a2a.BuildAgentCard("research", "http://localhost:8000/research"))
	r := NewRouter(HostConfig{Agents: []Mount{{Exec: exec, Card: card}}})

	req := httptest.NewRequest(http.MethodGet, "/research"+a2a.CardPath, http.NoBody)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got map[string]any
	_ = json.NewDecoder(w.Body).Decode(&got)
	if got["name"] != "research" || got["url"] != "http://localhost:8000/research" {
		t.Fatalf("unexpected card %v", got)
	}
}

func TestMetricsAndWSOptional(t *testing.T) {
	r := NewRouter(HostConfig{})
	for _, path := range []string{"/metrics", "/ws"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404 when not configured, got %d", path, w.Code)
		}
	}

	called := false
	r = NewRouter(HostConfig{Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	if !called || w.Code != http.StatusOK {
		t.Fatalf("expected metrics handler, got %d", w.Code)
	}
}

func TestMessageRateLimited(t *testing.T) {
	r := NewRouter(HostConfig{
		Agents:    []Mount{{Exec: newExecutor(t, echoAgent("echo"))}},
		RateLimit: middleware.NewRateLimiter(0.01, 1),
	})

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/echo/message", strings.NewReader(`{"message":{"content":"x"}}`))
		req.RemoteAddr = "10.1.1.1:5000"
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Code
	}
	if code := post(); code != http.StatusOK {
		t.Fatalf("expected first message accepted, got %d", code)
	}
	if code := post(); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}

	req := httptest.NewRequest(http.MethodPost, "/echo/tasks/resubscribe", strings.NewReader(`{"task_id":"x"}`))
	req.RemoteAddr = "10.1.1.1:5000"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected resubscribe unaffected, got %d", w.Code)
	}
}

// pipelineOver serves agents on one host and returns a pipeline that reaches
// each of them over HTTP.
func pipelineOver(t *testing.T, agents ...service.Agent) *service.Pipeline {
	t.Helper()
	srv := newAgentServer(t, agents...)
	client := func(name string) *httpagent.Client {
		return httpagent.NewClient(name, srv.URL+"/"+name, httpagent.Options{})
	}
	return service.NewPipeline(service.PipelineClients{
		Triage:       client(triage.Name),
		Research:     client(research.Name),
		Review:       client(review.Name),
		Presentation: client(presentation.Name),
	})
}

func TestPipelineResearchRoute(t *testing.T) {
	cfg := config.Defaults()
	agents, err := catalog.Mounted(&cfg)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	p := pipelineOver(t, agents...)

	var stages []string
	p.OnStage = func(s service.Stage) { stages = append(stages, s.Agent) }

	res, err := p.Run(context.Background(), "Create a presentation about diabetes")
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	if res.Route != service.RouteResearch {
		t.Fatalf("expected research route, got %s", res.Route)
	}
	want := []string{"triage", "research", "review", "presentation"}
	if strings.Join(stages, ",") != strings.Join(want, ",") {
		t.Fatalf("expected stages %v, got %v", want, stages)
	}
	for _, s := range res.Stages {
		if s.Response.ContextID != res.ContextID {
			t.Fatalf("stage %s used context %q, want %q", s.Agent, s.Response.ContextID, res.ContextID)
		}
	}
	if final := res.Final(); final == nil || !strings.Contains(final.Message.Content, "Presentation ready") {
		t.Fatalf("unexpected final message %+v", final)
	}
}

func TestPipelinePresentationRoute(t *testing.T) {
	var researchCalls, reviewCalls atomic.Int32
	counting := func(n *atomic.Int32, w worker.Worker) worker.Worker {
		return worker.Func(func(ctx context.Context, input string, progress worker.Reporter) (worker.Result, error) {
			n.Add(1)
			return w.Run(ctx, input, progress)
		})
	}

	p := pipelineOver(t,
		triage.Agent(worker.Func(func(context.Context, string, worker.Reporter) (worker.Result, error) {
			return triage.Routed(service.RoutePresentation), nil
		})),
		research.Agent(counting(&researchCalls, research.Mock{})),
		review.Agent(counting(&reviewCalls, review.Mock{})),
		presentation.Agent(presentation.Mock{}),
	)

	res, err := p.Run(context.Background(), "Slide 1: intro\nSlide 2: body\nSlide 3: outro")
	if err != nil {
		t.Fatalf("pipeline: %v", err)
	}
	if res.Route != service.RoutePresentation {
		t.Fatalf("expected presentation route, got %s", res.Route)
	}
	if len(res.Stages) != 2 || res.Stages[1].Agent != "presentation" {
		t.Fatalf("expected triage then presentation, got %+v", res.Stages)
	}
	if researchCalls.Load() != 0 || reviewCalls.Load() != 0 {
		t.Fatalf("expected research and review skipped, got %d and %d calls", researchCalls.Load(), reviewCalls.Load())
	}
}
