package triage

import (
	"context"

	"github.com/Strob0t/A2APipeline/internal/domain/task"
	"github.com/Strob0t/A2APipeline/internal/port/worker"
	"github.com/Strob0t/A2APipeline/internal/service"
	"github.com/Strob0t/A2APipeline/internal/worker/llmjson"
)

const systemPrompt = `You route requests in a medical content pipeline.
Answer with a JSON object {"route": "<route>"} where route is:
- "presentation" when the user already supplies the slide content or explicitly asks to skip research,
- "medical_research" for everything else.`

// Completer is a single-turn chat model.
type Completer interface {
	Complete(ctx context.Context, system, user string, jsonMode bool) (string, error)
}

// LLM classifies with a chat model.
type LLM struct {
	model Completer
}

// NewLLM creates a model-backed classifier.
func NewLLM(model Completer) *LLM {
	return &LLM{model: model}
}

// Run asks the model for a route. Answers naming no known route fail.
func (l *LLM) Run(ctx context.Context, input string, progress worker.Reporter) (worker.Result, error) {
	progress.Artifact(task.Artifact{"note": "Triaging request"})

	out, err := l.model.Complete(ctx, systemPrompt, input, true)
	if err != nil {
		return worker.Result{}, worker.Fail(Name, "classify", err)
	}

	obj, err := llmjson.Object(out)
	if err != nil {
		return worker.Result{}, worker.Fail(Name, "parse", err)
	}

	route, _ := obj["route"].(string)
	switch service.Route(route) {
	case service.RouteResearch, service.RoutePresentation:
		return Routed(service.Route(route)), nil
	default:
		return worker.Result{}, worker.Failf(Name, "parse", "unknown route %q", route)
	}
}
