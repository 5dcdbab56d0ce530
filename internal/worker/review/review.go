// Package review rewrites a research summary for a patient audience.
package review

import (
	"context"
	"strings"
	"time"

	"github.com/Strob0t/A2APipeline/internal/domain/task"
	"github.com/Strob0t/A2APipeline/internal/port/worker"
	"github.com/Strob0t/A2APipeline/internal/service"
	"github.com/Strob0t/A2APipeline/internal/worker/llmjson"
)

// Name is the agent name and mount path segment.
const Name = "review"

// WorkingDetail is reported when a review task starts.
const WorkingDetail = "Reviewing summary"

// Placeholder is the mock reviewer's output.
const Placeholder = "Reviewed summary placeholder."

// Script is replayed by scripted streams.
var Script = worker.Script{
	{Delay: 600 * time.Millisecond, State: task.StateWorking, Detail: WorkingDetail},
	{Delay: 600 * time.Millisecond, Artifact: task.Artifact{"note": "Checking tone"}},
	{Delay: 600 * time.Millisecond, State: task.StateCompleted},
}

// Reviewed builds the review result.
func Reviewed(summary string, score int) worker.Result {
	return worker.Result{
		PrimaryText: summary,
		Artifacts:   []task.Artifact{{"revisedSummary": summary, "patientFriendlyScore": score}},
	}
}

// Mock returns the placeholder review.
type Mock struct{}

// Run ignores input and returns the placeholder.
func (Mock) Run(_ context.Context, _ string, progress worker.Reporter) (worker.Result, error) {
	progress.Artifact(task.Artifact{"note": "Checking tone"})
	return Reviewed(Placeholder, 4), nil
}

const systemPrompt = `You review medical summaries before they are turned into patient-facing slides.
Rewrite the summary in plain, accurate, patient-friendly language and rate how patient-friendly
the original was from 1 (clinical jargon) to 5 (plain language).
Answer with a JSON object {"revisedSummary": "...", "patientFriendlyScore": <1-5>}.`

// Completer is a single-turn chat model.
type Completer interface {
	Complete(ctx context.Context, system, user string, jsonMode bool) (string, error)
}

// LLM reviews with a chat model.
type LLM struct {
	model Completer
}

// NewLLM creates a model-backed reviewer.
func NewLLM(model Completer) *LLM {
	return &LLM{model: model}
}

// Run asks the model to revise input.
func (l *LLM) Run(ctx context.Context, input string, progress worker.Reporter) (worker.Result, error) {
	progress.Artifact(task.Artifact{"note": "Checking tone"})

	out, err := l.model.Complete(ctx, systemPrompt, input, true)
	if err != nil {
		return worker.Result{}, worker.Fail(Name, "review", err)
	}

	obj, err := llmjson.Object(out)
	if err != nil {
		return worker.Result{}, worker.Fail(Name, "parse", err)
	}
	summary, _ := obj["revisedSummary"].(string)
	if strings.TrimSpace(summary) == "" {
		return worker.Result{}, worker.Failf(Name, "parse", "response has no revisedSummary")
	}
	return Reviewed(summary, score(obj["patientFriendlyScore"])), nil
}

func score(v any) int {
	f, ok := v.(float64)
	if !ok {
		return 0
	}
	return min(max(int(f), 1), 5)
}

// Fallback passes the unreviewed summary through so the presentation stage
// still has content.
func Fallback(input string, _ *worker.Error) worker.Result {
	if strings.TrimSpace(input) == "" {
		input = Placeholder
	}
	return Reviewed(input, 0)
}

// Agent describes the review stage around w.
func Agent(w worker.Worker) service.Agent {
	return service.Agent{
		Name:          Name,
		WorkingDetail: WorkingDetail,
		Worker:        w,
		Fallback:      Fallback,
		Script:        Script,
	}
}
