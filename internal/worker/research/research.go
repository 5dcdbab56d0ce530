// Package research produces a structured medical summary for a prompt.
package research

import (
	"context"
	"fmt"
	"time"

	"github.com/Strob0t/A2APipeline/internal/domain/task"
	"github.com/Strob0t/A2APipeline/internal/port/worker"
	"github.com/Strob0t/A2APipeline/internal/service"
	"github.com/Strob0t/A2APipeline/internal/worker/llmjson"
)

// Name is the agent name and mount path segment.
const Name = "research"

// WorkingDetail is reported when a research task starts.
const WorkingDetail = "Consulting medical database..."

// Script is replayed by scripted streams.
var Script = worker.Script{
	{Delay: 500 * time.Millisecond, State: task.StateWorking, Detail: WorkingDetail},
	{Delay: 500 * time.Millisecond, State: task.StateCompleted},
}

const noSummary = "No summary provided."

const promptTemplate = `You are a medical research assistant. Research the following query and provide a structured summary.
Query: %s

Output valid JSON with the following keys:
- summary: A detailed medical summary (approx 100 words).
- keyPoints: A list of 3-5 key takeaways.
- riskFactors: A list of risk factors.
- audienceTone: The detected tone (e.g., 'clinical', 'patient-friendly').

Do not use markdown formatting for the JSON. Just raw JSON.`

// Prompt builds the model prompt for query.
func Prompt(query string) string {
	return fmt.Sprintf(promptTemplate, query)
}

// Generator turns a prompt into model text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Model researches with a text model.
type Model struct {
	gen      Generator
	provider string
}

// NewModel creates a research worker over gen. provider names it in errors.
func NewModel(gen Generator, provider string) *Model {
	return &Model{gen: gen, provider: provider}
}

// Run asks the model for a structured summary. Output that is not a JSON
// object is kept verbatim under "raw".
func (m *Model) Run(ctx context.Context, input string, _ worker.Reporter) (worker.Result, error) {
	out, err := m.gen.Generate(ctx, Prompt(input))
	if err != nil {
		return worker.Result{}, worker.Fail(Name, m.provider+" generate", err)
	}
	return Parse(out), nil
}

// Parse converts model output into a research result.
func Parse(out string) worker.Result {
	obj, err := llmjson.Object(out)
	if err != nil {
		text := llmjson.StripFences(out)
		return worker.Result{
			PrimaryText: text,
			Artifacts:   []task.Artifact{{"raw": text}},
		}
	}

	summary, _ := obj["summary"].(string)
	if summary == "" {
		summary = noSummary
	}
	return worker.Result{
		PrimaryText: summary,
		Artifacts:   []task.Artifact{obj},
	}
}

// Fallback is the placeholder research shown when the provider is down.
func Fallback(input string, _ *worker.Error) worker.Result {
	summary := fmt.Sprintf("**[MOCK] Research Fallback**\n\n"+
		"The AI research service is unavailable. Displaying a placeholder research summary regarding '%s'.\n\n"+
		"Recent advancements include CAR-T cell therapy, mRNA vaccines, and CRISPR gene editing.", input)
	return worker.Result{
		PrimaryText: summary,
		Artifacts: []task.Artifact{{
			"summary":      summary,
			"keyPoints":    []any{"Mock Point 1: AI Service Offline", "Mock Point 2: Check API Key", "Mock Point 3: Demo Mode Active"},
			"riskFactors":  []any{"Invalid API Key", "Network Error"},
			"audienceTone": "system-alert",
		}},
	}
}

// Agent describes the research stage around w.
func Agent(w worker.Worker) service.Agent {
	return service.Agent{
		Name:          Name,
		WorkingDetail: WorkingDetail,
		Worker:        w,
		Fallback:      Fallback,
		Script:        Script,
	}
}
