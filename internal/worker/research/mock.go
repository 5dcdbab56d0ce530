package research

import (
	"context"
	"fmt"

	"github.com/Strob0t/A2APipeline/internal/domain/task"
	"github.com/Strob0t/A2APipeline/internal/port/worker"
)

// Mock returns canned research without calling a provider.
type Mock struct{}

// Run builds a placeholder summary about input.
func (Mock) Run(ctx context.Context, input string, _ worker.Reporter) (worker.Result, error) {
	if err := ctx.Err(); err != nil {
		return worker.Result{}, worker.Fail(Name, "mock", err)
	}
	summary := fmt.Sprintf("Research summary for '%s': current guidance emphasises early diagnosis, "+
		"patient education and regular monitoring, with lifestyle changes as first-line management.", input)
	return worker.Result{
		PrimaryText: summary,
		Artifacts: []task.Artifact{{
			"summary":      summary,
			"keyPoints":    []any{"Early diagnosis improves outcomes", "Education supports self-management", "Regular monitoring guides treatment"},
			"riskFactors":  []any{"Family history", "Sedentary lifestyle", "Poor diet"},
			"audienceTone": "patient-friendly",
		}},
	}, nil
}
