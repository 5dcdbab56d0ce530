// Package worker defines the worker port: the single capability every agent
// delegates its real work to (an LLM call, a slide generator, a rules engine).
package worker

import (
	"context"
	"time"

	"github.com/Strob0t/A2APipeline/internal/domain/task"
)

// Result is what a successful worker run hands back to the executor.
type Result struct {
	PrimaryText string
	Artifacts   []task.Artifact
}

// Reporter receives progress while a worker runs. Implementations must be
// safe for use from the worker's goroutine only.
type Reporter interface {
	// Working records a working status transition with a human-readable detail.
	Working(detail string)

	// Artifact records an intermediate artifact update.
	Artifact(a task.Artifact)
}

// Worker is the port interface for an agent's work.
type Worker interface {
	// Run processes input and returns a result, or a *Error describing why
	// the provider call failed.
	Run(ctx context.Context, input string, progress Reporter) (Result, error)
}

// Func adapts a plain function to the Worker interface.
type Func func(ctx context.Context, input string, progress Reporter) (Result, error)

// Run calls f.
func (f Func) Run(ctx context.Context, input string, progress Reporter) (Result, error) {
	return f(ctx, input, progress)
}

// FallbackFunc builds the degraded result used when a worker fails.
type FallbackFunc func(input string, werr *Error) Result

// NopReporter discards progress.
type NopReporter struct{}

func (NopReporter) Working(string)         {}
func (NopReporter) Artifact(task.Artifact) {}

// ScriptStep is one event of a scripted progress stream, emitted Delay after
// the previous one. A non-nil Artifact makes it an artifact update.
type ScriptStep struct {
	Delay    time.Duration
	State    task.State
	Detail   string
	Artifact task.Artifact
}

// Script is the fixed progress sequence an agent replays for scripted
// streams. It ends with a completed status.
type Script []ScriptStep
