// Package presentation turns reviewed content into a slide deck.
package presentation

import (
	"context"
	"time"

	"github.com/Strob0t/A2APipeline/internal/adapter/gamma"
	"github.com/Strob0t/A2APipeline/internal/domain/task"
	"github.com/Strob0t/A2APipeline/internal/port/worker"
	"github.com/Strob0t/A2APipeline/internal/service"
)

// Name is the agent name and mount path segment.
const Name = "presentation"

// WorkingDetail is reported when a presentation task starts.
const WorkingDetail = "Generating slides"

// PlaceholderURL is the deck link the mock returns.
const PlaceholderURL = "https://gamma.app/placeholder"

// Script is replayed by scripted streams.
var Script = worker.Script{
	{Delay: time.Second, State: task.StateWorking, Detail: WorkingDetail},
	{Delay: time.Second, Artifact: task.Artifact{"progress": "50%"}},
	{Delay: time.Second, State: task.StateCompleted},
}

// Ready builds the result for a finished deck.
func Ready(url string) worker.Result {
	return worker.Result{
		PrimaryText: "Presentation ready: " + url,
		Artifacts:   []task.Artifact{{"gammaUrl": url}},
	}
}

// Mock returns the placeholder deck.
type Mock struct{}

// Run reports halfway progress and returns the placeholder link.
func (Mock) Run(_ context.Context, _ string, progress worker.Reporter) (worker.Result, error) {
	progress.Artifact(task.Artifact{"progress": "50%"})
	return Ready(PlaceholderURL), nil
}

// Deck is the part of the Gamma client the worker uses.
type Deck interface {
	Generate(ctx context.Context, req gamma.GenerateRequest) (gamma.Generation, error)
	WaitForURL(ctx context.Context, generationID string, onPoll gamma.PollFunc) (string, error)
}

// Gamma generates decks with the Gamma API.
type Gamma struct {
	deck     Deck
	numCards int
}

// NewGamma creates a Gamma-backed worker producing numCards slides.
func NewGamma(deck Deck, numCards int) *Gamma {
	return &Gamma{deck: deck, numCards: numCards}
}

// Run starts a generation and waits for its URL, reporting each poll.
func (g *Gamma) Run(ctx context.Context, input string, progress worker.Reporter) (worker.Result, error) {
	gen, err := g.deck.Generate(ctx, gamma.GenerateRequest{
		InputText: input,
		TextMode:  "generate",
		Format:    "presentation",
		NumCards:  g.numCards,
	})
	if err != nil {
		return worker.Result{}, worker.Fail(Name, "gamma generate", err)
	}

	id := gen.JobID()
	progress.Artifact(task.Artifact{"generationId": id, "status": "submitted"})

	url, err := g.deck.WaitForURL(ctx, id, func(attempt int, st gamma.Generation) {
		progress.Artifact(task.Artifact{"generationId": id, "status": st.Status, "poll": attempt})
	})
	if err != nil {
		return worker.Result{}, worker.Fail(Name, "gamma wait", err)
	}

	res := Ready(url)
	res.Artifacts[0]["generationId"] = id
	return res, nil
}

// Fallback returns the placeholder deck so the pipeline still completes.
func Fallback(_ string, _ *worker.Error) worker.Result {
	return Ready(PlaceholderURL)
}

// Agent describes the presentation stage around w.
func Agent(w worker.Worker) service.Agent {
	return service.Agent{
		Name:          Name,
		WorkingDetail: WorkingDetail,
		Worker:        w,
		Fallback:      Fallback,
		Script:        Script,
	}
}
