package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	cfotel "github.com/Strob0t/A2APipeline/internal/adapter/otel"
	"github.com/Strob0t/A2APipeline/internal/domain/task"
	"github.com/Strob0t/A2APipeline/internal/port/agentclient"
)

// Route is the chain the orchestrator runs after triage.
type Route string

const (
	RouteResearch     Route = "medical_research"
	RoutePresentation Route = "presentation"
)

// Stage names, in pipeline order.
const (
	StageTriage       = "triage"
	StageResearch     = "research"
	StageReview       = "review"
	StagePresentation = "presentation"
)

// ErrRouteResolution is returned by ResolveRoute when the triage snapshot
// could not be fetched. Run treats it as the research route.
var ErrRouteResolution = errors.New("route resolution failed")

// PipelineClients are the four downstream agents.
type PipelineClients struct {
	Triage       agentclient.Client
	Research     agentclient.Client
	Review       agentclient.Client
	Presentation agentclient.Client
}

// Stage is one agent call of a pipeline run.
type Stage struct {
	Agent    string                `json:"agent"`
	Response *task.MessageResponse `json:"response"`
}

// PipelineResult holds every stage response of a run, in call order.
type PipelineResult struct {
	ContextID string  `json:"context_id"`
	Route     Route   `json:"route"`
	Stages    []Stage `json:"stages"`
}

// Final returns the last stage response.
func (r *PipelineResult) Final() *task.MessageResponse {
	if len(r.Stages) == 0 {
		return nil
	}
	return r.Stages[len(r.Stages)-1].Response
}

// Pipeline sequences agent calls for one prompt under a single context id.
type Pipeline struct {
	clients PipelineClients
	metrics *cfotel.Metrics
	newID   func() string

	// OnStage, when set, is called after each stage completes.
	OnStage func(Stage)
}

// NewPipeline creates an orchestrator over clients.
func NewPipeline(clients PipelineClients) *Pipeline {
	return &Pipeline{clients: clients, newID: uuid.NewString}
}

// SetMetrics enables metric recording.
func (p *Pipeline) SetMetrics(m *cfotel.Metrics) { p.metrics = m }

// Run submits prompt to triage and follows the selected route. A failed
// stage submission aborts the run; route lookup failures fall back to the
// research route.
func (p *Pipeline) Run(ctx context.Context, prompt string) (*PipelineResult, error) {
	res := &PipelineResult{ContextID: p.newID()}
	log := slog.With("context_id", res.ContextID)

	triage, err := p.stage(ctx, res, StageTriage, p.clients.Triage, prompt)
	if err != nil {
		return nil, err
	}

	route, err := p.ResolveRoute(ctx, triage.TaskID)
	if err != nil {
		log.Warn("route lookup failed, defaulting to research", "error", err)
		route = RouteResearch
	}
	res.Route = route
	log.Info("route selected", "route", route)
	if p.metrics != nil {
		p.metrics.PipelineRuns.Add(ctx, 1, metric.WithAttributes(attribute.String("route", string(route))))
	}

	if route == RoutePresentation {
		if _, err := p.stage(ctx, res, StagePresentation, p.clients.Presentation, prompt); err != nil {
			return nil, err
		}
		return res, nil
	}

	research, err := p.stage(ctx, res, StageResearch, p.clients.Research, prompt)
	if err != nil {
		return nil, err
	}
	review, err := p.stage(ctx, res, StageReview, p.clients.Review, research.Message.Content)
	if err != nil {
		return nil, err
	}
	if _, err := p.stage(ctx, res, StagePresentation, p.clients.Presentation, review.Message.Content); err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) stage(ctx context.Context, res *PipelineResult, name string, client agentclient.Client, content string) (*task.MessageResponse, error) {
	ctx, span := cfotel.StartStageSpan(ctx, res.ContextID, name)
	defer span.End()

	resp, err := client.Submit(ctx, task.MessageRequest{
		ContextID: res.ContextID,
		Message:   task.Message{Role: task.RoleUser, Content: content},
		Metadata:  map[string]any{"pipeline_stage": name},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%s stage: %w", name, err)
	}
	if resp == nil {
		return nil, fmt.Errorf("%s stage: empty response", name)
	}

	st := Stage{Agent: name, Response: resp}
	res.Stages = append(res.Stages, st)
	if p.OnStage != nil {
		p.OnStage(st)
	}
	return resp, nil
}

// ResolveRoute reads the route from the triage task's first artifact. A
// missing artifact or field, or any value other than presentation, selects
// the research route.
func (p *Pipeline) ResolveRoute(ctx context.Context, triageTaskID string) (Route, error) {
	snap, err := p.clients.Triage.Resubscribe(ctx, triageTaskID)
	if err != nil {
		return RouteResearch, fmt.Errorf("%w: %w", ErrRouteResolution, err)
	}
	return RouteFromSnapshot(snap), nil
}

// RouteFromSnapshot extracts artifacts[0].route from a triage snapshot.
func RouteFromSnapshot(snap task.Snapshot) Route {
	if len(snap.Artifacts) == 0 {
		return RouteResearch
	}
	if r, ok := snap.Artifacts[0]["route"].(string); ok && Route(r) == RoutePresentation {
		return RoutePresentation
	}
	return RouteResearch
}
