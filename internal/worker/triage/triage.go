// Package triage classifies a prompt into the route the orchestrator runs.
package triage

import (
	"fmt"
	"time"

	"github.com/Strob0t/A2APipeline/internal/domain/task"
	"github.com/Strob0t/A2APipeline/internal/port/worker"
	"github.com/Strob0t/A2APipeline/internal/service"
)

// Name is the agent name and mount path segment.
const Name = "triage"

// WorkingDetail is reported when a triage task starts.
const WorkingDetail = "Triaging request"

// Script is replayed by scripted streams.
var Script = worker.Script{
	{Delay: 500 * time.Millisecond, State: task.StateWorking},
	{Delay: 500 * time.Millisecond, Artifact: task.Artifact{"note": "Triaging request"}},
	{Delay: 500 * time.Millisecond, State: task.StateCompleted},
}

// Routed builds the triage result for route.
func Routed(route service.Route) worker.Result {
	return worker.Result{
		PrimaryText: fmt.Sprintf("Routed to %s agent", route),
		Artifacts:   []task.Artifact{{"route": string(route)}},
	}
}

// Fallback routes to research when classification fails.
func Fallback(_ string, _ *worker.Error) worker.Result {
	return Routed(service.RouteResearch)
}

// Agent describes the triage stage around w.
func Agent(w worker.Worker) service.Agent {
	return service.Agent{
		Name:          Name,
		WorkingDetail: WorkingDetail,
		Worker:        w,
		Fallback:      Fallback,
		Script:        Script,
	}
}
