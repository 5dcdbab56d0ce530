// Package agentclient defines how the orchestrator talks to one agent,
// whether it is served in process or over HTTP.
package agentclient

import (
	"context"

	"github.com/Strob0t/A2APipeline/internal/domain/task"
)

// Client submits messages to one agent and reads back task snapshots.
type Client interface {
	Submit(ctx context.Context, req task.MessageRequest) (*task.MessageResponse, error)
	Resubscribe(ctx context.Context, taskID string) (task.Snapshot, error)
}
