// Package taskstore defines the port interface for an agent's task store.
package taskstore

import (
	"context"

	"github.com/Strob0t/A2APipeline/internal/domain/task"
)

// Store maps a task id to the latest known snapshot. Each agent owns its own
// instance; the executor is the only writer.
type Store interface {
	// Get returns the snapshot for taskID. ok is false when the id is unknown.
	Get(ctx context.Context, taskID string) (snap task.Snapshot, ok bool, err error)

	// Put replaces the snapshot stored under snap.TaskID.
	Put(ctx context.Context, snap task.Snapshot) error
}
