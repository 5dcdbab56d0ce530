// Package memstore implements the task store port in process memory, bounded
// by an LRU so a long-running agent does not grow without limit.
package memstore

import (
	"context"
	"errors"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Strob0t/A2APipeline/internal/domain/task"
)

// DefaultMaxTasks is used when New is given a non-positive bound.
const DefaultMaxTasks = 10000

// Store is an in-memory taskstore.Store. The least recently used snapshot is
// evicted once maxTasks is reached; an evicted id resubscribes as queued.
type Store struct {
	tasks *lru.Cache[string, task.Snapshot]
}

// New creates a store holding at most maxTasks snapshots.
func New(maxTasks int) (*Store, error) {
	if maxTasks <= 0 {
		maxTasks = DefaultMaxTasks
	}
	c, err := lru.New[string, task.Snapshot](maxTasks)
	if err != nil {
		return nil, err
	}
	return &Store{tasks: c}, nil
}

// Get returns a copy of the stored snapshot.
func (s *Store) Get(_ context.Context, taskID string) (task.Snapshot, bool, error) {
	snap, ok := s.tasks.Get(taskID)
	if !ok {
		return task.Snapshot{}, false, nil
	}
	return snap.Clone(), true, nil
}

// Put stores a copy of snap, replacing any previous entry.
func (s *Store) Put(_ context.Context, snap task.Snapshot) error {
	if snap.TaskID == "" {
		return errors.New("memstore: task id is required")
	}
	s.tasks.Add(snap.TaskID, snap.Clone())
	return nil
}

// Len returns the number of stored snapshots.
func (s *Store) Len() int {
	return s.tasks.Len()
}
