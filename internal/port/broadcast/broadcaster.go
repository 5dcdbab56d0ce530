// Package broadcast defines the port for pushing task progress events to
// observers outside the agent (web UI, event bus).
package broadcast

import (
	"context"

	"github.com/Strob0t/A2APipeline/internal/domain/task"
)

// Broadcaster receives every event an agent appends to a progress log.
// Implementations must not block the caller for long; delivery is best effort.
type Broadcaster interface {
	PublishTaskEvent(ctx context.Context, agent string, ev task.Event)
}

// Fanout delivers each event to every broadcaster in order.
type Fanout []Broadcaster

// PublishTaskEvent implements Broadcaster.
func (f Fanout) PublishTaskEvent(ctx context.Context, agent string, ev task.Event) {
	for _, b := range f {
		if b != nil {
			b.PublishTaskEvent(ctx, agent, ev)
		}
	}
}

// Nop discards all events.
type Nop struct{}

// PublishTaskEvent implements Broadcaster.
func (Nop) PublishTaskEvent(context.Context, string, task.Event) {}
