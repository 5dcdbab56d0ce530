package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Strob0t/A2APipeline/internal/domain/task"
)

// Event type constants for WebSocket messages.
const (
	EventTaskStatus   = "task.status"
	EventTaskArtifact = "task.artifact"
)

// PublishTaskEvent implements broadcast.Broadcaster.
func (h *Hub) PublishTaskEvent(ctx context.Context, agent string, ev task.Event) {
	eventType := EventTaskStatus
	if ev.Kind == task.KindArtifact {
		eventType = EventTaskArtifact
	}
	h.BroadcastEvent(ctx, agent, eventType, ev)
}

// BroadcastEvent marshals a typed payload and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, agent, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Agent:   agent,
		Payload: json.RawMessage(data),
	})
}
