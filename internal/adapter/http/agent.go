package http

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/A2APipeline/internal/domain/task"
	"github.com/Strob0t/A2APipeline/internal/middleware"
)

// Executor is the task executor behind one agent's routes.
type Executor interface {
	Name() string
	Submit(ctx context.Context, req task.MessageRequest) (*task.MessageResponse, error)
	Resubscribe(ctx context.Context, taskID string) (task.Snapshot, error)
	Stream(ctx context.Context, taskID string) iter.Seq[task.Event]
}

// AgentHandlers serves the message, stream and resubscribe endpoints of one agent.
type AgentHandlers struct {
	Exec  Executor
	Limit *middleware.RateLimiter
}

// messageBody mirrors task.MessageRequest with optional fields so missing
// message and content can be told apart from empty ones.
type messageBody struct {
	ContextID string `json:"context_id"`
	TaskID    string `json:"task_id"`
	Message   *struct {
		Role    task.Role `json:"role"`
		Content *string   `json:"content"`
	} `json:"message"`
	Metadata map[string]any `json:"metadata"` //nolint:gosec // protocol metadata is free-form
}

// MountRoutes registers the agent's task routes on r. Stream routes are
// left without a request timeout; timeout wraps the others.
func (h *AgentHandlers) MountRoutes(r chi.Router, timeout func(http.Handler) http.Handler) {
	r.Get("/message/stream", h.StreamMessage)
	r.Group(func(r chi.Router) {
		if timeout != nil {
			r.Use(timeout)
		}
		r.With(h.Limit.Handler).Post("/message", h.PostMessage)
		r.Post("/tasks/resubscribe", h.Resubscribe)
	})
}

// PostMessage handles POST /message.
func (h *AgentHandlers) PostMessage(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSON[messageBody](w, r, maxBodyBytes)
	if !ok {
		return
	}
	if body.Message == nil {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if body.Message.Content == nil {
		writeError(w, http.StatusBadRequest, "message.content is required")
		return
	}

	resp, err := h.Exec.Submit(r.Context(), task.MessageRequest{
		ContextID: body.ContextID,
		TaskID:    body.TaskID,
		Message:   task.Message{Role: body.Message.Role, Content: *body.Message.Content},
		Metadata:  body.Metadata,
	})
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Resubscribe handles POST /tasks/resubscribe.
func (h *AgentHandlers) Resubscribe(w http.ResponseWriter, r *http.Request) {
	body, ok := readJSON[task.ResubscribeRequest](w, r, maxBodyBytes)
	if !ok {
		return
	}
	if !requireField(w, body.TaskID, "task_id") {
		return
	}

	snap, err := h.Exec.Resubscribe(r.Context(), body.TaskID)
	if err != nil {
		writeDomainError(w, err, "task not found")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// StreamMessage handles GET /message/stream?task_id= as server-sent events,
// one "data: <event json>" frame per progress event.
func (h *AgentHandlers) StreamMessage(w http.ResponseWriter, r *http.Request) {
	taskID := r.URL.Query().Get("task_id")
	if !requireField(w, taskID, "task_id") {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	n := 0
	for ev := range h.Exec.Stream(r.Context(), taskID) {
		data, err := json.Marshal(ev)
		if err != nil {
			slog.Error("marshal stream event", "agent", h.Exec.Name(), "task_id", taskID, "error", err)
			return
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			slog.Debug("stream client gone", "agent", h.Exec.Name(), "task_id", taskID, "error", err)
			return
		}
		flusher.Flush()
		n++
	}
	slog.Debug("stream closed", "agent", h.Exec.Name(), "task_id", taskID, "events", n)
}
