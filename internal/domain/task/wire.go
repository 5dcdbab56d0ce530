package task

// MessageRequest is the body of POST /message.
type MessageRequest struct {
	ContextID string         `json:"context_id,omitempty"`
	TaskID    string         `json:"task_id,omitempty"`
	Message   Message        `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"` //nolint:gosec // protocol metadata is free-form
}

// MessageResponse is the body returned by POST /message.
type MessageResponse struct {
	ContextID string         `json:"context_id"`
	TaskID    string         `json:"task_id"`
	Message   Message        `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"` //nolint:gosec // protocol metadata is free-form
}

// ResubscribeRequest is the body of POST /tasks/resubscribe.
type ResubscribeRequest struct {
	TaskID string `json:"task_id"`
}
