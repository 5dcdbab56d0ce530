// Package openai wraps the OpenAI chat completions API for the triage,
// research and review workers.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"

	cfotel "github.com/Strob0t/A2APipeline/internal/adapter/otel"
	"github.com/Strob0t/A2APipeline/internal/resilience"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// ErrEmptyCompletion is returned when the API answers without any choice text.
var ErrEmptyCompletion = errors.New("openai: empty completion")

// Client issues single-turn chat completions.
type Client struct {
	api     *goopenai.Client
	model   string
	breaker *resilience.Breaker
}

// NewClient creates a client for apiKey. An empty baseURL uses the public API.
func NewClient(apiKey, baseURL, model string) *Client {
	cfg := goopenai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{
		Timeout:   45 * time.Second,
		Transport: cfotel.Transport(nil),
	}
	if model == "" {
		model = DefaultModel
	}
	return &Client{api: goopenai.NewClientWithConfig(cfg), model: model}
}

// SetBreaker attaches a circuit breaker to all completion calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Complete sends a system and user message and returns the first choice's
// text. jsonMode asks the model for a single JSON object.
func (c *Client) Complete(ctx context.Context, system, user string, jsonMode bool) (string, error) {
	ctx, span := cfotel.StartProviderSpan(ctx, "openai", "chat")
	defer span.End()

	req := goopenai.ChatCompletionRequest{
		Model: c.model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			{Role: goopenai.ChatMessageRoleUser, Content: user},
		},
	}
	if jsonMode {
		req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	var out string
	call := func(ctx context.Context) error {
		resp, err := c.api.CreateChatCompletion(ctx, req)
		if err != nil {
			return classify(err)
		}
		if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
			return resilience.Permanent(ErrEmptyCompletion)
		}
		out = resp.Choices[0].Message.Content
		return nil
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.ExecuteContext(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	return out, nil
}

// classify marks client-side rejections (bad key, bad request) as permanent
// so they do not trip the breaker. 408 and 429 stay retryable.
func classify(err error) error {
	status := 0
	var apiErr *goopenai.APIError
	var reqErr *goopenai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	if status >= 400 && status < 500 && status != http.StatusRequestTimeout && status != http.StatusTooManyRequests {
		return resilience.Permanent(err)
	}
	return err
}
