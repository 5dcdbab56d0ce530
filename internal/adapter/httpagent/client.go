// Package httpagent talks to a remote pipeline agent over its HTTP endpoints.
package httpagent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	cfotel "github.com/Strob0t/A2APipeline/internal/adapter/otel"
	"github.com/Strob0t/A2APipeline/internal/domain/task"
	"github.com/Strob0t/A2APipeline/internal/port/agentclient"
	"github.com/Strob0t/A2APipeline/internal/port/cache"
	"github.com/Strob0t/A2APipeline/internal/resilience"
)

const (
	DefaultRequestTimeout     = 90 * time.Second
	DefaultResubscribeTimeout = 10 * time.Second
)

var _ agentclient.Client = (*Client)(nil)

// APIError is a non-2xx answer from an agent.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("agent API error %d: %s", e.StatusCode, e.Message)
}

// Options tunes a Client.
type Options struct {
	RequestTimeout     time.Duration
	ResubscribeTimeout time.Duration
}

// Client calls one agent mounted at baseURL.
type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.Breaker
	opts       Options
	cards      cache.Cache
	cardTTL    time.Duration
}

// NewClient creates a client for the agent served at baseURL.
func NewClient(name, baseURL string, opts Options) *Client {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.ResubscribeTimeout <= 0 {
		opts.ResubscribeTimeout = DefaultResubscribeTimeout
	}
	return &Client{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: cfotel.Transport(nil)},
		opts:       opts,
	}
}

// SetBreaker attaches a circuit breaker to message and resubscribe calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// Name returns the agent name.
func (c *Client) Name() string { return c.name }

// BaseURL returns the agent's mount URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Submit posts a message and waits for the agent's response.
func (c *Client) Submit(ctx context.Context, req task.MessageRequest) (*task.MessageResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.RequestTimeout)
	defer cancel()

	data, err := c.doRequest(ctx, http.MethodPost, "/message", body)
	if err != nil {
		return nil, fmt.Errorf("%s message: %w", c.name, err)
	}

	var resp task.MessageResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%s message: unmarshal response: %w", c.name, err)
	}
	return &resp, nil
}

// Resubscribe fetches the agent's last known snapshot of taskID.
func (c *Client) Resubscribe(ctx context.Context, taskID string) (task.Snapshot, error) {
	body, err := json.Marshal(task.ResubscribeRequest{TaskID: taskID})
	if err != nil {
		return task.Snapshot{}, fmt.Errorf("marshal resubscribe: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.opts.ResubscribeTimeout)
	defer cancel()

	data, err := c.doRequest(ctx, http.MethodPost, "/tasks/resubscribe", body)
	if err != nil {
		return task.Snapshot{}, fmt.Errorf("%s resubscribe: %w", c.name, err)
	}

	var snap task.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return task.Snapshot{}, fmt.Errorf("%s resubscribe: unmarshal snapshot: %w", c.name, err)
	}
	return snap, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var result []byte
	call := func(ctx context.Context) error {
		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return resilience.Permanent(fmt.Errorf("create request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
			if resp.StatusCode < 500 {
				return resilience.Permanent(apiErr)
			}
			return apiErr
		}

		result = data
		return nil
	}

	if c.breaker != nil {
		if err := c.breaker.ExecuteContext(ctx, call); err != nil {
			return nil, err
		}
		return result, nil
	}

	if err := call(ctx); err != nil {
		return nil, err
	}
	return result, nil
}

// errorMessage extracts {"error": "..."} bodies, falling back to the raw text.
func errorMessage(data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.Error
	}
	s := strings.TrimSpace(string(data))
	if len(s) > 512 {
		s = s[:512] + "..."
	}
	return s
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
