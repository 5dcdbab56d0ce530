// Package gamma provides an HTTP client for the Gamma public generation API.
package gamma

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	cfotel "github.com/Strob0t/A2APipeline/internal/adapter/otel"
	"github.com/Strob0t/A2APipeline/internal/resilience"
)

const (
	DefaultBaseURL      = "https://public-api.gamma.app/v1.0"
	DefaultPollInterval = 2 * time.Second
	DefaultMaxPolls     = 30
)

// Generation statuses reported by GET /generations/{id}.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var (
	// ErrGenerationFailed is returned when Gamma reports a failed generation.
	ErrGenerationFailed = errors.New("gamma: generation failed")
	// ErrPollExhausted is returned when the generation did not finish within the poll budget.
	ErrPollExhausted = errors.New("gamma: generation not finished within poll budget")
	// ErrNoGenerationID is returned when the create call answers without an id.
	ErrNoGenerationID = errors.New("gamma: response carried no generation id")
)

// GenerateRequest is the body of POST /generations.
type GenerateRequest struct {
	InputText              string `json:"inputText"`
	TextMode               string `json:"textMode,omitempty"`
	Format                 string `json:"format,omitempty"`
	NumCards               int    `json:"numCards,omitempty"`
	ExportAs               string `json:"exportAs,omitempty"`
	AdditionalInstructions string `json:"additionalInstructions,omitempty"`
}

// Generation is the state of one generation job.
type Generation struct {
	ID       string `json:"id,omitempty"`
	GenID    string `json:"generationId,omitempty"`
	Status   string `json:"status,omitempty"`
	URL      string `json:"url,omitempty"`
	GammaURL string `json:"gammaUrl,omitempty"`

	// Raw is the undecoded response body.
	Raw json.RawMessage `json:"-"`
}

// JobID returns the generation id under either of the keys Gamma uses.
func (g Generation) JobID() string {
	if g.ID != "" {
		return g.ID
	}
	return g.GenID
}

// Link returns the finished presentation URL under either key.
func (g Generation) Link() string {
	if g.URL != "" {
		return g.URL
	}
	return g.GammaURL
}

// Client talks to the Gamma API.
type Client struct {
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	breaker      *resilience.Breaker
	pollInterval time.Duration
	maxPolls     int
}

// NewClient creates a new Gamma client. An empty baseURL uses the public API.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout:   60 * time.Second,
			Transport: cfotel.Transport(nil),
		},
		pollInterval: DefaultPollInterval,
		maxPolls:     DefaultMaxPolls,
	}
}

// SetBreaker attaches a circuit breaker to all outgoing HTTP calls.
func (c *Client) SetBreaker(b *resilience.Breaker) {
	c.breaker = b
}

// SetPolling overrides the status poll interval and budget. Non-positive
// values keep the current setting.
func (c *Client) SetPolling(interval time.Duration, maxPolls int) {
	if interval > 0 {
		c.pollInterval = interval
	}
	if maxPolls > 0 {
		c.maxPolls = maxPolls
	}
}

// Generate starts a generation job and returns it. The returned JobID is
// never empty on success.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (Generation, error) {
	ctx, span := cfotel.StartProviderSpan(ctx, "gamma", "generate")
	defer span.End()

	body, err := json.Marshal(req)
	if err != nil {
		return Generation{}, fmt.Errorf("marshal generate: %w", err)
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/generations", body)
	if err != nil {
		span.RecordError(err)
		return Generation{}, fmt.Errorf("create generation: %w", err)
	}

	gen, err := decodeGeneration(data)
	if err != nil {
		return Generation{}, err
	}
	if gen.JobID() == "" {
		return Generation{}, ErrNoGenerationID
	}
	return gen, nil
}

// Status fetches the current state of a generation job.
func (c *Client) Status(ctx context.Context, generationID string) (Generation, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/generations/"+url.PathEscape(generationID), nil)
	if err != nil {
		return Generation{}, fmt.Errorf("get generation %s: %w", generationID, err)
	}
	return decodeGeneration(data)
}

// Themes returns the raw theme listing.
func (c *Client) Themes(ctx context.Context) (json.RawMessage, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/themes", nil)
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}
	return json.RawMessage(data), nil
}

// PollFunc observes each status poll.
type PollFunc func(attempt int, gen Generation)

// WaitForURL polls the job until it completes and returns its URL. It waits
// one poll interval before each poll and gives up after the poll budget.
// Failed polls are retried; an open breaker or a done ctx ends the wait.
func (c *Client) WaitForURL(ctx context.Context, generationID string, onPoll PollFunc) (string, error) {
	ctx, span := cfotel.StartProviderSpan(ctx, "gamma", "wait")
	defer span.End()

	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	for attempt := 1; attempt <= c.maxPolls; attempt++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-timer.C:
		}

		gen, err := c.Status(ctx, generationID)
		switch {
		case ctx.Err() != nil:
			return "", ctx.Err()
		case errors.Is(err, resilience.ErrCircuitOpen):
			return "", err
		case err != nil:
			slog.Warn("gamma status poll failed", "generation_id", generationID, "attempt", attempt, "error", err)
		default:
			if onPoll != nil {
				onPoll(attempt, gen)
			}
			switch gen.Status {
			case StatusCompleted:
				if gen.Link() == "" {
					return "", fmt.Errorf("gamma: generation %s completed without url", generationID)
				}
				return gen.Link(), nil
			case StatusFailed:
				return "", fmt.Errorf("%w: %s", ErrGenerationFailed, generationID)
			}
		}

		timer.Reset(c.pollInterval)
	}
	return "", fmt.Errorf("%w: %s after %d polls", ErrPollExhausted, generationID, c.maxPolls)
}

func decodeGeneration(data []byte) (Generation, error) {
	var gen Generation
	if err := json.Unmarshal(data, &gen); err != nil {
		return Generation{}, fmt.Errorf("unmarshal generation: %w", err)
	}
	gen.Raw = json.RawMessage(data)
	return gen, nil
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
		req.Header.Set("Accept", "application/json")
		if c.apiKey != "" {
			req.Header.Set("X-API-KEY", c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http request: %w", err)
		}
		defer func() { _ = resp.Body.Close() }()

		data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode >= 400 {
			apiErr := fmt.Errorf("gamma API error %d: %s", resp.StatusCode, truncate(data, 512))
			if resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
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

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
