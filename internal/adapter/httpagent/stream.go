package httpagent

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"net/http"
	"net/url"
	"strings"

	"github.com/Strob0t/A2APipeline/internal/domain/task"
)

// Stream opens the agent's progress stream for taskID and yields each event.
// The sequence ends when the server closes the stream, ctx is done or the
// consumer stops; a transport or decode failure is yielded once as an error.
func (c *Client) Stream(ctx context.Context, taskID string) iter.Seq2[task.Event, error] {
	return func(yield func(task.Event, error) bool) {
		u := c.baseURL + "/message/stream?task_id=" + url.QueryEscape(taskID)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, http.NoBody)
		if err != nil {
			yield(task.Event{}, fmt.Errorf("create request: %w", err))
			return
		}
		req.Header.Set("Accept", "text/event-stream")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			yield(task.Event{}, fmt.Errorf("%s stream: %w", c.name, err))
			return
		}
		defer func() { _ = resp.Body.Close() }()

		if resp.StatusCode >= 400 {
			data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			yield(task.Event{}, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)})
			return
		}

		for data, err := range sseData(resp.Body) {
			if err != nil {
				if ctx.Err() == nil {
					yield(task.Event{}, fmt.Errorf("%s stream: %w", c.name, err))
				}
				return
			}
			var ev task.Event
			if err := json.Unmarshal([]byte(data), &ev); err != nil {
				yield(task.Event{}, fmt.Errorf("%s stream: decode event: %w", c.name, err))
				return
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}

// sseData yields the data payload of each server-sent event in r. Multi-line
// data fields are joined with newlines; comments and other fields are skipped.
func sseData(r io.Reader) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

		var data []string
		for sc.Scan() {
			line := strings.TrimSuffix(sc.Text(), "\r")
			switch {
			case line == "":
				if len(data) > 0 {
					if !yield(strings.Join(data, "\n"), nil) {
						return
					}
					data = data[:0]
				}
			case strings.HasPrefix(line, "data:"):
				data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
			}
		}
		if err := sc.Err(); err != nil {
			yield("", err)
			return
		}
		if len(data) > 0 {
			yield(strings.Join(data, "\n"), nil)
		}
	}
}
