// Package nats publishes task progress events on core NATS subjects so other
// processes can observe a pipeline run. Nothing is persisted.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/Strob0t/A2APipeline/internal/domain/task"
)

// DefaultPrefix is the subject root when none is configured.
const DefaultPrefix = "a2a"

// Handler receives a decoded task event and the agent that emitted it.
type Handler func(agent string, ev task.Event)

// Bus implements broadcast.Broadcaster on a NATS connection. Subjects have
// the form <prefix>.<agent>.<event kind>.
type Bus struct {
	nc     *nats.Conn
	prefix string
}

// Connect dials the NATS server at url.
func Connect(url, prefix string) (*Bus, error) {
	nc, err := nats.Connect(url, nats.Name("a2a-pipeline"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	if prefix == "" {
		prefix = DefaultPrefix
	}
	slog.Info("nats connected", "url", url, "prefix", prefix)
	return &Bus{nc: nc, prefix: prefix}, nil
}

// Subject returns the subject an event of kind from agent is published on.
func (b *Bus) Subject(agent string, kind task.EventKind) string {
	return b.prefix + "." + agent + "." + string(kind)
}

// PublishTaskEvent implements broadcast.Broadcaster. Failures are logged.
func (b *Bus) PublishTaskEvent(_ context.Context, agent string, ev task.Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		slog.Error("marshal nats task event", "task_id", ev.TaskID, "error", err)
		return
	}
	subject := b.Subject(agent, ev.Kind)
	if err := b.nc.Publish(subject, data); err != nil {
		slog.Warn("nats publish failed", "subject", subject, "error", err)
	}
}

// Subscribe delivers events from agent, or from every agent when agent is
// empty, until the returned stop function is called.
func (b *Bus) Subscribe(agent string, handler Handler) (func(), error) {
	if agent == "" {
		agent = "*"
	}
	subject := b.prefix + "." + agent + ".>"
	sub, err := b.nc.Subscribe(subject, func(msg *nats.Msg) {
		var ev task.Event
		if err := json.Unmarshal(msg.Data, &ev); err != nil {
			slog.Warn("nats task event decode failed", "subject", msg.Subject, "error", err)
			return
		}
		handler(b.agentFromSubject(msg.Subject), ev)
	})
	if err != nil {
		return nil, fmt.Errorf("nats subscribe %s: %w", subject, err)
	}
	if err := b.nc.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("nats flush: %w", err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}

func (b *Bus) agentFromSubject(subject string) string {
	rest := strings.TrimPrefix(subject, b.prefix+".")
	agent, _, _ := strings.Cut(rest, ".")
	return agent
}

// Close drains pending publishes and closes the connection.
func (b *Bus) Close() error {
	return b.nc.Drain()
}
