package service

import (
	"context"
	"iter"
	"time"

	"github.com/Strob0t/A2APipeline/internal/domain/task"
	"github.com/Strob0t/A2APipeline/internal/port/worker"
)

// StreamMode selects how an agent's progress stream is produced.
type StreamMode string

const (
	// StreamLive polls the task's progress log.
	StreamLive StreamMode = "live"
	// StreamScripted replays the agent's fixed script at its configured delays.
	StreamScripted StreamMode = "scripted"
)

// Default live stream bounds: a stream stays open for at most a minute.
const (
	DefaultPollInterval = 500 * time.Millisecond
	DefaultMaxPolls     = 120
)

// StreamOptions bounds a progress stream. A live stream yields events in seq
// order, stops after a terminal status event and gives up after MaxPolls.
type StreamOptions struct {
	Mode         StreamMode
	PollInterval time.Duration
	MaxPolls     int
}

func (o StreamOptions) withDefaults() StreamOptions {
	if o.Mode == "" {
		o.Mode = StreamLive
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.MaxPolls <= 0 {
		o.MaxPolls = DefaultMaxPolls
	}
	return o
}

// LiveStream returns the events appended to taskID's progress log. The task
// may not exist yet; that reads as no new events. Cancelling ctx or breaking
// out of the range loop stops polling.
func LiveStream(ctx context.Context, log *ProgressLog, taskID string, opts StreamOptions) iter.Seq[task.Event] {
	opts = opts.withDefaults()
	return func(yield func(task.Event) bool) {
		ticker := time.NewTicker(opts.PollInterval)
		defer ticker.Stop()

		var lastSeq uint64
		for poll := 0; poll < opts.MaxPolls; poll++ {
			for _, ev := range log.Since(taskID, lastSeq) {
				lastSeq = ev.Seq
				if !yield(ev) || ev.IsTerminal() {
					return
				}
			}
			if poll == opts.MaxPolls-1 {
				return
			}
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}
}

// ScriptedStream emits script for taskID regardless of whether any work ran.
func ScriptedStream(ctx context.Context, taskID string, script worker.Script) iter.Seq[task.Event] {
	return func(yield func(task.Event) bool) {
		var last time.Time
		for i, step := range script {
			if step.Delay > 0 {
				timer := time.NewTimer(step.Delay)
				select {
				case <-ctx.Done():
					timer.Stop()
					return
				case <-timer.C:
				}
			}

			var ev task.Event
			if step.Artifact != nil {
				ev = task.NewArtifactEvent(taskID, step.Artifact)
			} else {
				ev = task.NewStatusEvent(taskID, step.State, step.Detail)
			}
			if ev.Timestamp.Before(last) {
				ev.Timestamp = last
			}
			last = ev.Timestamp
			ev.Seq = uint64(i + 1)

			if !yield(ev) || ev.IsTerminal() {
				return
			}
		}
	}
}
