package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/Strob0t/A2APipeline/internal/domain/task"
)

// ErrStaleRun is returned when a run appends to a log that a newer
// submission with the same task id has since reopened.
var ErrStaleRun = errors.New("progress log reopened by a newer run")

// taskLog is one task's append-only update log. A resubmission bumps gen
// and clears events; seq and timestamps keep increasing across generations.
type taskLog struct {
	gen     uint64
	state   task.State
	events  []task.Event
	lastSeq uint64
	lastTS  time.Time
}

// ProgressLog holds the per-task update logs of one agent. All access goes
// through a single mutex so readers never observe a half-appended event.
type ProgressLog struct {
	mu    sync.Mutex
	logs  *simplelru.LRU[string, *taskLog]
	clock func() time.Time
}

// NewProgressLog creates a log retaining at most maxTasks task logs.
func NewProgressLog(maxTasks int) *ProgressLog {
	if maxTasks <= 0 {
		maxTasks = 10000
	}
	logs, err := simplelru.NewLRU[string, *taskLog](maxTasks, nil)
	if err != nil {
		// only returned for a non-positive size
		panic(err)
	}
	return &ProgressLog{logs: logs, clock: time.Now}
}

// Open starts a new generation for taskID and returns its number. Earlier
// events for the task are discarded.
func (l *ProgressLog) Open(taskID string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	tl, ok := l.logs.Get(taskID)
	if !ok {
		tl = &taskLog{}
		l.logs.Add(taskID, tl)
	}
	tl.gen++
	tl.state = task.StateQueued
	tl.events = nil
	return tl.gen
}

// Append records ev under generation gen, assigning its seq and timestamp.
// Status events are checked against the task's current state, so nothing
// can be appended after completed or failed.
func (l *ProgressLog) Append(taskID string, gen uint64, ev task.Event) (task.Event, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tl, ok := l.logs.Get(taskID)
	if !ok || tl.gen != gen {
		return task.Event{}, fmt.Errorf("task %s: %w", taskID, ErrStaleRun)
	}

	if tl.state.IsTerminal() {
		return task.Event{}, task.ValidateTransition(tl.state, tl.state)
	}
	if ev.Kind == task.KindStatus {
		if err := task.ValidateTransition(tl.state, ev.State); err != nil {
			return task.Event{}, fmt.Errorf("task %s: %w", taskID, err)
		}
		tl.state = ev.State
	}

	ts := l.clock().UTC()
	if ts.Before(tl.lastTS) {
		ts = tl.lastTS
	}
	tl.lastTS = ts
	tl.lastSeq++

	out := ev.Clone()
	out.TaskID = taskID
	out.Seq = tl.lastSeq
	out.Timestamp = ts
	tl.events = append(tl.events, out)
	return out.Clone(), nil
}

// Since returns copies of the current generation's events with seq greater
// than afterSeq. An unknown task yields nil, not an error.
func (l *ProgressLog) Since(taskID string, afterSeq uint64) []task.Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	tl, ok := l.logs.Peek(taskID)
	if !ok {
		return nil
	}
	var out []task.Event
	for _, ev := range tl.events {
		if ev.Seq > afterSeq {
			out = append(out, ev.Clone())
		}
	}
	return out
}

// State returns the current state of taskID's log.
func (l *ProgressLog) State(taskID string) (task.State, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tl, ok := l.logs.Peek(taskID)
	if !ok {
		return "", false
	}
	return tl.state, true
}
