package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	cfotel "github.com/Strob0t/A2APipeline/internal/adapter/otel"
	"github.com/Strob0t/A2APipeline/internal/domain/task"
	"github.com/Strob0t/A2APipeline/internal/logger"
	"github.com/Strob0t/A2APipeline/internal/port/broadcast"
	"github.com/Strob0t/A2APipeline/internal/port/taskstore"
	"github.com/Strob0t/A2APipeline/internal/port/worker"
)

// DefaultWorkerTimeout bounds a worker run when none is configured.
const DefaultWorkerTimeout = 60 * time.Second

// Agent describes one pipeline stage served by an Executor.
type Agent struct {
	Name string
	// WorkingDetail is the detail of the first working status of every task.
	WorkingDetail string
	Worker        worker.Worker
	// Fallback builds the degraded result when Worker fails. Nil uses
	// DefaultFallback.
	Fallback worker.FallbackFunc
	// Script is replayed by scripted streams.
	Script worker.Script
}

// ExecutorOptions tunes an Executor.
type ExecutorOptions struct {
	WorkerTimeout time.Duration
	Stream        StreamOptions
}

// Executor accepts messages for one agent, runs its worker synchronously and
// records the outcome. It is the only writer of its store and progress log.
type Executor struct {
	agent    Agent
	store    taskstore.Store
	progress *ProgressLog
	events   broadcast.Broadcaster
	opts     ExecutorOptions
	metrics  *cfotel.Metrics
	newID    func() string
}

// NewExecutor creates an executor. events may be nil.
func NewExecutor(agent Agent, store taskstore.Store, progress *ProgressLog, events broadcast.Broadcaster, opts ExecutorOptions) *Executor {
	if events == nil {
		events = broadcast.Nop{}
	}
	if opts.WorkerTimeout <= 0 {
		opts.WorkerTimeout = DefaultWorkerTimeout
	}
	opts.Stream = opts.Stream.withDefaults()
	if agent.Fallback == nil {
		agent.Fallback = DefaultFallback(agent.Name)
	}
	return &Executor{
		agent:    agent,
		store:    store,
		progress: progress,
		events:   events,
		opts:     opts,
		newID:    uuid.NewString,
	}
}

// SetMetrics enables metric recording.
func (e *Executor) SetMetrics(m *cfotel.Metrics) { e.metrics = m }

// Name returns the agent name.
func (e *Executor) Name() string { return e.agent.Name }

// Submit runs the worker on req.Message.Content and stores the completed
// task. Worker failures never surface as errors: they are logged and
// replaced by the agent's fallback content. Only an invalid message or a
// store failure returns an error.
func (e *Executor) Submit(ctx context.Context, req task.MessageRequest) (*task.MessageResponse, error) {
	if err := req.Message.Validate(); err != nil {
		return nil, err
	}

	taskID := req.TaskID
	if taskID == "" {
		taskID = e.newID()
	}
	contextID := req.ContextID
	if contextID == "" {
		contextID = e.newID()
	}

	ctx, span := cfotel.StartTaskSpan(ctx, e.agent.Name, taskID, contextID)
	defer span.End()

	log := slog.With("agent", e.agent.Name, "task_id", taskID, "context_id", contextID)
	if rid := logger.RequestID(ctx); rid != "" {
		log = log.With("request_id", rid)
	}
	agentAttr := metric.WithAttributes(attribute.String("agent", e.agent.Name))
	if e.metrics != nil {
		e.metrics.TasksSubmitted.Add(ctx, 1, agentAttr)
	}

	r := &run{
		e:   e,
		ctx: context.WithoutCancel(ctx),
		gen: e.progress.Open(taskID),
		log: log,
		snap: task.Snapshot{
			TaskID:    taskID,
			ContextID: contextID,
			State:     task.StateQueued,
			Artifacts: []task.Artifact{},
		},
	}
	r.Working(e.agent.WorkingDetail)

	start := time.Now()
	res, err := e.invoke(ctx, req.Message.Content, r)
	elapsed := time.Since(start)

	fallback := false
	if err != nil {
		werr := worker.Fail(e.agent.Name, "run", err)
		log.Warn("worker failed, using fallback", "diagnostic", werr.Diagnostic, "transient", werr.Transient)
		span.RecordError(werr)
		span.SetStatus(codes.Error, werr.Diagnostic)
		res = e.buildFallback(req.Message.Content, werr)
		fallback = true
		if e.metrics != nil {
			e.metrics.WorkerFallbacks.Add(ctx, 1, agentAttr)
		}
	}
	if e.metrics != nil {
		e.metrics.TaskDuration.Record(ctx, elapsed.Seconds(), agentAttr)
	}

	if err := r.finalize(res.Artifacts); err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.TasksCompleted.Add(ctx, 1, agentAttr)
	}
	log.Info("task completed", "fallback", fallback, "duration_ms", elapsed.Milliseconds())

	meta := make(map[string]any, len(req.Metadata)+3)
	maps.Copy(meta, req.Metadata)
	meta["agent"] = e.agent.Name
	meta["fallback"] = fallback
	meta["duration_ms"] = elapsed.Milliseconds()

	return &task.MessageResponse{
		ContextID: contextID,
		TaskID:    taskID,
		Message:   task.Message{Role: task.RoleAssistant, Content: res.PrimaryText},
		Metadata:  meta,
	}, nil
}

// invoke runs the worker under the executor timeout. A worker that ignores
// cancellation is abandoned once the deadline passes; a panic becomes a
// worker error.
func (e *Executor) invoke(ctx context.Context, input string, r *run) (worker.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.opts.WorkerTimeout)
	defer cancel()

	type outcome struct {
		res worker.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: worker.Failf(e.agent.Name, "run", "panic: %v", p)}
			}
		}()
		res, err := e.agent.Worker.Run(ctx, input, r)
		done <- outcome{res: res, err: err}
	}()

	select {
	case out := <-done:
		return out.res, out.err
	case <-ctx.Done():
		return worker.Result{}, worker.Fail(e.agent.Name, "run", ctx.Err())
	}
}

func (e *Executor) buildFallback(input string, werr *worker.Error) worker.Result {
	res := e.agent.Fallback(input, werr)
	if len(res.Artifacts) == 0 {
		res.Artifacts = []task.Artifact{{}}
	}
	marked := make([]task.Artifact, 0, len(res.Artifacts))
	for _, a := range res.Artifacts {
		a = a.Clone()
		if a == nil {
			a = task.Artifact{}
		}
		a["fallback"] = true
		marked = append(marked, a)
	}
	res.Artifacts = marked
	return res
}

// DefaultFallback returns a placeholder result naming the agent. The worker
// diagnostic is kept out of the message.
func DefaultFallback(agent string) worker.FallbackFunc {
	return func(_ string, werr *worker.Error) worker.Result {
		return worker.Result{
			PrimaryText: fmt.Sprintf("**[FALLBACK]** The %s agent could not reach its provider. Placeholder content was returned.", agent),
			Artifacts: []task.Artifact{{
				"agent":     agent,
				"fallback":  true,
				"transient": werr.Transient,
			}},
		}
	}
}

// Resubscribe returns the last known snapshot of taskID, or the queued
// placeholder for a task this agent has never seen.
func (e *Executor) Resubscribe(ctx context.Context, taskID string) (task.Snapshot, error) {
	snap, ok, err := e.store.Get(ctx, taskID)
	if err != nil {
		return task.Snapshot{}, fmt.Errorf("resubscribe %s: %w", taskID, err)
	}
	if !ok {
		return task.QueuedSnapshot(taskID), nil
	}
	if snap.Artifacts == nil {
		snap.Artifacts = []task.Artifact{}
	}
	return snap, nil
}

// Stream returns taskID's progress events in the configured mode.
func (e *Executor) Stream(ctx context.Context, taskID string) iter.Seq[task.Event] {
	var events iter.Seq[task.Event]
	if e.opts.Stream.Mode == StreamScripted && len(e.agent.Script) > 0 {
		events = ScriptedStream(ctx, taskID, e.agent.Script)
	} else {
		events = LiveStream(ctx, e.progress, taskID, e.opts.Stream)
	}
	if e.metrics == nil {
		return events
	}

	attrs := metric.WithAttributes(
		attribute.String("agent", e.agent.Name),
		attribute.String("mode", string(e.opts.Stream.Mode)),
	)
	return func(yield func(task.Event) bool) {
		for ev := range events {
			e.metrics.StreamEvents.Add(ctx, 1, attrs)
			if !yield(ev) {
				return
			}
		}
	}
}

// run tracks one submission. It is the worker's progress reporter and may
// be called after the executor abandoned a timed-out worker, so all state
// is guarded by mu.
type run struct {
	e *Executor
	// ctx carries the request's values but not its cancellation, so a
	// caller that hangs up does not cut off the store and subscribers.
	ctx   context.Context
	gen   uint64
	log   *slog.Logger
	mu    sync.Mutex
	snap  task.Snapshot
	stale bool

	// pubMu orders publication; it is taken before mu is released so events
	// leave in seq order without holding mu during the broadcast.
	pubMu sync.Mutex
}

// Working implements worker.Reporter.
func (r *run) Working(detail string) {
	r.record(task.NewStatusEvent(r.snap.TaskID, task.StateWorking, detail))
}

// Artifact implements worker.Reporter.
func (r *run) Artifact(a task.Artifact) {
	r.record(task.NewArtifactEvent(r.snap.TaskID, a))
}

func (r *run) record(ev task.Event) {
	r.mu.Lock()
	stored, ok := r.append(ev)
	if !ok {
		r.mu.Unlock()
		return
	}
	switch stored.Kind {
	case task.KindStatus:
		r.snap.State = stored.State
		r.snap.LastEvent = &stored
	case task.KindArtifact:
		r.snap.Artifacts = append(r.snap.Artifacts, stored.Artifact.Clone())
	}
	if err := r.e.store.Put(r.ctx, r.snap); err != nil {
		r.log.Error("store progress snapshot", "error", err)
	}
	r.publishUnlock(stored)
}

// finalize replaces the artifacts wholesale and records completed.
func (r *run) finalize(artifacts []task.Artifact) error {
	r.mu.Lock()
	stored, ok := r.append(task.NewStatusEvent(r.snap.TaskID, task.StateCompleted, ""))
	if !ok {
		r.mu.Unlock()
		return nil
	}
	r.snap.State = task.StateCompleted
	r.snap.LastEvent = &stored
	r.snap.Artifacts = task.CloneArtifacts(artifacts)
	if err := r.e.store.Put(r.ctx, r.snap); err != nil {
		r.mu.Unlock()
		return fmt.Errorf("store task %s: %w", r.snap.TaskID, err)
	}
	r.publishUnlock(stored)
	return nil
}

// publishUnlock releases mu and broadcasts ev. Must be called with mu held.
func (r *run) publishUnlock(ev task.Event) {
	r.pubMu.Lock()
	r.mu.Unlock()
	defer r.pubMu.Unlock()
	r.e.events.PublishTaskEvent(r.ctx, r.e.agent.Name, ev)
}

// append writes ev to the progress log. A stale run (the task id was
// resubmitted) stops writing to the log and the store.
func (r *run) append(ev task.Event) (task.Event, bool) {
	if r.stale {
		return task.Event{}, false
	}
	stored, err := r.e.progress.Append(r.snap.TaskID, r.gen, ev)
	if err != nil {
		if errors.Is(err, ErrStaleRun) {
			r.stale = true
			r.log.Info("task resubmitted, dropping updates from older run")
		} else {
			r.log.Debug("progress update rejected", "error", err)
		}
		return task.Event{}, false
	}
	return stored, true
}
