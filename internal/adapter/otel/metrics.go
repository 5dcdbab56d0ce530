package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "a2a-pipeline"

// Metrics holds the agent and pipeline metric instruments.
type Metrics struct {
	TasksSubmitted  metric.Int64Counter
	TasksCompleted  metric.Int64Counter
	WorkerFallbacks metric.Int64Counter
	StreamEvents    metric.Int64Counter
	PipelineRuns    metric.Int64Counter
	TaskDuration    metric.Float64Histogram
}

// NewMetrics creates all metric instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.TasksSubmitted, err = meter.Int64Counter("a2a.tasks.submitted",
		metric.WithDescription("Number of messages submitted to an agent"))
	if err != nil {
		return nil, err
	}

	m.TasksCompleted, err = meter.Int64Counter("a2a.tasks.completed",
		metric.WithDescription("Number of tasks finalized as completed"))
	if err != nil {
		return nil, err
	}

	m.WorkerFallbacks, err = meter.Int64Counter("a2a.worker.fallbacks",
		metric.WithDescription("Number of worker failures replaced by fallback content"))
	if err != nil {
		return nil, err
	}

	m.StreamEvents, err = meter.Int64Counter("a2a.stream.events",
		metric.WithDescription("Number of events delivered on progress streams"))
	if err != nil {
		return nil, err
	}

	m.PipelineRuns, err = meter.Int64Counter("a2a.pipeline.runs",
		metric.WithDescription("Number of orchestrated pipeline runs by route"))
	if err != nil {
		return nil, err
	}

	m.TaskDuration, err = meter.Float64Histogram("a2a.task.duration_seconds",
		metric.WithDescription("Worker run duration in seconds"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
