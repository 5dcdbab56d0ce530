package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "a2a-pipeline"

// StartTaskSpan starts a span for one executor submission.
func StartTaskSpan(ctx context.Context, agent, taskID, contextID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "task.submit",
		trace.WithAttributes(
			attribute.String("agent", agent),
			attribute.String("task.id", taskID),
			attribute.String("context.id", contextID),
		),
	)
}

// StartStageSpan starts a span for one orchestrator stage call.
func StartStageSpan(ctx context.Context, contextID, stage string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "pipeline.stage",
		trace.WithAttributes(
			attribute.String("context.id", contextID),
			attribute.String("stage", stage),
		),
	)
}

// StartProviderSpan starts a span for a call to a third-party provider.
func StartProviderSpan(ctx context.Context, provider, op string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "provider."+op,
		trace.WithAttributes(attribute.String("provider", provider)),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}
