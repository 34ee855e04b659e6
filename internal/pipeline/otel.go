package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName identifies the pipeline tracer.
	TracerName = "surveyprep.pipeline"
)

// runTracer provides OpenTelemetry spans for pipeline runs and stages.
type runTracer struct {
	tracer trace.Tracer
}

// newRunTracer creates a tracer for pipeline instrumentation.
func newRunTracer() *runTracer {
	return &runTracer{tracer: otel.Tracer(TracerName)}
}

// traceRun starts the span covering an entire pipeline run.
func (rt *runTracer) traceRun(ctx context.Context, runID string, rows, cols int) (context.Context, trace.Span) {
	return rt.tracer.Start(ctx, "pipeline.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("pipeline.run_id", runID),
			attribute.Int("pipeline.rows", rows),
			attribute.Int("pipeline.columns", cols),
		),
	)
}

// traceStage starts a span for one stage execution.
func (rt *runTracer) traceStage(ctx context.Context, runID, stageID string) (context.Context, trace.Span) {
	return rt.tracer.Start(ctx, "pipeline.stage."+stageID,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("pipeline.run_id", runID),
			attribute.String("stage.id", stageID),
		),
	)
}

// endStage closes a stage span, recording the outcome.
func endStage(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
