// Package tracing wraps OpenTelemetry spans around workflow hops.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the relay tracer.
const InstrumentationName = "github.com/deepnoodle-ai/relay"

// Span names.
const (
	SpanHop        = "relay.hop"
	SpanSynthesize = "relay.synthesize"
	SpanResume     = "relay.resume"
)

// Tracer starts relay spans. The zero value uses the global provider.
type Tracer struct {
	tracer oteltrace.Tracer
}

// New returns a Tracer on provider. A nil provider selects the global one,
// which is a no-op until the application installs an SDK provider.
func New(provider oteltrace.TracerProvider) *Tracer {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &Tracer{tracer: provider.Tracer(InstrumentationName)}
}

func (t *Tracer) get() oteltrace.Tracer {
	if t == nil || t.tracer == nil {
		return otel.Tracer(InstrumentationName)
	}
	return t.tracer
}

// StartHop starts the span of one participant invocation.
func (t *Tracer) StartHop(ctx context.Context, workflow, executionID, participant string, iteration int) (context.Context, oteltrace.Span) {
	return t.get().Start(ctx, SpanHop, oteltrace.WithAttributes(
		attribute.String("relay.workflow", workflow),
		attribute.String("relay.execution_id", executionID),
		attribute.String("relay.participant", participant),
		attribute.Int("relay.iteration", iteration),
	))
}

// StartSynthesis starts the span of the final synthesis call.
func (t *Tracer) StartSynthesis(ctx context.Context, workflow, executionID, coordinator string) (context.Context, oteltrace.Span) {
	return t.get().Start(ctx, SpanSynthesize, oteltrace.WithAttributes(
		attribute.String("relay.workflow", workflow),
		attribute.String("relay.execution_id", executionID),
		attribute.String("relay.participant", coordinator),
	))
}

// StartResume starts the span of a response submission.
func (t *Tracer) StartResume(ctx context.Context, workflow, correlationID string) (context.Context, oteltrace.Span) {
	return t.get().Start(ctx, SpanResume, oteltrace.WithAttributes(
		attribute.String("relay.workflow", workflow),
		attribute.String("relay.correlation_id", correlationID),
	))
}

// End records err on span, if any, and ends it.
func End(span oteltrace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
