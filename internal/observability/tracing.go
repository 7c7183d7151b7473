package observability

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer wraps an OpenTelemetry tracer with predicate-specific span creation methods.
type Tracer struct {
	tracer      trace.Tracer
	serviceName string
}

// NewTracer creates a new Tracer using the given TracerProvider.
func NewTracer(tp trace.TracerProvider, serviceName string) *Tracer {
	return &Tracer{
		tracer:      tp.Tracer(TracerName),
		serviceName: serviceName,
	}
}

// StartSpan starts a new span with the given name and attributes.
func (t *Tracer) StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartCompile starts a span for compiling a tree of nodeCount nodes.
func (t *Tracer) StartCompile(ctx context.Context, nodeCount int, fingerprint uint64) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "predicateview.compile", trace.WithAttributes(
		OperationAttr(OpCompile),
		NodeCountAttr(nodeCount),
		FingerprintAttr(fingerprint),
	))
}

// StartDecode starts a span for decoding a predicate against templateCount row templates.
func (t *Tracer) StartDecode(ctx context.Context, templateCount int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "predicateview.decode", trace.WithAttributes(
		OperationAttr(OpDecode),
		attribute.Int(AttrTemplateCount, templateCount),
	))
}

// EndDecode records the decode outcome on span.
func (t *Tracer) EndDecode(span trace.Span, decoded, dropped int) {
	span.SetAttributes(
		attribute.Int(AttrDecoded, decoded),
		attribute.Int(AttrDropped, dropped),
	)
}

// StartApply starts a span for pushing a predicate down to the table of model.
func (t *Tracer) StartApply(ctx context.Context, model string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "predicateview.apply", trace.WithAttributes(
		OperationAttr(OpApply),
		ModelAttr(model),
	))
}

// RecordError records an error on the span.
func (t *Tracer) RecordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// LoggerWithTrace returns a logger enriched with trace context.
func LoggerWithTrace(ctx context.Context, logger *slog.Logger) *slog.Logger {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return logger
	}
	return logger.With(
		slog.String(LogFieldTraceID, span.SpanContext().TraceID().String()),
		slog.String(LogFieldSpanID, span.SpanContext().SpanID().String()),
	)
}
