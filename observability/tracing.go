package observability

import (
	"context"
	"io"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "sentiment-analyst"

var (
	tracerMu       sync.RWMutex
	tracer         trace.Tracer
	tracerProvider *sdktrace.TracerProvider
)

// InitTracing installs a tracer provider exporting spans as JSON to w.
// When enabled is false spans are no-ops and nothing is exported.
func InitTracing(enabled bool, serviceName, version string, w io.Writer) error {
	if !enabled {
		return nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return err
	}

	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	tracerMu.Lock()
	tracerProvider = tp
	tracer = tp.Tracer(tracerName)
	tracerMu.Unlock()
	return nil
}

// SetTracerProvider installs an existing provider, e.g. one backed by an
// in-memory exporter in tests. Passing nil disables tracing.
func SetTracerProvider(tp *sdktrace.TracerProvider) {
	tracerMu.Lock()
	defer tracerMu.Unlock()
	tracerProvider = tp
	if tp == nil {
		tracer = nil
		return
	}
	tracer = tp.Tracer(tracerName)
}

// ShutdownTracing flushes pending spans
func ShutdownTracing(ctx context.Context) error {
	tracerMu.RLock()
	tp := tracerProvider
	tracerMu.RUnlock()
	if tp != nil {
		return tp.Shutdown(ctx)
	}
	return nil
}

// StartSpan starts a span when tracing is enabled. Otherwise it returns the
// span already in ctx (a no-op span if there is none).
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	tracerMu.RLock()
	t := tracer
	tracerMu.RUnlock()
	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.Start(ctx, name, opts...)
}

// EndSpan records err on the span, if any, and ends it
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// TraceFields returns the trace and span IDs of the span in ctx
func TraceFields(ctx context.Context) (traceID, spanID string, ok bool) {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return "", "", false
	}
	return sc.TraceID().String(), sc.SpanID().String(), true
}
