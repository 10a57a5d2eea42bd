// Package tracing wires one OpenTelemetry span per session plus child
// spans for connect/resolve/request/response, exported to Jaeger, per
// SPEC_FULL.md §11. Grounded on the teacher's pkg/tracing/otel.go, with
// the net/http middleware trimmed: nothing in this design runs as an
// http.Handler chain, every span here is opened/closed explicitly by
// pkg/session and pkg/connector around a forwarding step.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName = "lb-proxy"
)

// Config configures the tracing system
type Config struct {
	Enabled     bool
	ServiceName string
	Endpoint    string // Jaeger endpoint
	SampleRate  float64
}

// Tracer wraps OpenTelemetry tracer
type Tracer struct {
	tracer         trace.Tracer
	tracerProvider *sdktrace.TracerProvider
}

// NewTracer creates a new tracer
func NewTracer(config Config) (*Tracer, error) {
	if !config.Enabled {
		return &Tracer{
			tracer: otel.Tracer(tracerName),
		}, nil
	}

	// Create Jaeger exporter
	exporter, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(config.Endpoint)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	// Create resource
	res, err := resource.New(
		context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// Create tracer provider
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(config.SampleRate)),
	)

	// Set global tracer provider
	otel.SetTracerProvider(tp)

	// Set global propagator for trace context
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Tracer{
		tracer:         tp.Tracer(tracerName),
		tracerProvider: tp,
	}, nil
}

// StartSpan starts a new span
func (t *Tracer) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// Close shuts down the tracer
func (t *Tracer) Close(ctx context.Context) error {
	if t.tracerProvider != nil {
		return t.tracerProvider.Shutdown(ctx)
	}
	return nil
}

// StartSessionSpan starts the single top-level span covering one
// session's entire lifetime (connect through teardown), tagged with
// its numeric session ID and UUID correlation ID (SPEC_FULL.md §11).
func (t *Tracer) StartSessionSpan(ctx context.Context, sessionID uint64, correlationID string, clientAddr string) (context.Context, trace.Span) {
	return t.StartSpan(ctx, "session",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.Int64("session.id", int64(sessionID)),
			attribute.String("session.correlation_id", correlationID),
			attribute.String("client.address", clientAddr),
		),
	)
}

// StartHTTPSpan starts a child span for one request/response leg
// (request or response), tagged with the usual HTTP semantic
// conventions where known at call time.
func (t *Tracer) StartHTTPSpan(ctx context.Context, name, method, path string) (context.Context, trace.Span) {
	return t.StartSpan(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			semconv.HTTPMethodKey.String(method),
			semconv.HTTPTargetKey.String(path),
		),
	)
}

// EndHTTPSpan closes span, recording status >= 500 as a span error.
func EndHTTPSpan(span trace.Span, statusCode int) {
	if statusCode >= 500 {
		span.SetStatus(codes.Error, fmt.Sprintf("HTTP %d", statusCode))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// StartProxySpan starts a span for proxying to a backend
func (t *Tracer) StartProxySpan(ctx context.Context, backend, operation string) (context.Context, trace.Span) {
	return t.StartSpan(ctx, "proxy: "+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("backend", backend),
			attribute.String("operation", operation),
		),
	)
}

// RecordError records an error in the current span
func RecordError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// AddEvent adds an event to the current span
func AddEvent(span trace.Span, name string, attrs ...attribute.KeyValue) {
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// SetAttributes sets attributes on the current span
func SetAttributes(span trace.Span, attrs ...attribute.KeyValue) {
	span.SetAttributes(attrs...)
}

// SpanFromContext returns the current span from context
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}
