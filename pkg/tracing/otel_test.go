package tracing

import (
	"context"
	"errors"
	"testing"
)

func TestNewTracerDisabled(t *testing.T) {
	tr, err := NewTracer(Config{Enabled: false})
	if err != nil {
		t.Fatalf("NewTracer: %v", err)
	}
	if tr == nil {
		t.Fatal("expected a non-nil no-op tracer")
	}
	if tr.tracerProvider != nil {
		t.Error("disabled tracer must not hold a TracerProvider")
	}

	ctx, span := tr.StartSessionSpan(context.Background(), 1, "corr-1", "127.0.0.1:1234")
	if span == nil {
		t.Fatal("expected a span even when tracing is disabled")
	}
	defer span.End()

	if got := SpanFromContext(ctx); got == nil {
		t.Error("expected SpanFromContext to return the started span")
	}
}

func TestNewTracerEnabledWithUnreachableEndpoint(t *testing.T) {
	_, err := NewTracer(Config{Enabled: true, ServiceName: "lb", Endpoint: "http://127.0.0.1:0", SampleRate: 1.0})
	if err != nil {
		t.Fatalf("NewTracer: %v", err)
	}
}

func TestStartHTTPSpanAndEnd(t *testing.T) {
	tr, err := NewTracer(Config{Enabled: false})
	if err != nil {
		t.Fatalf("NewTracer: %v", err)
	}

	_, span := tr.StartHTTPSpan(context.Background(), "forward-request", "GET", "/")
	EndHTTPSpan(span, 200)

	_, errSpan := tr.StartHTTPSpan(context.Background(), "forward-response", "GET", "/")
	EndHTTPSpan(errSpan, 503)
}

func TestRecordError(t *testing.T) {
	tr, err := NewTracer(Config{Enabled: false})
	if err != nil {
		t.Fatalf("NewTracer: %v", err)
	}

	_, span := tr.StartProxySpan(context.Background(), "10.0.0.1:8080", "connect")
	RecordError(span, errors.New("connection refused"))
	span.End()
}

func TestCloseWithoutProvider(t *testing.T) {
	tr, err := NewTracer(Config{Enabled: false})
	if err != nil {
		t.Fatalf("NewTracer: %v", err)
	}
	if err := tr.Close(context.Background()); err != nil {
		t.Errorf("Close on a no-op tracer should be a no-op: %v", err)
	}
}
