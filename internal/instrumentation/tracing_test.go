package instrumentation

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// withRecorder installs an in-memory tracer provider for the duration of a test.
func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))

	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = tp.Shutdown(context.Background())
	})

	return recorder
}

func TestStartSpan(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartSpan(context.Background(), "test-span", attribute.String("k", "v"))
	span.End()

	ended := recorder.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 ended span, got %d", len(ended))
	}
	if ended[0].Name() != "test-span" {
		t.Errorf("span name = %q, want %q", ended[0].Name(), "test-span")
	}
}

func TestStartAvailabilitySpan(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartAvailabilitySpan(context.Background(), 3, 30)
	span.End()

	got := recorder.Ended()[0]
	if got.Name() != "availability.compute" {
		t.Errorf("span name = %q, want availability.compute", got.Name())
	}
	if got.SpanKind() != trace.SpanKindServer {
		t.Errorf("span kind = %v, want server", got.SpanKind())
	}

	found := false
	for _, kv := range got.Attributes() {
		if string(kv.Key) == SpanAttrUserCount && kv.Value.AsInt64() == 3 {
			found = true
		}
	}
	if !found {
		t.Error("expected user count attribute on span")
	}
}

func TestStartProviderSpan(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartProviderSpan(context.Background(), "google", "fetch",
		attribute.String(SpanAttrCalendarID, "primary"))
	span.End()

	got := recorder.Ended()[0]
	if got.Name() != "provider.google.fetch" {
		t.Errorf("span name = %q, want provider.google.fetch", got.Name())
	}
	if got.SpanKind() != trace.SpanKindClient {
		t.Errorf("span kind = %v, want client", got.SpanKind())
	}
	if len(got.Attributes()) != 2 {
		t.Errorf("expected 2 attributes, got %d", len(got.Attributes()))
	}
}

func TestSetSpanError(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartSpan(context.Background(), "failing")
	SetSpanError(span, errors.New("provider returned 500"))
	span.End()

	got := recorder.Ended()[0]
	if got.Status().Code != codes.Error {
		t.Errorf("status = %v, want error", got.Status().Code)
	}
	if len(got.Events()) == 0 {
		t.Error("expected error event to be recorded")
	}
}

func TestSetSpanError_Nil(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartSpan(context.Background(), "ok")
	SetSpanError(span, nil)
	span.End()

	if recorder.Ended()[0].Status().Code != codes.Unset {
		t.Error("nil error must not change span status")
	}
}

func TestSetSpanSuccess(t *testing.T) {
	recorder := withRecorder(t)

	_, span := StartSpan(context.Background(), "ok")
	SetSpanSuccess(span)
	span.End()

	if recorder.Ended()[0].Status().Code != codes.Ok {
		t.Error("expected ok status")
	}
}

func TestGetTraceID(t *testing.T) {
	if id := GetTraceID(context.Background()); id != "" {
		t.Errorf("expected empty trace ID, got %q", id)
	}

	withRecorder(t)
	ctx, span := StartSpan(context.Background(), "traced")
	defer span.End()

	if id := GetTraceID(ctx); len(id) != 32 {
		t.Errorf("expected 32 hex char trace ID, got %q", id)
	}
}
