package instrumentation

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the default tracer name for the scheduling service.
const TracerName = "github.com/paramvora-capmatch/capmatch-dev-sub009"

// Span attribute keys for operations.
const (
	// SpanAttrProvider is the calendar provider attribute.
	SpanAttrProvider = "calendar.provider"

	// SpanAttrConnectionID is the calendar connection id attribute.
	SpanAttrConnectionID = "calendar.connection_id"

	// SpanAttrCalendarID is the provider calendar id attribute.
	SpanAttrCalendarID = "calendar.calendar_id"

	// SpanAttrUserCount is the number of participants in an availability request.
	SpanAttrUserCount = "availability.user_count"

	// SpanAttrDuration is the requested meeting length in minutes.
	SpanAttrDuration = "availability.duration_minutes"

	// SpanAttrSlotCount is the number of free slots produced.
	SpanAttrSlotCount = "availability.slot_count"

	// SpanAttrHTTPStatus is the provider HTTP status code.
	SpanAttrHTTPStatus = "http.response.status_code"
)

// StartSpan starts a new span with the given name and attributes.
// The caller is responsible for ending the span with defer span.End().
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// StartAvailabilitySpan starts the server span for one availability computation.
func StartAvailabilitySpan(ctx context.Context, userCount, durationMinutes int) (context.Context, trace.Span) {
	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "availability.compute",
		trace.WithAttributes(
			attribute.Int(SpanAttrUserCount, userCount),
			attribute.Int(SpanAttrDuration, durationMinutes),
		),
		trace.WithSpanKind(trace.SpanKindServer),
	)
}

// StartProviderSpan starts a client span for a calendar provider call.
// operation is "fetch" or "refresh".
func StartProviderSpan(ctx context.Context, provider, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, attribute.String(SpanAttrProvider, provider))
	allAttrs = append(allAttrs, attrs...)

	tracer := otel.GetTracerProvider().Tracer(TracerName)
	return tracer.Start(ctx, "provider."+provider+"."+operation,
		trace.WithAttributes(allAttrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// SetSpanError records an error on the span and sets the status to error.
func SetSpanError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// SetSpanSuccess sets the span status to OK.
func SetSpanSuccess(span trace.Span) {
	span.SetStatus(codes.Ok, "")
}

// GetTraceID returns the trace ID from the current span in context.
// Returns empty string if no valid span is present.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
