package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestHeaderTraceContextRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "publish")
	defer span.End()

	headers := InjectHeaders(ctx, map[string]string{"dlq_reason": "invalid_envelope"})
	require.Contains(t, headers, "traceparent")
	assert.Equal(t, "invalid_envelope", headers["dlq_reason"])

	extracted := ExtractHeaders(context.Background(), headers)
	assert.Equal(t, span.SpanContext().TraceID(), trace.SpanContextFromContext(extracted).TraceID())
	assert.Equal(t, span.SpanContext().TraceID().String(), TraceID(ctx))
	assert.Equal(t, "", TraceID(context.Background()))
}

func TestInjectHeaders_NilMap(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	headers := InjectHeaders(context.Background(), nil)
	assert.NotNil(t, headers)
	assert.Empty(t, headers)
}

func TestStartConsumerSpan_ContinuesRemoteTrace(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, producer := tp.Tracer("test").Start(context.Background(), "publish")
	headers := InjectHeaders(ctx, nil)
	producer.End()

	consumeCtx, span := StartConsumerSpan(context.Background(), "ixsi_requests", headers)
	defer span.End()

	assert.Equal(t, producer.SpanContext().TraceID(), trace.SpanContextFromContext(consumeCtx).TraceID())
}
