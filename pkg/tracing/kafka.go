package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const brokerTracerName = "ixsi-broker"

// InjectHeaders writes the trace context of ctx into headers, allocating the map when nil.
func InjectHeaders(ctx context.Context, headers map[string]string) map[string]string {
	if headers == nil {
		headers = make(map[string]string, 2)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.MapCarrier(headers))
	return headers
}

// ExtractHeaders returns ctx extended with the remote trace context found in headers.
func ExtractHeaders(ctx context.Context, headers map[string]string) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(headers))
}

// StartConsumerSpan continues the producer's trace for a message read from topic.
func StartConsumerSpan(ctx context.Context, topic string, headers map[string]string) (context.Context, trace.Span) {
	ctx = ExtractHeaders(ctx, headers)
	return GetTracer(brokerTracerName).Start(ctx, topic+" process",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", topic),
			attribute.String("messaging.operation.type", "process"),
		),
	)
}
