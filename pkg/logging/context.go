package logging

import (
	"context"
)

const (
	TraceIDKey       = "trace_id"
	TransactionIDKey = "transaction_id"
	SystemIDKey      = "system_id"
	RequestTagKey    = "request_tag"
	ServiceNameKey   = "service_name"
)

type contextKey string

func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, contextKey(TraceIDKey), traceID)
}

func WithTransactionID(ctx context.Context, transactionID string) context.Context {
	return context.WithValue(ctx, contextKey(TransactionIDKey), transactionID)
}

// WithRequest tags ctx with the requesting system and the request variant being processed.
func WithRequest(ctx context.Context, systemID, tag string) context.Context {
	ctx = context.WithValue(ctx, contextKey(SystemIDKey), systemID)
	return context.WithValue(ctx, contextKey(RequestTagKey), tag)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, contextKey(ServiceNameKey), serviceName)
}

func GetTraceID(ctx context.Context) string {
	return stringValue(ctx, TraceIDKey)
}

func GetTransactionID(ctx context.Context) string {
	return stringValue(ctx, TransactionIDKey)
}

func GetSystemID(ctx context.Context) string {
	return stringValue(ctx, SystemIDKey)
}

func GetRequestTag(ctx context.Context) string {
	return stringValue(ctx, RequestTagKey)
}

func GetServiceName(ctx context.Context) string {
	return stringValue(ctx, ServiceNameKey)
}

func stringValue(ctx context.Context, key string) string {
	if v, ok := ctx.Value(contextKey(key)).(string); ok {
		return v
	}
	return ""
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 10)

	for _, key := range []string{TraceIDKey, TransactionIDKey, SystemIDKey, RequestTagKey, ServiceNameKey} {
		if v := stringValue(ctx, key); v != "" {
			fields = append(fields, key, v)
		}
	}

	return fields
}
