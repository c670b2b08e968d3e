package forest

import "context"

type contextKey string

const traceIDKey contextKey = "trace_id"

// ContextWithTraceID returns ctx carrying traceID. Dispatch stores the trace
// id of the running call so invokers can correlate their own logs.
func ContextWithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceIDFromContext returns the trace id stored by ContextWithTraceID.
func TraceIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(traceIDKey).(string)
	return id
}
