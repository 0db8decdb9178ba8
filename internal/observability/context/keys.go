package context

import "context"

type contextKey string

const requestIDKey contextKey = "observability_request_id"

// WithRequestID stores the request ID so downstream logs and errors can
// reference the originating request.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if ctx == nil || requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey).(string)
	return value
}
