package shared

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	nanoid "github.com/matoous/go-nanoid/v2"
)

// ContextKey is the key type for values this package stores in a context.
type ContextKey string

const (
	// TraceIDKey is the key for the trace ID in the request context
	TraceIDKey ContextKey = "traceID"

	// TraceIDLength is the number of nanoid characters in a trace ID
	TraceIDLength = 21
)

// fallbackCounter keeps fallback trace IDs distinct within a process.
var fallbackCounter atomic.Uint64

// SetTraceID adds a freshly generated trace ID to the context.
func SetTraceID(ctx context.Context) context.Context {
	return WithTraceID(ctx, generateTraceID())
}

// WithTraceID stores a known trace ID in the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// GetTraceID retrieves the trace ID from the context.
// If no trace ID exists, it returns an empty string.
func GetTraceID(ctx context.Context) string {
	traceID, ok := ctx.Value(TraceIDKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// generateTraceID returns a URL-safe random ID. If the random source fails it
// falls back to a time-based ID, never a static value.
func generateTraceID() string {
	id, err := nanoid.New()
	if err != nil || len(id) != TraceIDLength {
		slog.Error("failed to generate random trace ID",
			"error", err,
			"fallback", "time-based generation")
		return generateFallbackTraceID()
	}
	return id
}

func generateFallbackTraceID() string {
	n := fallbackCounter.Add(1)
	return strconv.FormatInt(time.Now().UnixNano(), 36) + "-" + strconv.FormatUint(n, 36)
}
