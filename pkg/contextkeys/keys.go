// Package contextkeys provides centralized context key definitions
//
// IMPORTANT: All context keys used across the application must be defined here.
// This prevents typos, documents dependencies, and makes key usage discoverable.
//
// USAGE PATTERN:
//   import "github.com/lmnpay/gateway/pkg/contextkeys"
//   ctx = context.WithValue(ctx, contextkeys.IdentityKey, identity)
//   identity := ctx.Value(contextkeys.IdentityKey).(*auth.Identity)
package contextkeys

import "context"

// Key is the type for context keys to prevent collisions
type Key string

const (
	// IdentityKey contains *auth.Identity
	// Set by: pipeline.Middleware after successful authentication
	// Required by: downstream handlers, ownership checks
	// Type: *auth.Identity
	IdentityKey Key = "client_identity"

	// RequestIDKey contains request ID string (UUID)
	// Set by: pipeline.Middleware at request entry
	// Used by: Logger, audit trail, distributed tracing
	// Type: string
	RequestIDKey Key = "request_id"

	// LoggerKey contains *observability.Logger
	// Set by: Observability middleware
	// Used by: Handlers that need structured logging with request context
	// Type: *observability.Logger
	LoggerKey Key = "logger"

	// RequestStartTimeKey contains request start timestamp
	// Set by: pipeline.Middleware
	// Used by: Latency calculation for audit records
	// Type: time.Time
	RequestStartTimeKey Key = "request_start_time"
)

// Helper functions for type-safe context operations

// WithIdentity adds the authenticated client identity to the context
func WithIdentity(ctx context.Context, identity interface{}) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// WithRequestID adds request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithLogger adds logger to the context
func WithLogger(ctx context.Context, logger interface{}) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// WithRequestStartTime adds request start time to the context
func WithRequestStartTime(ctx context.Context, startTime interface{}) context.Context {
	return context.WithValue(ctx, RequestStartTimeKey, startTime)
}

// GetRequestID retrieves request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
