package audit

import (
	"context"

	"github.com/lmnpay/gateway/pkg/observability"
)

// LogSink writes audit records as structured log lines. Useful on its
// own in development and as a MultiSink companion to the Postgres sink
// in production.
type LogSink struct {
	logger *observability.Logger
}

// NewLogSink creates a sink writing through the given logger
func NewLogSink(logger *observability.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Append implements Sink
func (s *LogSink) Append(ctx context.Context, record *Record) {
	s.logger.WithFields(map[string]interface{}{
		"request_id": record.RequestID,
		"client_id":  record.ClientID,
		"endpoint":   record.Endpoint,
		"method":     record.Method,
		"ip_address": record.IPAddress,
		"outcome":    string(record.Outcome),
		"reason":     record.Reason,
		"strategy":   record.Strategy,
		"status":     record.Status,
		"latency_ms": record.Latency.Milliseconds(),
	}).Info("audit")
}

// Close implements Sink
func (s *LogSink) Close() error { return nil }
