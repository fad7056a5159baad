package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// PostgresSink persists audit records to PostgreSQL. Records are only
// ever inserted; there is no update path.
type PostgresSink struct {
	db     *sql.DB
	onFail func(error)
}

// PostgresOption configures a PostgresSink
type PostgresOption func(*PostgresSink)

// WithFailureCallback registers a hook invoked when an insert fails.
// Audit writes are fire-and-forget, so failures surface through this
// hook (and logs) rather than through the request path.
func WithFailureCallback(fn func(error)) PostgresOption {
	return func(s *PostgresSink) { s.onFail = fn }
}

// NewPostgresSink creates a database-backed audit sink
func NewPostgresSink(db *sql.DB, opts ...PostgresOption) (*PostgresSink, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	sink := &PostgresSink{db: db}
	for _, opt := range opts {
		opt(sink)
	}
	if err := sink.ensureTable(); err != nil {
		return nil, fmt.Errorf("failed to ensure audit_records table: %w", err)
	}
	return sink, nil
}

// ensureTable creates the audit_records table if it doesn't exist
func (s *PostgresSink) ensureTable() error {
	query := `
	CREATE TABLE IF NOT EXISTS audit_records (
		id BIGSERIAL PRIMARY KEY,
		request_id VARCHAR(100) NOT NULL,
		client_id VARCHAR(100) NOT NULL,
		endpoint TEXT NOT NULL,
		method VARCHAR(10) NOT NULL,
		ip_address VARCHAR(45),
		outcome VARCHAR(20) NOT NULL,
		reason VARCHAR(100),
		strategy VARCHAR(50),
		status_code INTEGER NOT NULL,
		latency_ms BIGINT NOT NULL,
		timestamp TIMESTAMP WITH TIME ZONE NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_audit_records_timestamp ON audit_records(timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_audit_records_client_id ON audit_records(client_id);
	CREATE INDEX IF NOT EXISTS idx_audit_records_outcome ON audit_records(outcome);
	`
	_, err := s.db.Exec(query)
	return err
}

// Append implements Sink
func (s *PostgresSink) Append(ctx context.Context, record *Record) {
	query := `
		INSERT INTO audit_records (
			request_id, client_id, endpoint, method, ip_address,
			outcome, reason, strategy, status_code, latency_ms, timestamp
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := s.db.ExecContext(ctx, query,
		record.RequestID, record.ClientID, record.Endpoint, record.Method, record.IPAddress,
		record.Outcome, record.Reason, record.Strategy, record.Status,
		record.Latency.Milliseconds(), record.Timestamp,
	)
	if err != nil && s.onFail != nil {
		s.onFail(fmt.Errorf("failed to insert audit record: %w", err))
	}
}

// Close implements Sink. The database handle is owned by the caller.
func (s *PostgresSink) Close() error { return nil }

// PruneBefore deletes records older than cutoff and returns how many
// were removed. Scheduled by the server's retention job.
func (s *PostgresSink) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM audit_records WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune audit records: %w", err)
	}
	return result.RowsAffected()
}
