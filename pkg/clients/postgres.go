package clients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// PostgresStore implements CredentialStore backed by PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a Postgres-backed credential store
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	store := &PostgresStore{db: db}
	if err := store.ensureTables(); err != nil {
		return nil, fmt.Errorf("failed to ensure client tables: %w", err)
	}
	return store, nil
}

// ensureTables creates the client tables if they don't exist
func (s *PostgresStore) ensureTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS clients (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) NOT NULL UNIQUE,
		api_key VARCHAR(255) NOT NULL UNIQUE,
		api_secret_hash VARCHAR(64) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		plan VARCHAR(20) NOT NULL DEFAULT 'free',
		scopes TEXT[] NOT NULL DEFAULT '{}',
		allowed_ips TEXT[] NOT NULL DEFAULT '{}',
		rate_limit_per_minute INTEGER NOT NULL DEFAULT 60,
		rate_limit_per_hour INTEGER NOT NULL DEFAULT 1000,
		rate_limit_per_day INTEGER NOT NULL DEFAULT 10000,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		last_api_call_at TIMESTAMP WITH TIME ZONE
	);

	CREATE TABLE IF NOT EXISTS client_api_keys (
		id UUID PRIMARY KEY,
		client_id UUID NOT NULL REFERENCES clients(id),
		name VARCHAR(255) NOT NULL,
		environment VARCHAR(20) NOT NULL DEFAULT 'sandbox',
		api_key VARCHAR(255) NOT NULL UNIQUE,
		api_secret_hash VARCHAR(64) NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		scopes TEXT[] NOT NULL DEFAULT '{}',
		expires_at TIMESTAMP WITH TIME ZONE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		last_used_at TIMESTAMP WITH TIME ZONE,
		UNIQUE (client_id, name, environment)
	);

	CREATE INDEX IF NOT EXISTS idx_clients_api_key ON clients(api_key);
	CREATE INDEX IF NOT EXISTS idx_client_api_keys_api_key ON client_api_keys(api_key);
	`
	_, err := s.db.Exec(query)
	return err
}

const clientColumns = `id, name, email, api_key, api_secret_hash, status, plan,
		scopes, allowed_ips,
		rate_limit_per_minute, rate_limit_per_hour, rate_limit_per_day,
		created_at, updated_at, last_api_call_at`

// FindByKey implements CredentialStore. The primary client key is checked
// first, then the secondary key table.
func (s *PostgresStore) FindByKey(ctx context.Context, apiKey string) (*Credential, error) {
	client, err := s.findClientByKey(ctx, apiKey)
	if err == nil {
		return &Credential{Client: client}, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	key, err := s.findAPIKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	owner, err := s.findClientByID(ctx, key.ClientID)
	if err != nil {
		return nil, err
	}
	return &Credential{Client: owner, Key: key}, nil
}

func (s *PostgresStore) findClientByKey(ctx context.Context, apiKey string) (*Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE api_key = $1`
	return s.scanClient(s.db.QueryRowContext(ctx, query, apiKey))
}

func (s *PostgresStore) findClientByID(ctx context.Context, id string) (*Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	return s.scanClient(s.db.QueryRowContext(ctx, query, id))
}

func (s *PostgresStore) scanClient(row *sql.Row) (*Client, error) {
	var c Client
	var scopes, ips []string
	err := row.Scan(
		&c.ID, &c.Name, &c.Email, &c.APIKey, &c.APISecretHash, &c.Status, &c.Plan,
		pq.Array(&scopes), pq.Array(&ips),
		&c.Limits.PerMinute, &c.Limits.PerHour, &c.Limits.PerDay,
		&c.CreatedAt, &c.UpdatedAt, &c.LastAPICallAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan client: %w", err)
	}
	c.Scopes = toScopes(scopes)
	c.AllowedIPs = ips
	return &c, nil
}

func (s *PostgresStore) findAPIKey(ctx context.Context, apiKey string) (*APIKeyRecord, error) {
	query := `
		SELECT id, client_id, name, environment, api_key, api_secret_hash,
			active, scopes, expires_at, created_at, last_used_at
		FROM client_api_keys WHERE api_key = $1`

	var k APIKeyRecord
	var scopes []string
	err := s.db.QueryRowContext(ctx, query, apiKey).Scan(
		&k.ID, &k.ClientID, &k.Name, &k.Environment, &k.APIKey, &k.APISecretHash,
		&k.Active, pq.Array(&scopes), &k.ExpiresAt, &k.CreatedAt, &k.LastUsedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan api key: %w", err)
	}
	k.Scopes = toScopes(scopes)
	return &k, nil
}

// CreateClient inserts a new client row. Used by the operator CLI; the
// request pipeline itself never writes to this store.
func (s *PostgresStore) CreateClient(ctx context.Context, c *Client) error {
	query := `
		INSERT INTO clients (
			id, name, email, api_key, api_secret_hash, status, plan,
			scopes, allowed_ips,
			rate_limit_per_minute, rate_limit_per_hour, rate_limit_per_day
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.Name, c.Email, c.APIKey, c.APISecretHash, c.Status, c.Plan,
		pq.Array(fromScopes(c.Scopes)), pq.Array(c.AllowedIPs),
		c.Limits.PerMinute, c.Limits.PerHour, c.Limits.PerDay,
	)
	if err != nil {
		return fmt.Errorf("failed to insert client: %w", err)
	}
	return nil
}

func toScopes(in []string) []Scope {
	out := make([]Scope, 0, len(in))
	for _, s := range in {
		out = append(out, Scope(s))
	}
	return out
}

func fromScopes(in []Scope) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}
