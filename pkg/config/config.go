// Package config loads gateway configuration from environment
// variables. Every variable carries the LMN_ prefix and has a working
// default, so a bare `gateway` starts with in-memory stores.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/lmnpay/gateway/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Storage       StorageConfig
	Auth          AuthConfig
	RateLimit     RateLimitConfig
	Audit         AuditConfig
	Plans         PlansConfig
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// TrustedProxies lists proxy addresses whose X-Forwarded-For headers
	// are honored when resolving the request origin (comma separated)
	TrustedProxies []string
}

// StorageConfig holds the credential and counter store configuration
type StorageConfig struct {
	// Type selects the credential store: "memory" or "postgres"
	Type string

	PostgresURL      string
	PostgresMaxConns int

	RedisURL      string
	RedisPassword string
	RedisDB       int
	RedisPoolSize int

	// Credential cache in front of Postgres
	CacheEnabled bool
	CacheSize    int
	CacheTTL     time.Duration
}

// AuthConfig holds authentication settings
type AuthConfig struct {
	// SignatureFreshness bounds how far a signed request's timestamp may
	// deviate from server time in either direction
	SignatureFreshness time.Duration
}

// RateLimitConfig holds rate limiter settings
type RateLimitConfig struct {
	// Backend selects the counter store: "memory" or "redis"
	Backend string

	// KeyPrefix namespaces the Redis counter keys
	KeyPrefix string

	// FailOpen admits requests when the counter store is unreachable.
	// The default denies them.
	FailOpen bool
}

// AuditConfig holds audit trail settings
type AuditConfig struct {
	// Backend selects the sink: "log", "postgres" or "both"
	Backend string

	// BufferSize bounds the async writer queue
	BufferSize int

	// Retention is how long records are kept before the pruning job
	// deletes them; zero disables pruning
	Retention time.Duration

	// PruneSchedule is the cron expression for the retention job
	PruneSchedule string
}

// PlansConfig holds the plan matrix source
type PlansConfig struct {
	// File optionally replaces the built-in plan matrix with a YAML file
	File string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel observability.LogLevel

	MetricsEnabled bool

	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Storage:       loadStorageConfig(),
		Auth:          loadAuthConfig(),
		RateLimit:     loadRateLimitConfig(),
		Audit:         loadAuditConfig(),
		Plans:         PlansConfig{File: getEnv("LMN_PLANS_FILE", "")},
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func loadServerConfig() ServerConfig {
	cfg := ServerConfig{
		Host:            getEnv("LMN_HOST", "0.0.0.0"),
		Port:            getEnv("LMN_PORT", "8080"),
		ReadTimeout:     getEnvDuration("LMN_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("LMN_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("LMN_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("LMN_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("LMN_HEALTH_PORT", "9090"),
	}
	if proxies := getEnv("LMN_TRUSTED_PROXIES", ""); proxies != "" {
		for _, p := range strings.Split(proxies, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.TrustedProxies = append(cfg.TrustedProxies, p)
			}
		}
	}
	return cfg
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Type:             getEnv("LMN_STORAGE_TYPE", "memory"),
		PostgresURL:      getEnv("LMN_POSTGRES_URL", ""),
		PostgresMaxConns: getEnvInt("LMN_POSTGRES_MAX_CONNS", 20),
		RedisURL:         getEnv("LMN_REDIS_URL", ""),
		RedisPassword:    getEnv("LMN_REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("LMN_REDIS_DB", 0),
		RedisPoolSize:    getEnvInt("LMN_REDIS_POOL_SIZE", 10),
		CacheEnabled:     getEnvBool("LMN_CREDENTIAL_CACHE_ENABLED", true),
		CacheSize:        getEnvInt("LMN_CREDENTIAL_CACHE_SIZE", 4096),
		CacheTTL:         getEnvDuration("LMN_CREDENTIAL_CACHE_TTL", 5*time.Minute),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		SignatureFreshness: getEnvDuration("LMN_SIGNATURE_FRESHNESS", 5*time.Minute),
	}
}

func loadRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Backend:   getEnv("LMN_RATELIMIT_BACKEND", "memory"),
		KeyPrefix: getEnv("LMN_RATELIMIT_KEY_PREFIX", "ratelimit"),
		FailOpen:  getEnvBool("LMN_RATELIMIT_FAIL_OPEN", false),
	}
}

func loadAuditConfig() AuditConfig {
	return AuditConfig{
		Backend:       getEnv("LMN_AUDIT_BACKEND", "log"),
		BufferSize:    getEnvInt("LMN_AUDIT_BUFFER_SIZE", 1024),
		Retention:     getEnvDuration("LMN_AUDIT_RETENTION", 90*24*time.Hour),
		PruneSchedule: getEnv("LMN_AUDIT_PRUNE_SCHEDULE", "0 3 * * *"),
	}
}

func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           parseLogLevel(getEnv("LMN_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("LMN_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("LMN_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("LMN_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("LMN_OTEL_SERVICE_NAME", "lmn-gateway"),
		OTelServiceVersion: getEnv("LMN_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("LMN_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	switch c.Storage.Type {
	case "memory":
	case "postgres":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be memory or postgres)", c.Storage.Type)
	}

	switch c.RateLimit.Backend {
	case "memory":
	case "redis":
		if c.Storage.RedisURL == "" {
			return fmt.Errorf("redis URL is required for the redis rate limit backend")
		}
	default:
		return fmt.Errorf("invalid rate limit backend: %s (must be memory or redis)", c.RateLimit.Backend)
	}

	switch c.Audit.Backend {
	case "log":
	case "postgres", "both":
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for the %s audit backend", c.Audit.Backend)
		}
	default:
		return fmt.Errorf("invalid audit backend: %s (must be log, postgres, or both)", c.Audit.Backend)
	}

	if c.Auth.SignatureFreshness <= 0 {
		return fmt.Errorf("signature freshness window must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
