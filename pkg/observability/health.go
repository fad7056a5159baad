package observability

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthChecker probes the gateway's backing stores: Postgres for
// credentials and audit history, Redis for rate-limit counters. Either
// may be nil when that store is not configured.
type HealthChecker struct {
	db    *sql.DB
	redis *redis.Client
}

// NewHealthChecker creates a health checker over the given stores
func NewHealthChecker(db *sql.DB, redisClient *redis.Client) *HealthChecker {
	return &HealthChecker{db: db, redis: redisClient}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the health of a single dependency
type DependencyStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// Liveness always reports healthy while the process is serving
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now().UTC(),
	})
}

// Readiness probes every configured dependency. Any unhealthy
// dependency yields 503 — the gateway fails closed without its stores,
// so it should stop receiving traffic when they are down.
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now().UTC(),
		Dependencies: make(map[string]DependencyStatus),
	}

	if h.db != nil {
		status.Dependencies["postgres"] = h.checkPostgres(ctx)
	}
	if h.redis != nil {
		status.Dependencies["redis"] = h.checkRedis(ctx)
	}
	for _, dep := range status.Dependencies {
		if dep.Status != StatusHealthy {
			status.Status = StatusUnhealthy
			break
		}
	}

	code := http.StatusOK
	if status.Status != StatusHealthy {
		code = http.StatusServiceUnavailable
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(status)
}

func (h *HealthChecker) checkPostgres(ctx context.Context) DependencyStatus {
	start := time.Now()
	if err := h.db.PingContext(ctx); err != nil {
		return DependencyStatus{
			Status:    StatusUnhealthy,
			Message:   err.Error(),
			LatencyMS: time.Since(start).Milliseconds(),
		}
	}
	return DependencyStatus{Status: StatusHealthy, LatencyMS: time.Since(start).Milliseconds()}
}

func (h *HealthChecker) checkRedis(ctx context.Context) DependencyStatus {
	start := time.Now()
	if err := h.redis.Ping(ctx).Err(); err != nil {
		return DependencyStatus{
			Status:    StatusUnhealthy,
			Message:   err.Error(),
			LatencyMS: time.Since(start).Milliseconds(),
		}
	}
	return DependencyStatus{Status: StatusHealthy, LatencyMS: time.Since(start).Milliseconds()}
}
