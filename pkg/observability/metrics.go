package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the gateway
type Metrics struct {
	// Pipeline metrics
	AuthAttemptsTotal    *prometheus.CounterVec // strategy, result
	AuthzDenialsTotal    *prometheus.CounterVec // check, reason
	RateLimitDenials     *prometheus.CounterVec // window
	PipelineDecisions    *prometheus.CounterVec // outcome
	PipelineDuration     *prometheus.HistogramVec

	// Credential cache metrics
	CredentialCacheHits   prometheus.Counter
	CredentialCacheMisses prometheus.Counter

	// Audit metrics
	AuditRecordsTotal   *prometheus.CounterVec // outcome
	AuditRecordsDropped prometheus.Counter

	// Store metrics
	StoreErrorsTotal *prometheus.CounterVec // store
}

// NewMetrics creates and registers all gateway metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		AuthAttemptsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_auth_attempts_total",
				Help: "Authentication attempts by strategy and result",
			},
			[]string{"strategy", "result"},
		),
		AuthzDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_authz_denials_total",
				Help: "Authorization denials by check and reason",
			},
			[]string{"check", "reason"},
		),
		RateLimitDenials: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_ratelimit_denials_total",
				Help: "Rate limit denials by violated window",
			},
			[]string{"window"},
		),
		PipelineDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_pipeline_decisions_total",
				Help: "Terminal pipeline decisions by outcome",
			},
			[]string{"outcome"},
		),
		PipelineDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_pipeline_duration_seconds",
				Help:    "End-to-end request duration through the pipeline",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		CredentialCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_credential_cache_hits_total",
				Help: "Credential cache hits",
			},
		),
		CredentialCacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_credential_cache_misses_total",
				Help: "Credential cache misses",
			},
		),
		AuditRecordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_audit_records_total",
				Help: "Audit records emitted by outcome",
			},
			[]string{"outcome"},
		),
		AuditRecordsDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "gateway_audit_records_dropped_total",
				Help: "Audit records dropped due to a full async buffer",
			},
		),
		StoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_store_errors_total",
				Help: "Infrastructure errors by backing store",
			},
			[]string{"store"},
		),
	}

	registry.MustRegister(
		m.AuthAttemptsTotal,
		m.AuthzDenialsTotal,
		m.RateLimitDenials,
		m.PipelineDecisions,
		m.PipelineDuration,
		m.CredentialCacheHits,
		m.CredentialCacheMisses,
		m.AuditRecordsTotal,
		m.AuditRecordsDropped,
		m.StoreErrorsTotal,
	)
	return m
}

// Handler returns the Prometheus scrape handler for the given registry
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
