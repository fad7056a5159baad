// Package pipeline chains authentication, authorization, rate limiting
// and auditing in front of protected handlers. The stages run in a
// fixed order and the first failing stage terminates the request;
// exactly one audit record is emitted per request regardless of which
// stage decided it.
package pipeline

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/lmnpay/gateway/pkg/audit"
	"github.com/lmnpay/gateway/pkg/auth"
	"github.com/lmnpay/gateway/pkg/authz"
	"github.com/lmnpay/gateway/pkg/clients"
	"github.com/lmnpay/gateway/pkg/contextkeys"
	"github.com/lmnpay/gateway/pkg/httputil"
	"github.com/lmnpay/gateway/pkg/observability"
	"github.com/lmnpay/gateway/pkg/ratelimit"
)

// Policy describes what a protected endpoint demands from a caller
type Policy struct {
	// Feature is matched against the client's plan tier. Empty means the
	// endpoint is available on every plan.
	Feature string

	// RequiredScope is the scope the endpoint demands. Empty means no
	// scope requirement.
	RequiredScope clients.Scope

	// ResourceOwner resolves the client ID that owns the targeted
	// resource, or returns empty when the resource is not client-owned.
	// It runs after authentication, so the request identity is already
	// in the context.
	ResourceOwner func(r *http.Request) string
}

// Pipeline wires the decision stages together. Construct with New and
// share one instance across all routes.
type Pipeline struct {
	chain     *auth.Chain
	evaluator *authz.Evaluator
	limiter   ratelimit.Limiter
	sink      audit.Sink
	metrics   *observability.Metrics
	logger    *observability.Logger
	trusted   httputil.TrustedProxies
}

// Option configures optional pipeline behavior
type Option func(*Pipeline)

// WithTrustedProxies sets the proxy addresses whose X-Forwarded-For
// headers are honored when resolving the request origin
func WithTrustedProxies(proxies httputil.TrustedProxies) Option {
	return func(p *Pipeline) { p.trusted = proxies }
}

// WithMetrics attaches Prometheus metrics to the pipeline stages
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// New creates a pipeline over the given stages
func New(chain *auth.Chain, evaluator *authz.Evaluator, limiter ratelimit.Limiter, sink audit.Sink, logger *observability.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		chain:     chain,
		evaluator: evaluator,
		limiter:   limiter,
		sink:      sink,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Guard wraps a handler with the full decision sequence for the given
// policy. Use as a per-route middleware:
//
//	router.Handle("/v1/payments", p.Guard(policy, handler)).Methods("POST")
func (p *Pipeline) Guard(policy Policy, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.serve(w, r, policy, next)
	})
}

// outcome is the terminal state of one request, gathered as the stages
// run and flushed to the audit sink exactly once
type outcome struct {
	requestID string
	start     time.Time
	originIP  string
	identity  *auth.Identity
	strategy  string
	result    audit.Outcome
	reason    string
	status    int
}

func (p *Pipeline) serve(w http.ResponseWriter, r *http.Request, policy Policy, next http.Handler) {
	o := &outcome{
		requestID: uuid.NewString(),
		start:     time.Now(),
		originIP:  httputil.ClientIP(r, p.trusted),
	}
	defer p.finish(r, o)

	ctx := contextkeys.WithRequestID(r.Context(), o.requestID)
	ctx = contextkeys.WithRequestStartTime(ctx, o.start)
	r = r.WithContext(ctx)
	w.Header().Set("X-Request-ID", o.requestID)

	req, err := auth.FromHTTP(r)
	if err != nil {
		o.result, o.reason, o.status = audit.OutcomeError, "body_read_failed", http.StatusBadRequest
		httputil.WriteBadRequest(w, "could not read request body")
		return
	}

	attempt, err := p.chain.Authenticate(ctx, req)
	o.strategy = attempt.Strategy
	if err != nil {
		p.logger.WithError(err).WithField("request_id", o.requestID).Error("credential store unavailable")
		p.countStoreError("credentials")
		o.result, o.reason, o.status = audit.OutcomeError, "credential_store_unavailable", http.StatusServiceUnavailable
		httputil.WriteServiceUnavailable(w, "service temporarily unavailable")
		return
	}
	if !attempt.OK() {
		p.countAuth(attempt.Strategy, "failure")
		o.result, o.reason, o.status = audit.OutcomeDenied, string(attempt.Reason), http.StatusUnauthorized
		httputil.WriteUnauthorized(w, string(attempt.Reason), authMessage(attempt.Reason))
		return
	}
	p.countAuth(attempt.Strategy, "success")
	o.identity = attempt.Identity

	ctx = contextkeys.WithIdentity(ctx, attempt.Identity)
	r = r.WithContext(ctx)

	info := &authz.RequestInfo{
		OriginIP:      o.originIP,
		Feature:       policy.Feature,
		RequiredScope: policy.RequiredScope,
	}
	if policy.ResourceOwner != nil {
		info.ResourceOwnerID = policy.ResourceOwner(r)
	}
	if decision := p.evaluator.Evaluate(attempt.Identity, info); !decision.Allowed {
		p.countAuthzDenial(decision)
		o.result, o.reason = audit.OutcomeDenied, string(decision.Reason)
		// A client that went inactive between credential match and
		// evaluation is an authentication problem, not a permissions one.
		if decision.Reason == authz.DenyInactiveClient {
			o.status = http.StatusUnauthorized
			httputil.WriteUnauthorized(w, string(decision.Reason), "authentication failed")
			return
		}
		o.status = http.StatusForbidden
		httputil.WriteForbidden(w, string(decision.Reason), "access denied")
		return
	}

	specs := ratelimit.WindowsFor(attempt.Identity.Client.Limits)
	decision, err := p.limiter.CheckAndConsume(ctx, attempt.Identity.ClientID(), specs)
	if err != nil {
		p.logger.WithError(err).WithField("request_id", o.requestID).Error("rate limit store unavailable")
		p.countStoreError("ratelimit")
		o.result, o.reason, o.status = audit.OutcomeError, "ratelimit_store_unavailable", http.StatusServiceUnavailable
		httputil.WriteServiceUnavailable(w, "service temporarily unavailable")
		return
	}
	if !decision.Allowed {
		p.countRateLimitDenial(decision.Window)
		o.result, o.reason, o.status = audit.OutcomeRateLimited, string(decision.Window), http.StatusTooManyRequests
		httputil.WriteTooManyRequests(w, decision.RetryAfter, "rate limit exceeded")
		return
	}

	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
	next.ServeHTTP(rec, r)
	o.result, o.status = audit.OutcomeAuthenticated, rec.status
}

// finish emits the single audit record for the request and records the
// terminal pipeline metrics
func (p *Pipeline) finish(r *http.Request, o *outcome) {
	latency := time.Since(o.start)
	record := audit.Record{
		RequestID: o.requestID,
		ClientID:  o.identity.ClientID(),
		Endpoint:  r.URL.Path,
		Method:    r.Method,
		IPAddress: o.originIP,
		Outcome:   o.result,
		Reason:    o.reason,
		Strategy:  o.strategy,
		Status:    o.status,
		Latency:   latency,
		Timestamp: o.start.UTC(),
	}
	p.sink.Append(r.Context(), &record)

	if p.metrics != nil {
		p.metrics.PipelineDecisions.WithLabelValues(string(o.result)).Inc()
		p.metrics.PipelineDuration.WithLabelValues(string(o.result)).Observe(latency.Seconds())
		p.metrics.AuditRecordsTotal.WithLabelValues(string(o.result)).Inc()
	}
}

func (p *Pipeline) countAuth(strategy, result string) {
	if p.metrics != nil {
		p.metrics.AuthAttemptsTotal.WithLabelValues(strategy, result).Inc()
	}
}

func (p *Pipeline) countAuthzDenial(d authz.Decision) {
	if p.metrics != nil {
		p.metrics.AuthzDenialsTotal.WithLabelValues(d.Check, string(d.Reason)).Inc()
	}
}

func (p *Pipeline) countRateLimitDenial(w ratelimit.Window) {
	if p.metrics != nil {
		p.metrics.RateLimitDenials.WithLabelValues(string(w)).Inc()
	}
}

func (p *Pipeline) countStoreError(store string) {
	if p.metrics != nil {
		p.metrics.StoreErrorsTotal.WithLabelValues(store).Inc()
	}
}

// authMessage maps a failure reason to the opaque message returned to
// the caller. Responses never reveal whether the key exists, only the
// broad category of failure.
func authMessage(reason auth.FailureReason) string {
	switch reason {
	case auth.ReasonNoCredentials:
		return "authentication required"
	case auth.ReasonStaleTimestamp:
		return "request timestamp outside the accepted window"
	default:
		return "authentication failed"
	}
}
