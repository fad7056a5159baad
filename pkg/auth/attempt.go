// Package auth implements credential verification for inbound gateway
// requests. Two strategies are provided — API key + secret, and HMAC
// request signatures — composed by a Chain that stops at the first
// success. Strategies are side-effect-free: they only read the request
// and the credential store.
package auth

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/lmnpay/gateway/pkg/clients"
)

// FailureReason identifies why an authentication attempt failed
type FailureReason string

const (
	ReasonNoCredentials      FailureReason = "no_credentials_provided"
	ReasonInvalidCredentials FailureReason = "invalid_credentials"
	ReasonInvalidSignature   FailureReason = "invalid_signature"
	ReasonStaleTimestamp     FailureReason = "stale_timestamp"
	ReasonInactiveClient     FailureReason = "inactive_client"
	ReasonExpiredKey         FailureReason = "expired_key"
)

// specificity orders failure reasons for chain aggregation. Higher wins.
// Reasons only reachable after identity resolution outrank the generic
// credential mismatch.
func (r FailureReason) specificity() int {
	switch r {
	case ReasonNoCredentials:
		return 0
	case ReasonInvalidCredentials:
		return 1
	case ReasonStaleTimestamp:
		return 2
	case ReasonInvalidSignature:
		return 3
	case ReasonExpiredKey:
		return 4
	case ReasonInactiveClient:
		return 5
	default:
		return 0
	}
}

// Identity is the authenticated principal threaded through the pipeline.
// It is always passed explicitly, never stored in package globals.
type Identity struct {
	Client   *clients.Client
	Key      *clients.APIKeyRecord // non-nil when a secondary key matched
	Scopes   []clients.Scope       // grants of the matched credential
	Strategy string                // name of the strategy that succeeded
}

// ClientID returns the authenticated client's ID, or "anonymous" for a
// nil identity
func (id *Identity) ClientID() string {
	if id == nil || id.Client == nil {
		return "anonymous"
	}
	return id.Client.ID
}

// HasScope reports whether the identity's grants include scope
func (id *Identity) HasScope(scope clients.Scope) bool {
	if id == nil {
		return false
	}
	for _, s := range id.Scopes {
		if s == clients.ScopeAll || s == scope {
			return true
		}
	}
	return false
}

// Attempt is the result of one authentication try. It lives only for the
// duration of a single request.
type Attempt struct {
	Strategy string
	Identity *Identity     // nil unless the attempt succeeded
	Reason   FailureReason // set on failure
	Resolved bool          // a credential record was matched before failing
	Skipped  bool          // the request carries no credentials of this shape
}

// OK reports whether the attempt authenticated a client
func (a Attempt) OK() bool {
	return a.Identity != nil
}

// Request is the subset of an HTTP request the strategies consume. The
// body is pre-buffered so the signature strategy can hash it without
// draining the stream for downstream handlers.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// FromHTTP buffers the request body and returns an auth.Request. The
// original request's body is replaced so it remains readable downstream.
func FromHTTP(r *http.Request) (*Request, error) {
	var body []byte
	if r.Body != nil && r.Body != http.NoBody {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
		r.Body.Close()
		body = b
		r.Body = io.NopCloser(bytes.NewReader(body))
	}
	return &Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header,
		Body:   body,
	}, nil
}

// Strategy is one independent credential verifier
type Strategy interface {
	// Name identifies the strategy in attempts and audit records
	Name() string

	// Attempt verifies the request's credentials against the store.
	// A Skipped attempt means the request carries no credentials of this
	// strategy's shape; a non-nil error is an infrastructure failure
	// (store unreachable) and callers fail closed.
	Attempt(ctx context.Context, req *Request) (Attempt, error)
}
