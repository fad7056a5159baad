package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/lmnpay/gateway/pkg/clients"
)

const (
	// HeaderSignature carries the hex-encoded HMAC-SHA256 of the request
	HeaderSignature = "X-Signature"
	// HeaderTimestamp carries integer seconds since epoch
	HeaderTimestamp = "X-Timestamp"

	// DefaultFreshnessWindow is the allowed clock skew for signed
	// requests, symmetric around the gateway's current time
	DefaultFreshnessWindow = 5 * time.Minute
)

// SignatureStrategy authenticates requests carrying an HMAC-SHA256
// signature over METHOD + PATH + TIMESTAMP + BODY (no separators). The
// signing key is the stored secret digest, which both sides derive as
// SHA-256(api_secret) — the gateway never holds the plaintext secret.
//
// A valid signature remains replayable until its timestamp leaves the
// freshness window; single-use semantics would require a nonce cache,
// which this strategy deliberately does not implement.
type SignatureStrategy struct {
	store  clients.CredentialStore
	window time.Duration
	now    func() time.Time
}

// NewSignatureStrategy creates a signature strategy with the given
// freshness window. A non-positive window selects the default.
func NewSignatureStrategy(store clients.CredentialStore, window time.Duration) *SignatureStrategy {
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	return &SignatureStrategy{store: store, window: window, now: time.Now}
}

// Name implements Strategy
func (s *SignatureStrategy) Name() string { return "signature" }

// Attempt implements Strategy
func (s *SignatureStrategy) Attempt(ctx context.Context, req *Request) (Attempt, error) {
	apiKey := req.Header.Get(HeaderAPIKey)
	signature := req.Header.Get(HeaderSignature)
	timestamp := req.Header.Get(HeaderTimestamp)
	if apiKey == "" || signature == "" || timestamp == "" {
		return Attempt{Strategy: s.Name(), Skipped: true}, nil
	}

	// Freshness is checked before any store access or signature math so
	// replayed requests are rejected as cheaply as possible. The window
	// is symmetric: future skew beyond the bound is rejected too.
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return s.fail(ReasonStaleTimestamp, false), nil
	}
	skew := s.now().Sub(time.Unix(ts, 0))
	if skew > s.window || -skew > s.window {
		return s.fail(ReasonStaleTimestamp, false), nil
	}

	cred, err := s.store.FindByKey(ctx, apiKey)
	if clients.IsNotFound(err) {
		return s.fail(ReasonInvalidCredentials, false), nil
	}
	if err != nil {
		return Attempt{Strategy: s.Name()}, err
	}

	if !s.verify(cred.SecretHash(), req, timestamp, signature) {
		return s.fail(ReasonInvalidSignature, true), nil
	}

	if cred.Key != nil && !cred.Key.Usable(s.now()) {
		return s.fail(ReasonExpiredKey, true), nil
	}
	if !cred.Client.IsActive() {
		return s.fail(ReasonInactiveClient, true), nil
	}

	return Attempt{
		Strategy: s.Name(),
		Resolved: true,
		Identity: &Identity{
			Client:   cred.Client,
			Key:      cred.Key,
			Scopes:   cred.Scopes(),
			Strategy: s.Name(),
		},
	}, nil
}

func (s *SignatureStrategy) fail(reason FailureReason, resolved bool) Attempt {
	return Attempt{Strategy: s.Name(), Reason: reason, Resolved: resolved}
}

// verify recomputes the request signature and compares it to the
// supplied one in constant time
func (s *SignatureStrategy) verify(signingKey string, req *Request, timestamp, provided string) bool {
	expected := ComputeSignature(signingKey, req.Method, req.Path, timestamp, req.Body)
	providedRaw, err := hex.DecodeString(provided)
	if err != nil {
		return false
	}
	expectedRaw, _ := hex.DecodeString(expected)
	return hmac.Equal(providedRaw, expectedRaw)
}

// ComputeSignature returns the hex HMAC-SHA256 over the canonical string
// METHOD + PATH + TIMESTAMP + BODY, in that fixed order with no
// separators. Exported so clients and tests can produce signatures.
func ComputeSignature(signingKey, method, path, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(signingKey))
	mac.Write([]byte(method))
	mac.Write([]byte(path))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
