package auth

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// stubStrategy returns a canned attempt or error
type stubStrategy struct {
	name    string
	attempt Attempt
	err     error
	calls   int
}

func (s *stubStrategy) Name() string { return s.name }

func (s *stubStrategy) Attempt(ctx context.Context, req *Request) (Attempt, error) {
	s.calls++
	return s.attempt, s.err
}

func TestChain_FirstSuccessWins(t *testing.T) {
	first := &stubStrategy{name: "first", attempt: Attempt{
		Strategy: "first",
		Identity: &Identity{Strategy: "first"},
	}}
	second := &stubStrategy{name: "second"}
	chain := NewChain(first, second)

	attempt, err := chain.Authenticate(context.Background(), requestWithHeaders(nil))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !attempt.OK() || attempt.Strategy != "first" {
		t.Errorf("Attempt = %+v, want success from first", attempt)
	}
	if second.calls != 0 {
		t.Error("Later strategies should not run after a success")
	}
}

func TestChain_SkippedStrategiesIgnored(t *testing.T) {
	skipped := &stubStrategy{name: "skipped", attempt: Attempt{Strategy: "skipped", Skipped: true}}
	success := &stubStrategy{name: "success", attempt: Attempt{
		Strategy: "success",
		Identity: &Identity{Strategy: "success"},
	}}
	chain := NewChain(skipped, success)

	attempt, err := chain.Authenticate(context.Background(), requestWithHeaders(nil))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if !attempt.OK() || attempt.Strategy != "success" {
		t.Errorf("Attempt = %+v, want success", attempt)
	}
}

func TestChain_AggregatesMostSpecificFailure(t *testing.T) {
	tests := []struct {
		name       string
		a, b       Attempt
		wantReason FailureReason
	}{
		{
			name:       "resolved beats unresolved",
			a:          Attempt{Strategy: "a", Reason: ReasonInvalidSignature, Resolved: false},
			b:          Attempt{Strategy: "b", Reason: ReasonInvalidCredentials, Resolved: true},
			wantReason: ReasonInvalidCredentials,
		},
		{
			name:       "inactive client beats expired key",
			a:          Attempt{Strategy: "a", Reason: ReasonExpiredKey, Resolved: true},
			b:          Attempt{Strategy: "b", Reason: ReasonInactiveClient, Resolved: true},
			wantReason: ReasonInactiveClient,
		},
		{
			name:       "signature beats stale timestamp",
			a:          Attempt{Strategy: "a", Reason: ReasonStaleTimestamp},
			b:          Attempt{Strategy: "b", Reason: ReasonInvalidSignature},
			wantReason: ReasonInvalidSignature,
		},
		{
			name:       "order does not matter",
			a:          Attempt{Strategy: "a", Reason: ReasonInactiveClient, Resolved: true},
			b:          Attempt{Strategy: "b", Reason: ReasonInvalidCredentials},
			wantReason: ReasonInactiveClient,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chain := NewChain(
				&stubStrategy{name: "a", attempt: tt.a},
				&stubStrategy{name: "b", attempt: tt.b},
			)
			attempt, err := chain.Authenticate(context.Background(), requestWithHeaders(nil))
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if attempt.OK() {
				t.Fatal("Attempt should fail")
			}
			if attempt.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", attempt.Reason, tt.wantReason)
			}
		})
	}
}

func TestChain_AllSkipped(t *testing.T) {
	chain := NewChain(
		&stubStrategy{name: "a", attempt: Attempt{Strategy: "a", Skipped: true}},
		&stubStrategy{name: "b", attempt: Attempt{Strategy: "b", Skipped: true}},
	)

	attempt, err := chain.Authenticate(context.Background(), requestWithHeaders(nil))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if attempt.OK() {
		t.Fatal("Attempt should fail")
	}
	if attempt.Reason != ReasonNoCredentials {
		t.Errorf("Reason = %q, want no_credentials_provided", attempt.Reason)
	}
}

func TestChain_NoCredentials_StoreNotTouched(t *testing.T) {
	// A request with no credential shape must not cost a store lookup
	store := &failingStore{}
	chain := NewChain(
		NewKeySecretStrategy(store),
		NewSignatureStrategy(store, time.Minute),
	)

	attempt, err := chain.Authenticate(context.Background(), requestWithHeaders(nil))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if attempt.Reason != ReasonNoCredentials {
		t.Errorf("Reason = %q, want no_credentials_provided", attempt.Reason)
	}
	if got := store.lookups.Load(); got != 0 {
		t.Errorf("Store lookups = %d, want 0", got)
	}
}

func TestChain_WrongSecret_SingleLookup(t *testing.T) {
	// A known key with the wrong secret resolves in one store round trip;
	// the signature strategy must not re-query for the same key
	store := &countingCredStore{inner: newTestStore()}
	chain := NewChain(
		NewKeySecretStrategy(store),
		NewSignatureStrategy(store, time.Minute),
	)

	attempt, err := chain.Authenticate(context.Background(), requestWithHeaders(map[string]string{
		HeaderAPIKey:    testKey,
		HeaderAPISecret: "lmn_wrong_secret",
	}))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if attempt.OK() {
		t.Fatal("Attempt should fail")
	}
	if attempt.Reason != ReasonInvalidCredentials {
		t.Errorf("Reason = %q, want invalid_credentials", attempt.Reason)
	}
	if got := store.lookups.Load(); got != 1 {
		t.Errorf("Store lookups = %d, want exactly 1", got)
	}
}

func TestChain_InfrastructureErrorPropagates(t *testing.T) {
	chain := NewChain(
		&stubStrategy{name: "broken", err: fmt.Errorf("connection refused")},
		&stubStrategy{name: "after", attempt: Attempt{
			Strategy: "after",
			Identity: &Identity{Strategy: "after"},
		}},
	)

	_, err := chain.Authenticate(context.Background(), requestWithHeaders(nil))
	if err == nil {
		t.Fatal("Infrastructure error should propagate instead of trying later strategies")
	}
}

func TestChain_Empty(t *testing.T) {
	chain := NewChain()
	attempt, err := chain.Authenticate(context.Background(), requestWithHeaders(nil))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if attempt.OK() || attempt.Reason != ReasonNoCredentials {
		t.Errorf("Attempt = %+v, want no_credentials_provided failure", attempt)
	}
}

func TestIdentity_ClientID_Anonymous(t *testing.T) {
	var id *Identity
	if got := id.ClientID(); got != "anonymous" {
		t.Errorf("nil Identity ClientID() = %q, want anonymous", got)
	}
	if id.HasScope("payments:read") {
		t.Error("nil Identity should grant no scopes")
	}
}
