// Package audit records the outcome of every gateway request. Records
// are write-once and append-only; the pipeline emits exactly one per
// request, whatever stage terminated it.
package audit

import (
	"encoding/json"
	"time"
)

// Outcome classifies how a request concluded
type Outcome string

const (
	OutcomeAuthenticated Outcome = "authenticated"
	OutcomeDenied        Outcome = "denied"
	OutcomeRateLimited   Outcome = "rate_limited"
	OutcomeError         Outcome = "error" // infrastructure failure, failed closed
)

// AnonymousClient is recorded when authentication never resolved an
// identity
const AnonymousClient = "anonymous"

// Record is one audit entry. Never mutated after creation.
type Record struct {
	RequestID string        `json:"request_id"`
	ClientID  string        `json:"client_id"` // AnonymousClient when unresolved
	Endpoint  string        `json:"endpoint"`
	Method    string        `json:"method"`
	IPAddress string        `json:"ip_address,omitempty"`
	Outcome   Outcome       `json:"outcome"`
	Reason    string        `json:"reason,omitempty"` // internal detail; may be more specific than the response body
	Strategy  string        `json:"strategy,omitempty"`
	Status    int           `json:"status_code"`
	Latency   time.Duration `json:"latency_ns"`
	Timestamp time.Time     `json:"timestamp"`
}

// ToJSON serializes the record
func (r *Record) ToJSON() ([]byte, error) {
	return json.Marshal(r)
}
