// Package authz composes independent authorization checks against an
// authenticated client. The evaluator is an ordered AND reduction: the
// first Deny terminates evaluation, and new policies are added by
// appending a check, never by modifying existing ones.
package authz

import (
	"github.com/lmnpay/gateway/pkg/auth"
	"github.com/lmnpay/gateway/pkg/clients"
)

// DenyReason identifies why an authorization check denied a request
type DenyReason string

const (
	DenyInactiveClient    DenyReason = "inactive_client"
	DenyForbidden         DenyReason = "forbidden"
	DenyIPNotAllowed      DenyReason = "ip_not_allowed"
	DenyPlanRestricted    DenyReason = "plan_restricted"
	DenyInsufficientScope DenyReason = "insufficient_scope"
)

// Decision is the outcome of one permission check or of the whole
// evaluation
type Decision struct {
	Allowed bool
	Reason  DenyReason // set when denied
	Check   string     // name of the check that denied
}

// Allow is the affirmative decision
func Allow() Decision {
	return Decision{Allowed: true}
}

// Deny builds a denial carrying the reason and the originating check
func Deny(check string, reason DenyReason) Decision {
	return Decision{Check: check, Reason: reason}
}

// RequestInfo carries the request attributes the checks inspect
type RequestInfo struct {
	// OriginIP is the resolved origin address, already corrected for the
	// trusted proxy chain (see httputil.ClientIP)
	OriginIP string

	// ResourceOwnerID is the client that owns the targeted resource, or
	// empty when the resource is not client-owned
	ResourceOwnerID string

	// Feature is the capability the endpoint exercises, matched against
	// the client's plan tier
	Feature string

	// RequiredScope is the scope the endpoint demands; empty means no
	// scope requirement
	RequiredScope clients.Scope
}

// Permission is one independently testable authorization check
type Permission interface {
	Name() string
	Evaluate(identity *auth.Identity, req *RequestInfo) Decision
}
