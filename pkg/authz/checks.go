package authz

import (
	"github.com/lmnpay/gateway/pkg/auth"
	"github.com/lmnpay/gateway/pkg/plans"
)

// Validity denies clients whose account status is not active. The
// authentication strategies reject inactive clients too; this check is
// the authorization-stage backstop so a strategy bug can never let a
// suspended client through.
type Validity struct{}

// Name implements Permission
func (Validity) Name() string { return "validity" }

// Evaluate implements Permission
func (Validity) Evaluate(identity *auth.Identity, req *RequestInfo) Decision {
	if identity == nil || identity.Client == nil || !identity.Client.IsActive() {
		return Deny("validity", DenyInactiveClient)
	}
	return Allow()
}

// Ownership denies requests targeting a resource owned by a different
// client. Resources without an owner pass.
type Ownership struct{}

// Name implements Permission
func (Ownership) Name() string { return "ownership" }

// Evaluate implements Permission
func (Ownership) Evaluate(identity *auth.Identity, req *RequestInfo) Decision {
	if req.ResourceOwnerID == "" {
		return Allow()
	}
	if identity.Client.ID != req.ResourceOwnerID {
		return Deny("ownership", DenyForbidden)
	}
	return Allow()
}

// IPAllowed denies requests whose resolved origin address is outside the
// client's allow-list. An empty allow-list is unrestricted. The origin
// must already be resolved through the trusted proxy chain so an
// untrusted hop cannot spoof its way in.
type IPAllowed struct{}

// Name implements Permission
func (IPAllowed) Name() string { return "ip_allowed" }

// Evaluate implements Permission
func (IPAllowed) Evaluate(identity *auth.Identity, req *RequestInfo) Decision {
	if !identity.Client.IPAllowed(req.OriginIP) {
		return Deny("ip_allowed", DenyIPNotAllowed)
	}
	return Allow()
}

// PlanAllows denies requests for capabilities outside the client's plan
// tier
type PlanAllows struct {
	Matrix plans.Matrix
}

// Name implements Permission
func (p PlanAllows) Name() string { return "plan" }

// Evaluate implements Permission
func (p PlanAllows) Evaluate(identity *auth.Identity, req *RequestInfo) Decision {
	if !p.Matrix.Allows(identity.Client.Plan, req.Feature) {
		return Deny("plan", DenyPlanRestricted)
	}
	return Allow()
}

// ScopeGranted denies requests whose endpoint requires a scope the
// matched credential was not granted
type ScopeGranted struct{}

// Name implements Permission
func (ScopeGranted) Name() string { return "scope" }

// Evaluate implements Permission
func (ScopeGranted) Evaluate(identity *auth.Identity, req *RequestInfo) Decision {
	if req.RequiredScope == "" {
		return Allow()
	}
	if !identity.HasScope(req.RequiredScope) {
		return Deny("scope", DenyInsufficientScope)
	}
	return Allow()
}
