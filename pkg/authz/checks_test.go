package authz

import (
	"testing"

	"github.com/lmnpay/gateway/pkg/auth"
	"github.com/lmnpay/gateway/pkg/clients"
	"github.com/lmnpay/gateway/pkg/plans"
)

func activeIdentity() *auth.Identity {
	return &auth.Identity{
		Client: &clients.Client{
			ID:         "client-1",
			Status:     clients.StatusActive,
			Plan:       clients.PlanPremium,
			Scopes:     []clients.Scope{clients.ScopePaymentsInitiate, clients.ScopePaymentsRead},
			AllowedIPs: nil,
		},
		Scopes:   []clients.Scope{clients.ScopePaymentsInitiate, clients.ScopePaymentsRead},
		Strategy: "key_secret",
	}
}

func TestValidity(t *testing.T) {
	if d := (Validity{}).Evaluate(activeIdentity(), &RequestInfo{}); !d.Allowed {
		t.Errorf("Active client should pass, got %+v", d)
	}

	suspended := activeIdentity()
	suspended.Client.Status = clients.StatusSuspended
	d := (Validity{}).Evaluate(suspended, &RequestInfo{})
	if d.Allowed || d.Reason != DenyInactiveClient {
		t.Errorf("Suspended client should be denied with inactive_client, got %+v", d)
	}

	if d := (Validity{}).Evaluate(nil, &RequestInfo{}); d.Allowed {
		t.Error("Nil identity should be denied")
	}
}

func TestOwnership(t *testing.T) {
	id := activeIdentity()

	if d := (Ownership{}).Evaluate(id, &RequestInfo{}); !d.Allowed {
		t.Errorf("Unowned resource should pass, got %+v", d)
	}
	if d := (Ownership{}).Evaluate(id, &RequestInfo{ResourceOwnerID: "client-1"}); !d.Allowed {
		t.Errorf("Own resource should pass, got %+v", d)
	}

	d := (Ownership{}).Evaluate(id, &RequestInfo{ResourceOwnerID: "client-2"})
	if d.Allowed || d.Reason != DenyForbidden {
		t.Errorf("Foreign resource should be denied with forbidden, got %+v", d)
	}
	if d.Check != "ownership" {
		t.Errorf("Check = %q, want ownership", d.Check)
	}
}

func TestIPAllowed(t *testing.T) {
	unrestricted := activeIdentity()
	if d := (IPAllowed{}).Evaluate(unrestricted, &RequestInfo{OriginIP: "203.0.113.10"}); !d.Allowed {
		t.Errorf("Empty allow-list should pass, got %+v", d)
	}

	restricted := activeIdentity()
	restricted.Client.AllowedIPs = []string{"198.51.100.1"}

	if d := (IPAllowed{}).Evaluate(restricted, &RequestInfo{OriginIP: "198.51.100.1"}); !d.Allowed {
		t.Errorf("Listed IP should pass, got %+v", d)
	}
	d := (IPAllowed{}).Evaluate(restricted, &RequestInfo{OriginIP: "203.0.113.10"})
	if d.Allowed || d.Reason != DenyIPNotAllowed {
		t.Errorf("Unlisted IP should be denied with ip_not_allowed, got %+v", d)
	}
}

func TestPlanAllows(t *testing.T) {
	matrix := plans.Default()
	check := PlanAllows{Matrix: matrix}

	premium := activeIdentity() // premium plan
	if d := check.Evaluate(premium, &RequestInfo{Feature: plans.FeatureRefunds}); !d.Allowed {
		t.Errorf("Premium plan should allow refunds, got %+v", d)
	}
	if d := check.Evaluate(premium, &RequestInfo{Feature: ""}); !d.Allowed {
		t.Errorf("Empty feature should never be restricted, got %+v", d)
	}

	d := check.Evaluate(premium, &RequestInfo{Feature: plans.FeatureBulkPayments})
	if d.Allowed || d.Reason != DenyPlanRestricted {
		t.Errorf("Premium plan should not allow bulk payments, got %+v", d)
	}

	free := activeIdentity()
	free.Client.Plan = clients.PlanFree
	if d := check.Evaluate(free, &RequestInfo{Feature: plans.FeaturePayments}); d.Allowed {
		t.Error("Free plan should not allow live payments")
	}

	unknown := activeIdentity()
	unknown.Client.Plan = clients.PlanTier("mystery")
	if d := check.Evaluate(unknown, &RequestInfo{Feature: plans.FeaturePayments}); d.Allowed {
		t.Error("Unknown tier should enable nothing")
	}
}

func TestScopeGranted(t *testing.T) {
	id := activeIdentity()

	if d := (ScopeGranted{}).Evaluate(id, &RequestInfo{}); !d.Allowed {
		t.Errorf("No required scope should pass, got %+v", d)
	}
	if d := (ScopeGranted{}).Evaluate(id, &RequestInfo{RequiredScope: clients.ScopePaymentsRead}); !d.Allowed {
		t.Errorf("Granted scope should pass, got %+v", d)
	}

	d := (ScopeGranted{}).Evaluate(id, &RequestInfo{RequiredScope: clients.ScopeWebhooksManage})
	if d.Allowed || d.Reason != DenyInsufficientScope {
		t.Errorf("Ungranted scope should be denied with insufficient_scope, got %+v", d)
	}

	wildcard := activeIdentity()
	wildcard.Scopes = []clients.Scope{clients.ScopeAll}
	if d := (ScopeGranted{}).Evaluate(wildcard, &RequestInfo{RequiredScope: clients.ScopeWebhooksManage}); !d.Allowed {
		t.Errorf("Wildcard scope should pass everything, got %+v", d)
	}
}
