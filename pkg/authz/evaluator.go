package authz

import (
	"github.com/lmnpay/gateway/pkg/auth"
	"github.com/lmnpay/gateway/pkg/plans"
)

// Evaluator runs a fixed sequence of permission checks. Composition is
// logical AND; the first Deny terminates evaluation.
type Evaluator struct {
	checks []Permission
}

// NewEvaluator creates an evaluator over the given checks, run in order
func NewEvaluator(checks ...Permission) *Evaluator {
	return &Evaluator{checks: checks}
}

// DefaultEvaluator returns the standard check sequence: validity,
// ownership, IP restriction, plan restriction, scope.
func DefaultEvaluator(matrix plans.Matrix) *Evaluator {
	return NewEvaluator(
		Validity{},
		Ownership{},
		IPAllowed{},
		PlanAllows{Matrix: matrix},
		ScopeGranted{},
	)
}

// Append returns a new evaluator with an extra check at the end. New
// policies are added this way rather than by modifying existing checks.
func (e *Evaluator) Append(check Permission) *Evaluator {
	checks := make([]Permission, 0, len(e.checks)+1)
	checks = append(checks, e.checks...)
	checks = append(checks, check)
	return &Evaluator{checks: checks}
}

// Evaluate runs every check in order, returning the first denial or
// Allow when all pass
func (e *Evaluator) Evaluate(identity *auth.Identity, req *RequestInfo) Decision {
	for _, check := range e.checks {
		if decision := check.Evaluate(identity, req); !decision.Allowed {
			return decision
		}
	}
	return Allow()
}
