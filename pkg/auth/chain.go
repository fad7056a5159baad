package auth

import (
	"context"
)

// Chain tries strategies in priority order and returns the first
// successful attempt. The default order puts the cheap key+secret check
// before the signature check.
type Chain struct {
	strategies []Strategy
}

// NewChain creates an authentication chain. With no strategies given the
// chain rejects everything with ReasonNoCredentials.
func NewChain(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// Authenticate runs the chain against the request.
//
// The first successful attempt wins and later strategies are not
// consulted. If every applicable strategy fails, the aggregated failure
// carries the most specific reason observed — a strategy that resolved
// an identity (e.g. ReasonInactiveClient) outranks a generic credential
// mismatch. If no strategy recognized any credential shape, the result
// is ReasonNoCredentials and the credential store is never touched.
//
// A non-nil error is an infrastructure failure; callers fail closed.
func (c *Chain) Authenticate(ctx context.Context, req *Request) (Attempt, error) {
	best := Attempt{Strategy: "none", Reason: ReasonNoCredentials, Skipped: true}

	for _, strategy := range c.strategies {
		attempt, err := strategy.Attempt(ctx, req)
		if err != nil {
			return Attempt{Strategy: strategy.Name()}, err
		}
		if attempt.OK() {
			return attempt, nil
		}
		if attempt.Skipped {
			continue
		}
		if moreSpecific(attempt, best) {
			best = attempt
		}
	}

	if best.Skipped {
		// No recognized credential shape at all.
		return Attempt{Strategy: "none", Reason: ReasonNoCredentials}, nil
	}
	return best, nil
}

// moreSpecific reports whether a should replace b as the aggregated
// failure. Resolved attempts beat unresolved ones; ties fall back to the
// reason's specificity rank.
func moreSpecific(a, b Attempt) bool {
	if b.Skipped {
		return true
	}
	if a.Resolved != b.Resolved {
		return a.Resolved
	}
	return a.Reason.specificity() > b.Reason.specificity()
}
