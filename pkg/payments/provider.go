// Package payments exposes the protected payment endpoints that sit
// behind the gateway pipeline. The actual money movement is delegated
// to a Provider; the gateway only decides who may call what.
package payments

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrChargeNotFound is returned when a charge ID does not exist
var ErrChargeNotFound = errors.New("payments: charge not found")

// ChargeStatus tracks the lifecycle of a charge
type ChargeStatus string

const (
	ChargePending   ChargeStatus = "pending"
	ChargeSucceeded ChargeStatus = "succeeded"
	ChargeRefunded  ChargeStatus = "refunded"
)

// Charge is one payment owned by the client that initiated it
type Charge struct {
	ID        string       `json:"id"`
	OwnerID   string       `json:"-"`
	Amount    int64        `json:"amount"` // minor units
	Currency  string       `json:"currency"`
	Reference string       `json:"reference,omitempty"`
	Status    ChargeStatus `json:"status"`
	CreatedAt time.Time    `json:"created_at"`
}

// ChargeRequest is the caller's payment initiation payload
type ChargeRequest struct {
	OwnerID   string
	Amount    int64
	Currency  string
	Reference string
}

// Refund records a refund against a charge
type Refund struct {
	ID        string    `json:"id"`
	ChargeID  string    `json:"charge_id"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// Provider performs the downstream payment operations. Implementations
// must be safe for concurrent use.
type Provider interface {
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
	GetCharge(ctx context.Context, id string) (*Charge, error)
	RefundCharge(ctx context.Context, id string, amount int64) (*Refund, error)
	ListCharges(ctx context.Context, ownerID string) ([]*Charge, error)
}

// StubProvider is an in-memory Provider for development and tests.
// Charges succeed immediately.
type StubProvider struct {
	mu      sync.RWMutex
	charges map[string]*Charge
	refunds map[string][]*Refund
}

// NewStubProvider creates an empty in-memory provider
func NewStubProvider() *StubProvider {
	return &StubProvider{
		charges: make(map[string]*Charge),
		refunds: make(map[string][]*Refund),
	}
}

// CreateCharge implements Provider
func (p *StubProvider) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	charge := &Charge{
		ID:        "ch_" + uuid.NewString(),
		OwnerID:   req.OwnerID,
		Amount:    req.Amount,
		Currency:  req.Currency,
		Reference: req.Reference,
		Status:    ChargeSucceeded,
		CreatedAt: time.Now().UTC(),
	}
	p.mu.Lock()
	p.charges[charge.ID] = charge
	p.mu.Unlock()
	return charge, nil
}

// GetCharge implements Provider
func (p *StubProvider) GetCharge(ctx context.Context, id string) (*Charge, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	charge, ok := p.charges[id]
	if !ok {
		return nil, ErrChargeNotFound
	}
	copied := *charge
	return &copied, nil
}

// RefundCharge implements Provider. A zero amount refunds the full
// charge.
func (p *StubProvider) RefundCharge(ctx context.Context, id string, amount int64) (*Refund, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	charge, ok := p.charges[id]
	if !ok {
		return nil, ErrChargeNotFound
	}
	if amount <= 0 || amount > charge.Amount {
		amount = charge.Amount
	}
	charge.Status = ChargeRefunded
	refund := &Refund{
		ID:        "re_" + uuid.NewString(),
		ChargeID:  id,
		Amount:    amount,
		CreatedAt: time.Now().UTC(),
	}
	p.refunds[id] = append(p.refunds[id], refund)
	return refund, nil
}

// ListCharges implements Provider, newest first
func (p *StubProvider) ListCharges(ctx context.Context, ownerID string) ([]*Charge, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []*Charge
	for _, charge := range p.charges {
		if charge.OwnerID == ownerID {
			copied := *charge
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
