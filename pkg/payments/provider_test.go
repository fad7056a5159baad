package payments

import (
	"context"
	"errors"
	"testing"
)

func TestStubProvider_CreateAndGet(t *testing.T) {
	p := NewStubProvider()
	ctx := context.Background()

	charge, err := p.CreateCharge(ctx, ChargeRequest{
		OwnerID:  "client-1",
		Amount:   2500,
		Currency: "USD",
	})
	if err != nil {
		t.Fatalf("CreateCharge() error = %v", err)
	}
	if charge.ID == "" || charge.Status != ChargeSucceeded {
		t.Errorf("Charge = %+v, want succeeded with an ID", charge)
	}

	got, err := p.GetCharge(ctx, charge.ID)
	if err != nil {
		t.Fatalf("GetCharge() error = %v", err)
	}
	if got.OwnerID != "client-1" || got.Amount != 2500 {
		t.Errorf("GetCharge() = %+v", got)
	}
}

func TestStubProvider_GetCharge_NotFound(t *testing.T) {
	p := NewStubProvider()
	if _, err := p.GetCharge(context.Background(), "ch_missing"); !errors.Is(err, ErrChargeNotFound) {
		t.Errorf("GetCharge() error = %v, want ErrChargeNotFound", err)
	}
}

func TestStubProvider_Refund(t *testing.T) {
	p := NewStubProvider()
	ctx := context.Background()

	charge, _ := p.CreateCharge(ctx, ChargeRequest{OwnerID: "client-1", Amount: 1000, Currency: "USD"})

	refund, err := p.RefundCharge(ctx, charge.ID, 400)
	if err != nil {
		t.Fatalf("RefundCharge() error = %v", err)
	}
	if refund.Amount != 400 || refund.ChargeID != charge.ID {
		t.Errorf("Refund = %+v", refund)
	}

	got, _ := p.GetCharge(ctx, charge.ID)
	if got.Status != ChargeRefunded {
		t.Errorf("Charge status = %q, want refunded", got.Status)
	}
}

func TestStubProvider_Refund_FullByDefault(t *testing.T) {
	p := NewStubProvider()
	ctx := context.Background()

	charge, _ := p.CreateCharge(ctx, ChargeRequest{OwnerID: "client-1", Amount: 1000, Currency: "USD"})

	// Zero and over-large amounts both fall back to the full charge
	refund, err := p.RefundCharge(ctx, charge.ID, 0)
	if err != nil {
		t.Fatalf("RefundCharge() error = %v", err)
	}
	if refund.Amount != 1000 {
		t.Errorf("Refund amount = %d, want full 1000", refund.Amount)
	}
}

func TestStubProvider_ListCharges_ScopedToOwner(t *testing.T) {
	p := NewStubProvider()
	ctx := context.Background()

	p.CreateCharge(ctx, ChargeRequest{OwnerID: "client-1", Amount: 100, Currency: "USD"})
	p.CreateCharge(ctx, ChargeRequest{OwnerID: "client-1", Amount: 200, Currency: "USD"})
	p.CreateCharge(ctx, ChargeRequest{OwnerID: "client-2", Amount: 300, Currency: "EUR"})

	charges, err := p.ListCharges(ctx, "client-1")
	if err != nil {
		t.Fatalf("ListCharges() error = %v", err)
	}
	if len(charges) != 2 {
		t.Fatalf("ListCharges() returned %d charges, want 2", len(charges))
	}
	for _, c := range charges {
		if c.OwnerID != "client-1" {
			t.Errorf("Charge %s owned by %q leaked into client-1's list", c.ID, c.OwnerID)
		}
	}
}
