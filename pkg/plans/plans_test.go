package plans

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lmnpay/gateway/pkg/clients"
)

func TestDefault_Progression(t *testing.T) {
	m := Default()

	tests := []struct {
		tier    clients.PlanTier
		feature string
		want    bool
	}{
		{clients.PlanFree, FeatureSandbox, true},
		{clients.PlanFree, FeaturePayments, false},
		{clients.PlanBasic, FeaturePayments, true},
		{clients.PlanBasic, FeatureRefunds, false},
		{clients.PlanPremium, FeatureRefunds, true},
		{clients.PlanPremium, FeatureWebhooks, true},
		{clients.PlanPremium, FeatureBulkPayments, false},
		{clients.PlanEnterprise, FeatureBulkPayments, true},
	}
	for _, tt := range tests {
		if got := m.Allows(tt.tier, tt.feature); got != tt.want {
			t.Errorf("Allows(%s, %s) = %v, want %v", tt.tier, tt.feature, got, tt.want)
		}
	}
}

func TestMatrix_Allows_EdgeCases(t *testing.T) {
	m := Default()

	if !m.Allows(clients.PlanFree, "") {
		t.Error("Empty feature should never be restricted")
	}
	if m.Allows(clients.PlanTier("unknown"), FeatureSandbox) {
		t.Error("Unknown tier should enable nothing")
	}
	if m.Allows(clients.PlanEnterprise, "nonexistent_feature") {
		t.Error("Unknown feature should not be enabled")
	}
}

func TestParse(t *testing.T) {
	data := []byte(`
plans:
  basic:
    - payments
  premium:
    - payments
    - refunds
`)
	m, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if !m.Allows(clients.PlanPremium, FeatureRefunds) {
		t.Error("Parsed matrix should allow premium refunds")
	}
	if m.Allows(clients.PlanBasic, FeatureRefunds) {
		t.Error("Parsed matrix should not allow basic refunds")
	}
	// A file replaces the defaults entirely
	if m.Allows(clients.PlanEnterprise, FeaturePayments) {
		t.Error("Tiers absent from the file should enable nothing")
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("plans: []")); err == nil {
		t.Error("Wrong YAML shape should fail")
	}
	if _, err := Parse([]byte("not yaml: [")); err == nil {
		t.Error("Malformed YAML should fail")
	}
	if _, err := Parse([]byte("other_key: {}")); err == nil {
		t.Error("File without plans should fail")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plans.yaml")
	content := []byte("plans:\n  enterprise:\n    - bulk_payments\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("Writing plan file: %v", err)
	}

	m, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if !m.Allows(clients.PlanEnterprise, FeatureBulkPayments) {
		t.Error("Loaded matrix should allow enterprise bulk payments")
	}

	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Missing file should fail")
	}
}
