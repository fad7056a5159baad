// Package plans maps subscription tiers to the gateway features they
// enable. The built-in matrix can be replaced from a YAML file at
// startup.
package plans

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lmnpay/gateway/pkg/clients"
)

// Feature names the capabilities gated by plan tier
const (
	FeaturePayments     = "payments"
	FeatureRefunds      = "refunds"
	FeatureWebhooks     = "webhooks"
	FeatureSandbox      = "sandbox"
	FeatureBulkPayments = "bulk_payments"
)

// Matrix maps each plan tier to its enabled features
type Matrix map[clients.PlanTier][]string

// Default returns the built-in plan matrix
func Default() Matrix {
	return Matrix{
		clients.PlanFree:       {FeatureSandbox},
		clients.PlanBasic:      {FeatureSandbox, FeaturePayments},
		clients.PlanPremium:    {FeatureSandbox, FeaturePayments, FeatureRefunds, FeatureWebhooks},
		clients.PlanEnterprise: {FeatureSandbox, FeaturePayments, FeatureRefunds, FeatureWebhooks, FeatureBulkPayments},
	}
}

// Allows reports whether tier enables feature. An unknown tier enables
// nothing; an empty feature is never restricted.
func (m Matrix) Allows(tier clients.PlanTier, feature string) bool {
	if feature == "" {
		return true
	}
	for _, f := range m[tier] {
		if f == feature {
			return true
		}
	}
	return false
}

// fileFormat is the YAML shape of a plan matrix override:
//
//	plans:
//	  premium:
//	    - payments
//	    - refunds
type fileFormat struct {
	Plans map[string][]string `yaml:"plans"`
}

// LoadFile reads a plan matrix from a YAML file, replacing the defaults
// entirely
func LoadFile(path string) (Matrix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML plan matrix
func Parse(data []byte) (Matrix, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse plan file: %w", err)
	}
	if len(f.Plans) == 0 {
		return nil, fmt.Errorf("plan file defines no plans")
	}
	m := make(Matrix, len(f.Plans))
	for tier, features := range f.Plans {
		m[clients.PlanTier(tier)] = features
	}
	return m, nil
}
