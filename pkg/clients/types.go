package clients

import "time"

// Status represents the lifecycle state of a client account
type Status string

const (
	StatusActive    Status = "active"    // May authenticate and transact
	StatusSuspended Status = "suspended" // Temporarily blocked (e.g. billing hold)
	StatusDisabled  Status = "disabled"  // Soft-deleted; kept for audit history
)

// PlanTier represents a client subscription plan
type PlanTier string

const (
	PlanFree       PlanTier = "free"
	PlanBasic      PlanTier = "basic"
	PlanPremium    PlanTier = "premium"
	PlanEnterprise PlanTier = "enterprise"
)

// Environment tags a secondary API key with its target environment
type Environment string

const (
	EnvSandbox    Environment = "sandbox"
	EnvProduction Environment = "production"
)

// Scope represents a named permission granted to a client or API key
type Scope string

const (
	ScopePaymentsInitiate Scope = "payments:initiate"
	ScopePaymentsRead     Scope = "payments:read"
	ScopePaymentsRefund   Scope = "payments:refund"
	ScopeTransactionsRead Scope = "transactions:read"
	ScopeWebhooksManage   Scope = "webhooks:manage"
	ScopeBalanceRead      Scope = "balance:read"
	ScopeAll              Scope = "*" // All permissions
)

// RateLimits holds the per-window request thresholds for a client.
// A zero threshold means the window is unlimited.
type RateLimits struct {
	PerMinute int `json:"per_minute"`
	PerHour   int `json:"per_hour"`
	PerDay    int `json:"per_day"`
}

// DefaultRateLimits returns the thresholds applied to new clients
func DefaultRateLimits() RateLimits {
	return RateLimits{
		PerMinute: 60,
		PerHour:   1000,
		PerDay:    10000,
	}
}

// Client represents a registered API consumer of the payment gateway
type Client struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	APIKey        string     `json:"api_key"`
	APISecretHash string     `json:"-"` // SHA-256 hex; never expose or log
	Status        Status     `json:"status"`
	Plan          PlanTier   `json:"plan"`
	Scopes        []Scope    `json:"scopes"`
	AllowedIPs    []string   `json:"allowed_ips,omitempty"` // Empty = unrestricted
	Limits        RateLimits `json:"rate_limits"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastAPICallAt *time.Time `json:"last_api_call_at,omitempty"`
}

// IsActive reports whether the client may authenticate
func (c *Client) IsActive() bool {
	return c.Status == StatusActive
}

// HasScope reports whether the client's own grants include scope
func (c *Client) HasScope(scope Scope) bool {
	return scopeIn(c.Scopes, scope)
}

// IPAllowed reports whether ip passes the client's allow-list.
// An empty allow-list means unrestricted.
func (c *Client) IPAllowed(ip string) bool {
	if len(c.AllowedIPs) == 0 {
		return true
	}
	for _, allowed := range c.AllowedIPs {
		if allowed == ip {
			return true
		}
	}
	return false
}

// APIKeyRecord represents a secondary credential scoped to one client,
// typically issued per environment with a narrowed scope set.
type APIKeyRecord struct {
	ID            string      `json:"id"`
	ClientID      string      `json:"client_id"`
	Name          string      `json:"name"`
	Environment   Environment `json:"environment"`
	APIKey        string      `json:"api_key"`
	APISecretHash string      `json:"-"`
	Active        bool        `json:"active"`
	Scopes        []Scope     `json:"scopes"` // Subset of the owning client's scopes
	ExpiresAt     *time.Time  `json:"expires_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	LastUsedAt    *time.Time  `json:"last_used_at,omitempty"`
}

// Expired reports whether the key's expiry has passed at the given time
func (k *APIKeyRecord) Expired(now time.Time) bool {
	return k.ExpiresAt != nil && now.After(*k.ExpiresAt)
}

// Usable reports whether the key may authenticate at the given time.
// An expired or inactive key must never authenticate, even if the
// owning client is active.
func (k *APIKeyRecord) Usable(now time.Time) bool {
	return k.Active && !k.Expired(now)
}

func scopeIn(scopes []Scope, want Scope) bool {
	for _, s := range scopes {
		if s == ScopeAll || s == want {
			return true
		}
	}
	return false
}
