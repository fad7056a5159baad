package auth

import (
	"context"
	"strings"
	"time"

	"github.com/lmnpay/gateway/pkg/clients"
)

const (
	// AuthorizationScheme is the scheme of the combined credential header
	// Format: Authorization: ApiKey <api_key>:<api_secret>
	AuthorizationScheme = "ApiKey"

	// HeaderAPIKey and HeaderAPISecret carry split credentials
	HeaderAPIKey    = "X-API-Key"
	HeaderAPISecret = "X-API-Secret"
)

// KeySecretStrategy authenticates requests carrying an API key and
// secret, either combined in an Authorization header or split across
// X-API-Key / X-API-Secret.
type KeySecretStrategy struct {
	store clients.CredentialStore
	now   func() time.Time
}

// NewKeySecretStrategy creates a key+secret strategy backed by store
func NewKeySecretStrategy(store clients.CredentialStore) *KeySecretStrategy {
	return &KeySecretStrategy{store: store, now: time.Now}
}

// Name implements Strategy
func (s *KeySecretStrategy) Name() string { return "key_secret" }

// Attempt implements Strategy
func (s *KeySecretStrategy) Attempt(ctx context.Context, req *Request) (Attempt, error) {
	apiKey, secret, ok := s.extractCredentials(req)
	if !ok {
		return Attempt{Strategy: s.Name(), Skipped: true}, nil
	}

	cred, err := s.store.FindByKey(ctx, apiKey)
	if clients.IsNotFound(err) {
		return s.fail(ReasonInvalidCredentials, false), nil
	}
	if err != nil {
		return Attempt{Strategy: s.Name()}, err
	}

	// Constant-time comparison; a wrong secret and an unknown key produce
	// the same reason so callers cannot enumerate keys.
	if !clients.VerifySecret(secret, cred.SecretHash()) {
		return s.fail(ReasonInvalidCredentials, true), nil
	}

	if cred.Key != nil && !cred.Key.Usable(s.now()) {
		return s.fail(ReasonExpiredKey, true), nil
	}
	if !cred.Client.IsActive() {
		return s.fail(ReasonInactiveClient, true), nil
	}

	return Attempt{
		Strategy: s.Name(),
		Resolved: true,
		Identity: &Identity{
			Client:   cred.Client,
			Key:      cred.Key,
			Scopes:   cred.Scopes(),
			Strategy: s.Name(),
		},
	}, nil
}

func (s *KeySecretStrategy) fail(reason FailureReason, resolved bool) Attempt {
	return Attempt{Strategy: s.Name(), Reason: reason, Resolved: resolved}
}

// extractCredentials reads the key and secret from either accepted
// header shape. Returns ok=false when neither shape is present.
func (s *KeySecretStrategy) extractCredentials(req *Request) (apiKey, secret string, ok bool) {
	if authz := strings.TrimSpace(req.Header.Get("Authorization")); authz != "" {
		if rest, found := strings.CutPrefix(authz, AuthorizationScheme+" "); found {
			key, sec, found := strings.Cut(rest, ":")
			if !found {
				return "", "", false
			}
			return strings.TrimSpace(key), strings.TrimSpace(sec), true
		}
	}

	apiKey = req.Header.Get(HeaderAPIKey)
	secret = req.Header.Get(HeaderAPISecret)
	if apiKey != "" && secret != "" {
		return apiKey, secret, true
	}
	return "", "", false
}
