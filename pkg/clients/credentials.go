package clients

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	// KeyPrefix identifies gateway API keys
	KeyPrefix = "lmn_"
	// KeyLength is the number of random bytes in a public key (256 bits)
	KeyLength = 32
	// SecretLength is the number of random bytes in a secret (384 bits)
	SecretLength = 48
)

// CredentialGenerator mints API key pairs. The secret is returned exactly
// once at generation time; only its SHA-256 hash is ever stored.
type CredentialGenerator struct{}

// NewCredentialGenerator creates a new credential generator
func NewCredentialGenerator() *CredentialGenerator {
	return &CredentialGenerator{}
}

// GenerateKeyPair creates a public API key and a secret.
// Format: lmn_<base64url(random bytes)> for both parts.
func (g *CredentialGenerator) GenerateKeyPair() (apiKey, secret, secretHash string, err error) {
	keyBytes := make([]byte, KeyLength)
	if _, err := rand.Read(keyBytes); err != nil {
		return "", "", "", fmt.Errorf("failed to generate key bytes: %w", err)
	}
	secretBytes := make([]byte, SecretLength)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", "", "", fmt.Errorf("failed to generate secret bytes: %w", err)
	}

	apiKey = KeyPrefix + base64.RawURLEncoding.EncodeToString(keyBytes)
	secret = KeyPrefix + base64.RawURLEncoding.EncodeToString(secretBytes)
	return apiKey, secret, HashSecret(secret), nil
}

// ValidateKeyFormat checks if a public key has the expected shape
func (g *CredentialGenerator) ValidateKeyFormat(apiKey string) error {
	if !strings.HasPrefix(apiKey, KeyPrefix) {
		return fmt.Errorf("key must start with %q", KeyPrefix)
	}
	encoded := strings.TrimPrefix(apiKey, KeyPrefix)
	if len(encoded) == 0 {
		return fmt.Errorf("key is too short")
	}
	if _, err := base64.RawURLEncoding.DecodeString(encoded); err != nil {
		return fmt.Errorf("invalid key encoding: %w", err)
	}
	return nil
}

// HashSecret computes the SHA-256 hex digest stored in place of a secret
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// VerifySecret compares a presented secret against a stored hash in
// constant time. Both sides are hashed first so the comparison length is
// fixed and independent of the input.
func VerifySecret(secret, storedHash string) bool {
	presented := sha256.Sum256([]byte(secret))
	expected, err := hex.DecodeString(storedHash)
	if err != nil || len(expected) != sha256.Size {
		return false
	}
	return subtle.ConstantTimeCompare(presented[:], expected) == 1
}
