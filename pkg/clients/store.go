package clients

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned when no client or API key matches a lookup
var ErrNotFound = errors.New("credential not found")

// Credential is the result of a key lookup: the owning client, plus the
// secondary key record when the match was a secondary credential rather
// than the client's primary key.
type Credential struct {
	Client *Client
	Key    *APIKeyRecord // nil when the primary client key matched
}

// SecretHash returns the hash the presented secret must verify against
func (c *Credential) SecretHash() string {
	if c.Key != nil {
		return c.Key.APISecretHash
	}
	return c.Client.APISecretHash
}

// Scopes returns the grants attached to the matched credential.
// A secondary key narrows the client's scope set.
func (c *Credential) Scopes() []Scope {
	if c.Key != nil {
		return c.Key.Scopes
	}
	return c.Client.Scopes
}

// CredentialStore is the read-only lookup consumed by the authentication
// strategies. Implementations must treat lookups as side-effect-free.
type CredentialStore interface {
	// FindByKey resolves a public API key to its credential.
	// Returns ErrNotFound when the key matches neither a client's primary
	// key nor a secondary key; any other error is an infrastructure
	// failure and callers fail closed.
	FindByKey(ctx context.Context, apiKey string) (*Credential, error)
}

// MemoryStore is an in-process CredentialStore for tests and single-node
// deployments
type MemoryStore struct {
	mu       sync.RWMutex
	byKey    map[string]*Client
	apiKeys  map[string]*APIKeyRecord
	byClient map[string]*Client
}

// NewMemoryStore creates an empty in-memory credential store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byKey:    make(map[string]*Client),
		apiKeys:  make(map[string]*APIKeyRecord),
		byClient: make(map[string]*Client),
	}
}

// Put registers or replaces a client
func (s *MemoryStore) Put(client *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.byClient[client.ID]; ok && old.APIKey != client.APIKey {
		delete(s.byKey, old.APIKey)
	}
	s.byKey[client.APIKey] = client
	s.byClient[client.ID] = client
}

// PutKey registers or replaces a secondary API key. The owning client
// must already be present.
func (s *MemoryStore) PutKey(key *APIKeyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byClient[key.ClientID]; !ok {
		return ErrNotFound
	}
	s.apiKeys[key.APIKey] = key
	return nil
}

// FindByKey implements CredentialStore
func (s *MemoryStore) FindByKey(ctx context.Context, apiKey string) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if client, ok := s.byKey[apiKey]; ok {
		return &Credential{Client: client}, nil
	}
	if key, ok := s.apiKeys[apiKey]; ok {
		client, ok := s.byClient[key.ClientID]
		if !ok {
			return nil, ErrNotFound
		}
		return &Credential{Client: client, Key: key}, nil
	}
	return nil, ErrNotFound
}
