package clients

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	// DefaultCacheSize bounds the number of cached credentials
	DefaultCacheSize = 4096
	// DefaultCacheTTL is the staleness bound for a cached credential.
	// A revoked credential can be honored for at most this long.
	DefaultCacheTTL = 5 * time.Minute
)

// CachedStore wraps a CredentialStore with a TTL-bounded read-through
// cache. Entries are never served past the TTL, so credential revocation
// takes effect within one TTL of the change.
type CachedStore struct {
	inner CredentialStore
	cache *expirable.LRU[string, *Credential]

	hits   atomic.Int64
	misses atomic.Int64

	onHit  func()
	onMiss func()
}

// NewCachedStore wraps inner with an expiring LRU cache. A non-positive
// size or ttl selects the defaults.
func NewCachedStore(inner CredentialStore, size int, ttl time.Duration) *CachedStore {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedStore{
		inner: inner,
		cache: expirable.NewLRU[string, *Credential](size, nil, ttl),
	}
}

// FindByKey implements CredentialStore. Infrastructure errors from the
// inner store are returned uncached; ErrNotFound is likewise not cached,
// so an unknown key always costs a lookup.
func (s *CachedStore) FindByKey(ctx context.Context, apiKey string) (*Credential, error) {
	if cred, ok := s.cache.Get(apiKey); ok {
		s.hits.Add(1)
		if s.onHit != nil {
			s.onHit()
		}
		return cred, nil
	}
	s.misses.Add(1)
	if s.onMiss != nil {
		s.onMiss()
	}

	cred, err := s.inner.FindByKey(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	s.cache.Add(apiKey, cred)
	return cred, nil
}

// SetObserver registers hooks invoked on every cache hit and miss,
// typically metric increments. Call before the store starts serving
// lookups.
func (s *CachedStore) SetObserver(onHit, onMiss func()) {
	s.onHit = onHit
	s.onMiss = onMiss
}

// Invalidate drops a cached credential, forcing the next lookup through
// to the inner store
func (s *CachedStore) Invalidate(apiKey string) {
	s.cache.Remove(apiKey)
}

// Stats returns cumulative hit and miss counts
func (s *CachedStore) Stats() (hits, misses int64) {
	return s.hits.Load(), s.misses.Load()
}

// IsNotFound reports whether err means the credential does not exist, as
// opposed to an infrastructure failure
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
