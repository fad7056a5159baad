package clients

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

// countingStore wraps a store and counts inner lookups
type countingStore struct {
	inner    CredentialStore
	lookups  atomic.Int64
	failWith error
}

func (s *countingStore) FindByKey(ctx context.Context, apiKey string) (*Credential, error) {
	s.lookups.Add(1)
	if s.failWith != nil {
		return nil, s.failWith
	}
	return s.inner.FindByKey(ctx, apiKey)
}

func TestCachedStore_ReadThrough(t *testing.T) {
	mem := NewMemoryStore()
	mem.Put(testClient("client-1", "lmn_cached_key"))
	counting := &countingStore{inner: mem}
	cached := NewCachedStore(counting, 16, time.Minute)

	for i := 0; i < 3; i++ {
		cred, err := cached.FindByKey(context.Background(), "lmn_cached_key")
		if err != nil {
			t.Fatalf("FindByKey() error = %v", err)
		}
		if cred.Client.ID != "client-1" {
			t.Errorf("Client ID = %q, want client-1", cred.Client.ID)
		}
	}

	if got := counting.lookups.Load(); got != 1 {
		t.Errorf("Inner lookups = %d, want 1 (subsequent hits served from cache)", got)
	}
	hits, misses := cached.Stats()
	if hits != 2 || misses != 1 {
		t.Errorf("Stats() = %d hits, %d misses, want 2/1", hits, misses)
	}
}

func TestCachedStore_NotFoundNotCached(t *testing.T) {
	counting := &countingStore{inner: NewMemoryStore()}
	cached := NewCachedStore(counting, 16, time.Minute)

	for i := 0; i < 3; i++ {
		if _, err := cached.FindByKey(context.Background(), "lmn_unknown"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("FindByKey() error = %v, want ErrNotFound", err)
		}
	}

	// Every miss on an unknown key costs a real lookup
	if got := counting.lookups.Load(); got != 3 {
		t.Errorf("Inner lookups = %d, want 3", got)
	}
}

func TestCachedStore_ErrorsNotCached(t *testing.T) {
	counting := &countingStore{inner: NewMemoryStore(), failWith: fmt.Errorf("connection refused")}
	cached := NewCachedStore(counting, 16, time.Minute)

	_, err := cached.FindByKey(context.Background(), "lmn_any")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("FindByKey() error = %v, want infrastructure error", err)
	}
	_, _ = cached.FindByKey(context.Background(), "lmn_any")
	if got := counting.lookups.Load(); got != 2 {
		t.Errorf("Inner lookups = %d, want 2 (errors must not be cached)", got)
	}
}

func TestCachedStore_Invalidate(t *testing.T) {
	mem := NewMemoryStore()
	mem.Put(testClient("client-1", "lmn_inv_key"))
	counting := &countingStore{inner: mem}
	cached := NewCachedStore(counting, 16, time.Minute)

	if _, err := cached.FindByKey(context.Background(), "lmn_inv_key"); err != nil {
		t.Fatalf("FindByKey() error = %v", err)
	}
	cached.Invalidate("lmn_inv_key")
	if _, err := cached.FindByKey(context.Background(), "lmn_inv_key"); err != nil {
		t.Fatalf("FindByKey() error = %v", err)
	}

	if got := counting.lookups.Load(); got != 2 {
		t.Errorf("Inner lookups = %d, want 2 (invalidation forces a reload)", got)
	}
}

func TestCachedStore_Observer(t *testing.T) {
	mem := NewMemoryStore()
	mem.Put(testClient("client-1", "lmn_obs_key"))
	cached := NewCachedStore(mem, 16, time.Minute)

	var hits, misses int
	cached.SetObserver(func() { hits++ }, func() { misses++ })

	cached.FindByKey(context.Background(), "lmn_obs_key")
	cached.FindByKey(context.Background(), "lmn_obs_key")

	if hits != 1 || misses != 1 {
		t.Errorf("Observer saw %d hits, %d misses, want 1/1", hits, misses)
	}
}

func TestCachedStore_DefaultSizing(t *testing.T) {
	cached := NewCachedStore(NewMemoryStore(), 0, 0)
	if cached == nil {
		t.Fatal("NewCachedStore() with zero size/ttl should fall back to defaults")
	}
}
