package clients

import (
	"context"
	"errors"
	"testing"
)

func testClient(id, apiKey string) *Client {
	return &Client{
		ID:            id,
		Name:          "Test Client",
		Email:         id + "@example.com",
		APIKey:        apiKey,
		APISecretHash: HashSecret("lmn_secret_" + id),
		Status:        StatusActive,
		Plan:          PlanBasic,
		Scopes:        []Scope{ScopePaymentsInitiate, ScopePaymentsRead},
		Limits:        DefaultRateLimits(),
	}
}

func TestMemoryStore_FindByKey_PrimaryKey(t *testing.T) {
	store := NewMemoryStore()
	client := testClient("client-1", "lmn_primary_key")
	store.Put(client)

	cred, err := store.FindByKey(context.Background(), "lmn_primary_key")
	if err != nil {
		t.Fatalf("FindByKey() error = %v", err)
	}
	if cred.Client.ID != "client-1" {
		t.Errorf("Client ID = %q, want client-1", cred.Client.ID)
	}
	if cred.Key != nil {
		t.Error("Primary key match should have no secondary key record")
	}
	if cred.SecretHash() != client.APISecretHash {
		t.Error("SecretHash() should come from the client for primary matches")
	}
}

func TestMemoryStore_FindByKey_SecondaryKey(t *testing.T) {
	store := NewMemoryStore()
	store.Put(testClient("client-1", "lmn_primary_key"))

	key := &APIKeyRecord{
		ID:            "key-1",
		ClientID:      "client-1",
		Name:          "sandbox key",
		Environment:   EnvSandbox,
		APIKey:        "lmn_secondary_key",
		APISecretHash: HashSecret("lmn_secondary_secret"),
		Active:        true,
		Scopes:        []Scope{ScopePaymentsRead},
	}
	if err := store.PutKey(key); err != nil {
		t.Fatalf("PutKey() error = %v", err)
	}

	cred, err := store.FindByKey(context.Background(), "lmn_secondary_key")
	if err != nil {
		t.Fatalf("FindByKey() error = %v", err)
	}
	if cred.Client.ID != "client-1" {
		t.Errorf("Client ID = %q, want client-1", cred.Client.ID)
	}
	if cred.Key == nil || cred.Key.ID != "key-1" {
		t.Fatal("Secondary key record should be attached")
	}

	// The secondary key narrows scopes and carries its own secret
	scopes := cred.Scopes()
	if len(scopes) != 1 || scopes[0] != ScopePaymentsRead {
		t.Errorf("Scopes() = %v, want [payments:read]", scopes)
	}
	if cred.SecretHash() != key.APISecretHash {
		t.Error("SecretHash() should come from the key for secondary matches")
	}
}

func TestMemoryStore_FindByKey_NotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.FindByKey(context.Background(), "lmn_unknown")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("FindByKey() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_PutKey_RequiresOwner(t *testing.T) {
	store := NewMemoryStore()
	err := store.PutKey(&APIKeyRecord{ID: "key-1", ClientID: "missing", APIKey: "lmn_orphan"})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("PutKey() for missing owner = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_Put_ReplacesKey(t *testing.T) {
	store := NewMemoryStore()
	store.Put(testClient("client-1", "lmn_old_key"))

	rotated := testClient("client-1", "lmn_new_key")
	store.Put(rotated)

	if _, err := store.FindByKey(context.Background(), "lmn_old_key"); !errors.Is(err, ErrNotFound) {
		t.Error("Old key should no longer resolve after rotation")
	}
	cred, err := store.FindByKey(context.Background(), "lmn_new_key")
	if err != nil {
		t.Fatalf("FindByKey() error = %v", err)
	}
	if cred.Client.ID != "client-1" {
		t.Errorf("Client ID = %q, want client-1", cred.Client.ID)
	}
}
