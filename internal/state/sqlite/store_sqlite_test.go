package sqlite

import (
	"context"
	"path/filepath"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	store, err := New(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Set(ctx, "signer:nonce:key-id", "1700000000000"); err != nil {
		t.Fatalf("set: %v", err)
	}
	val, ok, err := store.Get(ctx, "signer:nonce:key-id")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok || val != "1700000000000" {
		t.Fatalf("unexpected value: %v (ok=%v)", val, ok)
	}
	if err := store.Set(ctx, "signer:nonce:key-id", "1700000000001"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	val, _, err = store.Get(ctx, "signer:nonce:key-id")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if val != "1700000000001" {
		t.Fatalf("set must overwrite, got %v", val)
	}
	if err := store.Delete(ctx, "signer:nonce:key-id"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, ok, err = store.Get(ctx, "signer:nonce:key-id")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ok {
		t.Fatalf("expected key to be deleted")
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.db")
	ctx := context.Background()

	store, err := New(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Set(ctx, "signer:nonce:key-id", "42"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	store, err = New(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	defer store.Close()
	val, ok, err := store.Get(ctx, "signer:nonce:key-id")
	if err != nil {
		t.Fatalf("get after reopen: %v", err)
	}
	if !ok || val != "42" {
		t.Fatalf("value lost across reopen: %v (ok=%v)", val, ok)
	}
}
