package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/angelmondragon/storefront/pkg/storage"
	"github.com/angelmondragon/storefront/pkg/storage/memory"
)

func TestShopperPartitionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	backend := memory.New(0)
	alice := storage.ShopperPartition(backend, "alice")
	bob := storage.ShopperPartition(backend, "bob")

	if err := alice.Set(ctx, "cart_acme", []byte("a")); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, err := bob.Get(ctx, "cart_acme"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected bob to see nothing, got %v", err)
	}
	raw, err := backend.Get(ctx, "shopper:alice:cart_acme")
	if err != nil || string(raw) != "a" {
		t.Fatalf("expected prefixed key in backend, got %q %v", raw, err)
	}
	if err := alice.Delete(ctx, "cart_acme"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := alice.Get(ctx, "cart_acme"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}
