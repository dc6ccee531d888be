package memory

import (
	"context"
	"testing"
)

func TestStorageLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewStorage()

	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatalf("expected missing key")
	}
	if err := store.Set(ctx, "k", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := store.Set(ctx, "k", "v2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, ok, err := store.Get(ctx, "k")
	if err != nil || !ok || got != "v2" {
		t.Fatalf("expected v2, got %q ok=%v err=%v", got, ok, err)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "k"); ok {
		t.Fatalf("expected key removed")
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("deleting a missing key should be a no-op: %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expected empty store, got %d keys", store.Len())
	}
}
