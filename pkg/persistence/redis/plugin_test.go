package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/lemonbanan4/ai-web-research/pkg/persistence"

	"github.com/alicebob/miniredis/v2"
)

func setupStore(t *testing.T) (persistence.Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	raw, _ := json.Marshal(Config{Addr: mr.Addr()})
	store, err := persistence.NewStore(
		persistence.ProviderConfig{Type: "redis", Config: raw},
		persistence.PluginConfig{DefaultTTL: time.Minute, KeyPrefix: "test:"},
	)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisPluginRoundTrip(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	if err := store.Health(ctx); err != nil {
		t.Fatalf("Health: %v", err)
	}
	if _, err := store.Get(ctx, "k"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.Set(ctx, "k", []byte(`["https://a"]`), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !mr.Exists("test:k") {
		t.Fatal("expected prefixed key in redis")
	}
	if ttl := mr.TTL("test:k"); ttl != time.Minute {
		t.Errorf("TTL = %v, want default 1m", ttl)
	}
	got, err := store.Get(ctx, "k")
	if err != nil || string(got) != `["https://a"]` {
		t.Fatalf("Get = %q, %v", got, err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if mr.Exists("test:k") {
		t.Error("key still present after delete")
	}
}

func TestRedisPluginExpiry(t *testing.T) {
	store, mr := setupStore(t)
	ctx := context.Background()

	_ = store.Set(ctx, "k", []byte("v"), 5*time.Second)
	mr.FastForward(6 * time.Second)
	if _, err := store.Get(ctx, "k"); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("expected expiry, got %v", err)
	}
}

func TestRedisPluginRequiresAddr(t *testing.T) {
	_, err := NewPlugin(persistence.PluginConfig{Config: json.RawMessage(`{}`)})
	if err == nil {
		t.Fatal("expected error without addr")
	}
}
