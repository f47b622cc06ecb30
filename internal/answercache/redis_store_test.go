package answercache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) *RedisStore {
	t.Helper()
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRedisStoreSetAndGet(t *testing.T) {
	store := setupTestRedis(t)
	ctx := context.Background()

	if err := store.Set(ctx, "answer:abc", []byte(`{"answer":"tak"}`), time.Minute); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	payload, createdAt, ok, err := store.Get(ctx, "answer:abc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !ok {
		t.Fatal("expected a hit")
	}
	if string(payload) != `{"answer":"tak"}` {
		t.Fatalf("unexpected payload %q", payload)
	}
	if createdAt.IsZero() {
		t.Fatal("expected created-at timestamp")
	}
}

func TestRedisStoreMissOnUnknownKey(t *testing.T) {
	store := setupTestRedis(t)

	_, _, ok, err := store.Get(context.Background(), "answer:unknown")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Fatal("expected a miss")
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	defer store.Close()
	ctx := context.Background()

	if err := store.Set(ctx, "answer:ttl", []byte("v"), time.Second); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	s.FastForward(2 * time.Second)

	_, _, ok, err := store.Get(ctx, "answer:ttl")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Fatal("expected entry to expire")
	}
}

func TestRedisStorePing(t *testing.T) {
	store := setupTestRedis(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
