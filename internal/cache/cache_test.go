package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Minute)

	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Fatal("expected miss on empty cache")
	}
	if err := c.Set(ctx, "a", []byte("one")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := c.Get(ctx, "a")
	if err != nil || !ok || string(got) != "one" {
		t.Fatalf("got %q %v %v, want one", got, ok, err)
	}

	if err := c.Delete(ctx, "a", "missing"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Error("expected miss after delete")
	}
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Second)
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	c.Set(ctx, "k", []byte("v")) //nolint:errcheck
	clock = clock.Add(999 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "k"); !ok {
		t.Fatal("expected hit before ttl")
	}
	clock = clock.Add(time.Millisecond)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("expected miss at ttl")
	}
	if len(c.items) != 0 {
		t.Errorf("expired entry not dropped, %d left", len(c.items))
	}
}

func TestNewDefaultsToMemory(t *testing.T) {
	c, err := New(context.Background(), Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	m, ok := c.(*Memory)
	if !ok {
		t.Fatalf("got %T, want *Memory", c)
	}
	if m.ttl != time.Minute {
		t.Errorf("got ttl %v, want 1m", m.ttl)
	}
}

// TestRedisRoundTrip runs against a live server named by
// CARRIERD_TEST_REDIS_ADDR.
func TestRedisRoundTrip(t *testing.T) {
	addr := os.Getenv("CARRIERD_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("CARRIERD_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	c, err := NewRedis(ctx, Config{RedisAddr: addr, TTL: time.Minute})
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer c.Close()

	if err := c.Set(ctx, "test-key", []byte("value")); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := c.Get(ctx, "test-key")
	if err != nil || !ok || string(got) != "value" {
		t.Fatalf("got %q %v %v", got, ok, err)
	}
	if err := c.Delete(ctx, "test-key"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "test-key"); ok {
		t.Error("expected miss after delete")
	}
}

func TestNewRedisUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := New(ctx, Config{RedisAddr: "127.0.0.1:1"}); err == nil {
		t.Fatal("expected error for unreachable redis")
	}
}
