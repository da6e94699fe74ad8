package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

// redisCache connects to the server named by MOPASS_TEST_REDIS, skipping
// the test when it is unset.
func redisCache(t *testing.T) *RedisCache {
	t.Helper()
	addr := os.Getenv("MOPASS_TEST_REDIS")
	if addr == "" {
		t.Skip("MOPASS_TEST_REDIS not set")
	}
	c, err := NewRedisCache(context.Background(), RedisConfig{
		Addr:   addr,
		Prefix: "mopass-test:" + uuid.NewString() + ":",
	})
	if err != nil {
		t.Fatalf("NewRedisCache() error: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Clear(context.Background())
		_ = c.Close()
	})
	return c
}

func TestRedisCache(t *testing.T) {
	c := redisCache(t)
	ctx := context.Background()

	if _, hit, err := c.Get(ctx, "missing"); hit || err != nil {
		t.Errorf("Get(missing) = %v, %v, want miss", hit, err)
	}
	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatal(err)
	}
	if data, hit, err := c.Get(ctx, "k"); !hit || err != nil || string(data) != "v" {
		t.Errorf("Get(k) = %q, %v, %v", data, hit, err)
	}
	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("entry survived Delete")
	}
}

func TestRedisCache_Clear(t *testing.T) {
	c := redisCache(t)
	ctx := context.Background()
	for _, k := range []string{"a", "b"} {
		if err := c.Set(ctx, k, []byte(k), time.Minute); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"a", "b"} {
		if _, hit, _ := c.Get(ctx, k); hit {
			t.Errorf("%s survived Clear", k)
		}
	}
}

func TestNewRedisCache_Unreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for connection retries")
	}
	defer func(d time.Duration) { retryDelay = d }(retryDelay)
	retryDelay = time.Millisecond

	_, err := NewRedisCache(context.Background(), RedisConfig{Addr: "127.0.0.1:1"})
	if !IsRetryable(err) {
		t.Errorf("NewRedisCache() error = %v, want a retryable network error", err)
	}
}
