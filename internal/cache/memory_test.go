package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryCacheSetGet(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	if _, ok, _ := c.Get(ctx, "missing"); ok {
		t.Error("expected miss for unknown key")
	}

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || v != "v" {
		t.Errorf("got (%q, %v), want (v, true)", v, ok)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "k", "v", 10*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "k"); ok {
		t.Error("expected expired entry to be a miss")
	}
}

func TestMemoryCacheGetOrSet(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	fetches := 0
	fetcher := func(context.Context) (string, error) {
		fetches++
		return "fresh", nil
	}

	for i := 0; i < 2; i++ {
		v, err := c.GetOrSet(ctx, "k", time.Minute, fetcher)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if v != "fresh" {
			t.Errorf("got %q", v)
		}
	}
	if fetches != 1 {
		t.Errorf("fetcher ran %d times, want 1", fetches)
	}

	wantErr := errors.New("backend down")
	if _, err := c.GetOrSet(ctx, "other", time.Minute, func(context.Context) (string, error) {
		return "", wantErr
	}); !errors.Is(err, wantErr) {
		t.Errorf("got %v, want fetcher error", err)
	}
}

func TestMemoryCacheDelAndFlush(t *testing.T) {
	c := NewMemoryCache()
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "a", "1", time.Minute)
	c.Set(ctx, "b", "2", time.Minute)

	if err := c.Del(ctx, "a"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "a"); ok {
		t.Error("expected deleted key to be a miss")
	}

	if err := c.Flush(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := c.Get(ctx, "b"); ok {
		t.Error("expected flushed key to be a miss")
	}
}
