package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	t.Run("miss on empty cache", func(t *testing.T) {
		_, ok, err := c.Get(ctx, "nope")
		if err != nil || ok {
			t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
		}
	})

	t.Run("set then get", func(t *testing.T) {
		if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
			t.Fatalf("set: %v", err)
		}
		v, ok, err := c.Get(ctx, "k")
		if err != nil || !ok || v != "v" {
			t.Fatalf("expected hit with v, got %q ok=%v err=%v", v, ok, err)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		c.Set(ctx, "k", "v2", time.Minute)
		v, _, _ := c.Get(ctx, "k")
		if v != "v2" {
			t.Fatalf("expected v2, got %q", v)
		}
	})

	t.Run("expiry", func(t *testing.T) {
		c.Set(ctx, "short", "v", -time.Second)
		_, ok, _ := c.Get(ctx, "short")
		if ok {
			t.Fatal("expired entry should miss")
		}
	})

	t.Run("delete", func(t *testing.T) {
		c.Set(ctx, "gone", "v", time.Minute)
		if err := c.Delete(ctx, "gone"); err != nil {
			t.Fatalf("delete: %v", err)
		}
		_, ok, _ := c.Get(ctx, "gone")
		if ok {
			t.Fatal("deleted entry should miss")
		}
	})
}
