package ristretto_test

import (
	"context"
	"testing"
	"time"

	"github.com/archsaint/storefront/internal/adapter/ristretto"
)

func newCache(t *testing.T) *ristretto.Cache {
	t.Helper()
	c, err := ristretto.New(1 << 20)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestSetGetDelete(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "product:1", []byte("widget"), time.Minute); err != nil {
		t.Fatal(err)
	}
	val, found, err := c.Get(ctx, "product:1")
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected hit after Set")
	}
	if string(val) != "widget" {
		t.Fatalf("expected widget, got %s", val)
	}

	if err := c.Delete(ctx, "product:1"); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := c.Get(ctx, "product:1"); found {
		t.Fatal("expected miss after Delete")
	}
}

func TestTTLExpiry(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	if err := c.Set(ctx, "order:1", []byte("short"), time.Second); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := c.Get(ctx, "order:1"); !found {
		t.Fatal("expected hit before expiry")
	}

	time.Sleep(1100 * time.Millisecond)

	if _, found, _ := c.Get(ctx, "order:1"); found {
		t.Fatal("expected miss after TTL elapsed")
	}
}

func TestDeleteByPrefixClearsLevel(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()

	_ = c.Set(ctx, "orders:page:1:limit:10", []byte("p1"), time.Minute)
	_ = c.Set(ctx, "product:9", []byte("unrelated"), time.Minute)

	if err := c.DeleteByPrefix(ctx, "orders:page:"); err != nil {
		t.Fatal(err)
	}

	// The in-process level cannot enumerate keys; a sweep clears everything.
	if _, found, _ := c.Get(ctx, "orders:page:1:limit:10"); found {
		t.Fatal("expected swept listing key gone")
	}
	if _, found, _ := c.Get(ctx, "product:9"); found {
		t.Fatal("expected whole level cleared by sweep")
	}
}
