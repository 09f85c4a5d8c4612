// Package service contains application services.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/archsaint/storefront/internal/port/cache"
)

// EntityCache is a typed cache facade for one entity kind. It owns the key
// scheme for that kind and the serialization of its records, so callers never
// touch raw cache keys or bytes. Every failure of the underlying cache is
// logged and absorbed: a broken cache degrades to a miss, it never fails the
// caller.
type EntityCache[T any] struct {
	kind       string
	store      cache.Cache
	singleTTL  time.Duration
	listingTTL time.Duration
}

// NewEntityCache creates an EntityCache for the given entity kind, e.g.
// "order" or "product". The kind is the key namespace: single records live
// under "{kind}:{id}" and listings under "{kind}s:...".
func NewEntityCache[T any](kind string, store cache.Cache, singleTTL, listingTTL time.Duration) *EntityCache[T] {
	return &EntityCache[T]{
		kind:       kind,
		store:      store,
		singleTTL:  singleTTL,
		listingTTL: listingTTL,
	}
}

// Kind returns the entity kind this cache serves.
func (c *EntityCache[T]) Kind() string { return c.kind }

func (c *EntityCache[T]) singleKey(id int64) string {
	return fmt.Sprintf("%s:%d", c.kind, id)
}

func (c *EntityCache[T]) pageKey(page, limit int) string {
	return fmt.Sprintf("%ss:page:%d:limit:%d", c.kind, page, limit)
}

func (c *EntityCache[T]) userKey(userID int64, limit int) string {
	return fmt.Sprintf("%ss:user:%d:limit:%d", c.kind, userID, limit)
}

// GetSingle returns the cached record for id, or ok=false on a miss or any
// cache failure.
func (c *EntityCache[T]) GetSingle(ctx context.Context, id int64) (*T, bool) {
	return c.get(ctx, c.singleKey(id))
}

// SetSingle caches a single record under "{kind}:{id}" with the single-record
// TTL.
func (c *EntityCache[T]) SetSingle(ctx context.Context, id int64, record *T) {
	c.set(ctx, c.singleKey(id), record, c.singleTTL)
}

// GetPage returns the cached listing page, or ok=false on a miss or failure.
// The result type L is the caller's page shape; distinct (page, limit) pairs
// never collide.
func GetPage[T, L any](ctx context.Context, c *EntityCache[T], page, limit int) (*L, bool) {
	return getAs[L](ctx, c.store, c.pageKey(page, limit))
}

// SetPage caches a listing page with the listing TTL.
func SetPage[T, L any](ctx context.Context, c *EntityCache[T], page, limit int, records *L) {
	setAs(ctx, c.store, c.pageKey(page, limit), records, c.listingTTL)
}

// GetUserListing returns the cached per-user listing, or ok=false.
func (c *EntityCache[T]) GetUserListing(ctx context.Context, userID int64, limit int) ([]T, bool) {
	v, ok := getAs[[]T](ctx, c.store, c.userKey(userID, limit))
	if !ok {
		return nil, false
	}
	return *v, true
}

// SetUserListing caches a per-user listing with the listing TTL.
func (c *EntityCache[T]) SetUserListing(ctx context.Context, userID int64, limit int, records []T) {
	setAs(ctx, c.store, c.userKey(userID, limit), &records, c.listingTTL)
}

// Invalidate removes the single-record entry for id and sweeps every listing
// key of this kind, page-scoped and user-scoped alike. Listings are swept
// wholesale because any record change can alter any page's contents.
func (c *EntityCache[T]) Invalidate(ctx context.Context, id int64) {
	if err := c.store.Delete(ctx, c.singleKey(id)); err != nil {
		slog.Warn("cache delete failed", "key", c.singleKey(id), "error", err)
	}
	c.InvalidateListings(ctx)
}

// InvalidateListings sweeps every listing key of this kind without touching
// single-record entries.
func (c *EntityCache[T]) InvalidateListings(ctx context.Context) {
	prefix := c.kind + "s:"
	if err := c.store.DeleteByPrefix(ctx, prefix); err != nil {
		slog.Warn("cache sweep failed", "prefix", prefix, "error", err)
	}
}

func (c *EntityCache[T]) get(ctx context.Context, key string) (*T, bool) {
	return getAs[T](ctx, c.store, key)
}

func (c *EntityCache[T]) set(ctx context.Context, key string, v *T, ttl time.Duration) {
	setAs(ctx, c.store, key, v, ttl)
}

func getAs[V any](ctx context.Context, store cache.Cache, key string) (*V, bool) {
	data, ok, err := store.Get(ctx, key)
	if err != nil {
		slog.Warn("cache get failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	var v V
	if err := json.Unmarshal(data, &v); err != nil {
		// A corrupt entry is treated as a miss; the read path will
		// overwrite it with a fresh record.
		slog.Warn("cache entry corrupt", "key", key, "error", err)
		return nil, false
	}
	return &v, true
}

func setAs[V any](ctx context.Context, store cache.Cache, key string, v *V, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := store.Set(ctx, key, data, ttl); err != nil {
		slog.Warn("cache set failed", "key", key, "error", err)
	}
}
