package service

import (
	"context"
)

// Source identifies where a resolved record came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceDatabase Source = "database"
)

// Resolver is a read-through lookup for one entity kind: cache first, then
// the authoritative loader, then a best-effort backfill of the cache. The
// returned Source tells the caller which path produced the record.
type Resolver[T any] struct {
	cache *EntityCache[T]
	load  func(ctx context.Context, id int64) (*T, error)
}

// NewResolver creates a Resolver backed by the given entity cache and
// authoritative loader. The loader's errors pass through unchanged; cache
// failures on either side of it are absorbed.
func NewResolver[T any](cache *EntityCache[T], load func(ctx context.Context, id int64) (*T, error)) *Resolver[T] {
	return &Resolver[T]{cache: cache, load: load}
}

// Resolve returns the record for id and the source it came from. A cache hit
// skips the loader entirely; a miss consults the loader and backfills the
// cache so the next resolve of the same id hits.
func (r *Resolver[T]) Resolve(ctx context.Context, id int64) (*T, Source, error) {
	if record, ok := r.cache.GetSingle(ctx, id); ok {
		return record, SourceCache, nil
	}

	record, err := r.load(ctx, id)
	if err != nil {
		return nil, SourceDatabase, err
	}

	r.cache.SetSingle(ctx, id, record)
	return record, SourceDatabase, nil
}
