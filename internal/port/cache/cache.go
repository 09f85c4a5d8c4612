// Package cache defines the port interface for key-value caching.
package cache

import (
	"context"
	"time"
)

// Cache is the port interface for key-value caching with per-entry
// expiration. All operations are idempotent and safe for concurrent use.
//
// Implementations report I/O failures as errors; callers in the caching
// service layer treat any error as a miss (reads) or a no-op (writes) so
// that cache health never fails a business operation.
type Cache interface {
	// Get retrieves a value by key. The boolean indicates a cache hit.
	// An expired entry is never returned.
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)

	// Set stores a value under key with the given TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache. Deleting a missing key is
	// not an error.
	Delete(ctx context.Context, key string) error

	// DeleteByPrefix removes every key starting with prefix. Used for
	// listing invalidation sweeps.
	DeleteByPrefix(ctx context.Context, prefix string) error
}
