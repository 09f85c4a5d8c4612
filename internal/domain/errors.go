// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates malformed input, caught before any store or cache
// interaction.
var ErrValidation = errors.New("validation failed")

// ErrConflict indicates a constraint violation such as a duplicate email.
var ErrConflict = errors.New("conflict: resource already exists")

// ErrCacheUnavailable indicates a cache store I/O failure. Callers treat it
// as a miss; it is never surfaced past the caching layer.
var ErrCacheUnavailable = errors.New("cache unavailable")
