package cache

import (
	"context"
	"errors"
	"strings"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilStore           = errors.New("cache: store is nil")
	ErrInvalidKey         = errors.New("cache: key is invalid")
	ErrKeyTooLong         = errors.New("cache: key exceeds max length")
	ErrUnsupportedRequest = errors.New("cache: request cannot be keyed")
	ErrNotCacheable       = errors.New("cache: request is not cacheable")
	ErrMiss               = errors.New("cache: entry not found")
)

// Store maps cache keys to stored response entries.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: methods should honor cancellation/deadlines where applicable.
// - Errors: Get never errors; backend failures are reported as a miss.
// - Ownership: Put overwrites any previous entry (last write wins).
type Store interface {
	// Get retrieves an entry. Returns (nil, false) on miss.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Put stores an entry, replacing any existing one.
	Put(ctx context.Context, key string, value []byte) error

	// Remove deletes an entry. Idempotent - no error on miss.
	Remove(ctx context.Context, key string) error
}

// Fetcher is implemented by stores that can tell a miss from a backend
// failure. Fetch returns ErrMiss when key holds no entry.
type Fetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if key == "" || strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	// memcached and most line protocols reject control whitespace
	if strings.ContainsAny(key, "\n\r\t ") {
		return ErrInvalidKey
	}
	return nil
}
