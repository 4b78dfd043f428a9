package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/jonwraymond/callcache/observe"
)

// memcachedMaxKey is memcached's own key length limit.
const memcachedMaxKey = 250

// MemcacheStore is a Store backed by memcached.
//
// memcached may evict entries under memory pressure; that is reported as an
// ordinary miss. The client does not take a context, so deadlines are
// governed by the client's Timeout.
type MemcacheStore struct {
	client *memcache.Client
	prefix string
	logger observe.Logger
}

// MemcacheOption configures a MemcacheStore.
type MemcacheOption func(*MemcacheStore)

// WithMemcachePrefix namespaces every key with prefix.
func WithMemcachePrefix(prefix string) MemcacheOption {
	return func(s *MemcacheStore) {
		s.prefix = prefix
	}
}

// WithMemcacheLogger sets the logger used for backend failures.
func WithMemcacheLogger(logger observe.Logger) MemcacheOption {
	return func(s *MemcacheStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewMemcacheStore creates a store over an existing client.
func NewMemcacheStore(client *memcache.Client, opts ...MemcacheOption) (*MemcacheStore, error) {
	if client == nil {
		return nil, ErrNilStore
	}
	s := &MemcacheStore{
		client: client,
		logger: observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get retrieves an entry. Returns (nil, false) on miss or backend failure.
func (s *MemcacheStore) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := s.Fetch(ctx, key)
	return value, err == nil
}

// Fetch retrieves an entry. A key memcached cannot hold is a miss; other
// client errors are logged and returned.
func (s *MemcacheStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	k, err := s.key(key)
	if err != nil {
		return nil, ErrMiss
	}
	item, err := s.client.Get(k)
	if err != nil {
		// Cache misses are expected, but other errors are logged.
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil, ErrMiss
		}
		s.logger.Warn(ctx, "memcache get failed",
			observe.Field{Key: "cache.key", Value: key},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return nil, fmt.Errorf("cache: memcache get: %w", err)
	}
	return item.Value, nil
}

// Put stores an entry with no expiration.
func (s *MemcacheStore) Put(_ context.Context, key string, value []byte) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	if err := s.client.Set(&memcache.Item{Key: k, Value: value}); err != nil {
		return fmt.Errorf("cache: memcache set: %w", err)
	}
	return nil
}

// Remove deletes an entry. Deleting a missing key is not an error.
func (s *MemcacheStore) Remove(_ context.Context, key string) error {
	k, err := s.key(key)
	if err != nil {
		return err
	}
	if err := s.client.Delete(k); err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return fmt.Errorf("cache: memcache delete: %w", err)
	}
	return nil
}

// Ping checks that every configured server is reachable.
func (s *MemcacheStore) Ping(_ context.Context) error {
	return s.client.Ping()
}

func (s *MemcacheStore) key(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	k := s.prefix + key
	if len(k) > memcachedMaxKey {
		return "", ErrKeyTooLong
	}
	return k, nil
}

// Ensure MemcacheStore implements Store
var _ Store = (*MemcacheStore)(nil)
