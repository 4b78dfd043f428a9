package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/jonwraymond/callcache/observe"
)

// RedisStore is a Store backed by Redis.
//
// Entries are written without expiry. A redis.Nil reply is a plain miss;
// any other Get failure is logged and also reported as a miss so a broken
// backend degrades to network-only behavior.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	logger observe.Logger
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisPrefix namespaces every key with prefix.
func WithRedisPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// WithRedisLogger sets the logger used for backend failures.
func WithRedisLogger(logger observe.Logger) RedisOption {
	return func(s *RedisStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewRedisStore creates a store over an existing client. The caller keeps
// ownership of the client and must close it.
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) (*RedisStore, error) {
	if client == nil {
		return nil, ErrNilStore
	}
	s := &RedisStore{
		client: client,
		logger: observe.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Get retrieves an entry. Returns (nil, false) on miss or backend failure.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool) {
	value, err := s.Fetch(ctx, key)
	return value, err == nil
}

// Fetch retrieves an entry, returning ErrMiss on redis.Nil. Other client
// errors are logged and returned.
func (s *RedisStore) Fetch(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		s.logger.Warn(ctx, "redis get failed",
			observe.Field{Key: "cache.key", Value: key},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return nil, fmt.Errorf("cache: redis get: %w", err)
	}
	return value, nil
}

// Put stores an entry without expiry.
func (s *RedisStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("cache: redis set: %w", err)
	}
	return nil
}

// Remove deletes an entry. Deleting a missing key is not an error.
func (s *RedisStore) Remove(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("cache: redis del: %w", err)
	}
	return nil
}

// Ping checks connectivity to the Redis server.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Ensure RedisStore implements Store
var _ Store = (*RedisStore)(nil)
