// Package redis provides a redis-backed storage backend for authclient,
// useful when the session must survive process restarts on hosts without a
// writable filesystem, or be shared by replicas of the same logical client.
package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Storage stores values in redis. Writes go straight through; Flush is a
// no-op.
type Storage struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// StorageOption configures a Storage.
type StorageOption func(*Storage)

// WithPrefix namespaces every key with the given prefix.
func WithPrefix(prefix string) StorageOption {
	return func(s *Storage) { s.prefix = prefix }
}

// WithTTL sets an expiry on stored values. Zero (the default) stores them
// without expiry; the client removes stale entries itself during recovery.
func WithTTL(ttl time.Duration) StorageOption {
	return func(s *Storage) { s.ttl = ttl }
}

// NewStorage creates a redis-backed storage on an existing client.
func NewStorage(client *redis.Client, opts ...StorageOption) *Storage {
	s := &Storage{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Storage) key(key string) string {
	return s.prefix + key
}

// Get returns the value stored under key, or ok=false when absent.
func (s *Storage) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, s.key(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set stores value under key.
func (s *Storage) Set(ctx context.Context, key, value string) error {
	return s.client.Set(ctx, s.key(key), value, s.ttl).Err()
}

// Remove deletes key. Removing an absent key is not an error.
func (s *Storage) Remove(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

// Flush is a no-op; writes go straight through.
func (s *Storage) Flush(ctx context.Context) error {
	return nil
}
