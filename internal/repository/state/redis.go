package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// defaultRedisPrefix namespaces keys when no prefix is configured.
const defaultRedisPrefix = "energy-sim:"

// RedisStore persists documents as Redis string values.
type RedisStore struct {
	// client is the go-redis client.
	client *redis.Client
	// prefix is prepended to every key.
	prefix string
}

var _ Store = (*RedisStore)(nil)

// OpenRedis connects to the redis:// URL and verifies the connection.
func OpenRedis(ctx context.Context, url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err = client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisStore(client, prefix), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}

	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

// Load returns the document saved under key.
func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("get state: %w", err)
	}

	return data, nil
}

// Save replaces the document saved under key. Documents never expire.
func (s *RedisStore) Save(ctx context.Context, key string, data []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}

	if err := s.client.Set(ctx, s.prefix+key, data, 0).Err(); err != nil {
		return fmt.Errorf("set state: %w", err)
	}

	return nil
}

// Close closes the client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
