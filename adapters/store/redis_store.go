package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wrenlabs/popsign/ports"
)

// RedisStore is a Redis implementation of the Store interface for hosts that
// share a session across processes.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis store scoped by the given namespace
// prefix.
func NewRedisStore(client *redis.Client, prefix string) ports.Store {
	return &RedisStore{
		client: client,
		prefix: prefix,
	}
}

func (s *RedisStore) key() string {
	return s.prefix + "session"
}

// Load retrieves the session record.
func (s *RedisStore) Load(ctx context.Context) (string, error) {
	value, err := s.client.Get(ctx, s.key()).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ports.ErrNotFound
		}
		return "", fmt.Errorf("failed to load session record: %w", err)
	}
	return value, nil
}

// Save stores the session record with its time-to-live, overwriting any
// previous one.
func (s *RedisStore) Save(ctx context.Context, record string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(), record, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session record: %w", err)
	}
	return nil
}

// Clear removes the session record.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key()).Err(); err != nil {
		return fmt.Errorf("failed to clear session record: %w", err)
	}
	return nil
}
