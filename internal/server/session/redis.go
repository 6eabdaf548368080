package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/elegance/identity-provider/internal/shared"
)

const keyPrefix = "session:"

// RedisStore keeps each session as a redis hash with a sliding expiry, so
// sessions survive server restarts and are shared across instances.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Set(ctx context.Context, sid, key, value string) error {
	k := keyPrefix + sid
	if err := s.client.HSet(ctx, k, key, value).Err(); err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	if err := s.client.Expire(ctx, k, s.ttl).Err(); err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, sid, key string) (string, error) {
	v, err := s.client.HGet(ctx, keyPrefix+sid, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", shared.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("session store: %w", err)
	}
	return v, nil
}

func (s *RedisStore) Unset(ctx context.Context, sid, key string) error {
	if err := s.client.HDel(ctx, keyPrefix+sid, key).Err(); err != nil {
		return fmt.Errorf("session store: %w", err)
	}
	return nil
}
