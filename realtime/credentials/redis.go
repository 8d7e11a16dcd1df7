package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the token under a single Redis key, letting a login
// service hand credentials to long-running clients.
type RedisStore struct {
	client redis.UniversalClient
	key    string
}

// NewRedisStore returns a store reading key from client.
func NewRedisStore(client redis.UniversalClient, key string) *RedisStore {
	return &RedisStore{client: client, key: key}
}

// Token implements realtime.CredentialStore.
func (s *RedisStore) Token(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) || (err == nil && token == "") {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("redis get %s: %w", s.key, err)
	}
	return token, nil
}

// Store saves token with the given ttl. Zero ttl keeps it until cleared.
func (s *RedisStore) Store(ctx context.Context, token string, ttl time.Duration) error {
	return s.client.Set(ctx, s.key, token, ttl).Err()
}

// Clear removes the token.
func (s *RedisStore) Clear(ctx context.Context) error {
	return s.client.Del(ctx, s.key).Err()
}
