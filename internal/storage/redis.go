package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisOpTimeout = 3 * time.Second

// RedisStorage keeps keys in Redis, prefixed by a namespace so several
// profiles can share one server.
type RedisStorage struct {
	client    *redis.Client
	namespace string
}

// NewRedisStorage builds a Redis backed store. An empty namespace uses "storefront".
func NewRedisStorage(addr, password, namespace string) *RedisStorage {
	if namespace == "" {
		namespace = "storefront"
	}
	return &RedisStorage{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		namespace: namespace,
	}
}

func (s *RedisStorage) key(k string) string {
	return s.namespace + ":" + k
}

func (s *RedisStorage) Get(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	val, err := s.client.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get %q: %w", key, err)
	}
	return val, true, nil
}

func (s *RedisStorage) Set(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.client.Set(ctx, s.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	return nil
}

func (s *RedisStorage) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	full := make([]string, 0, len(keys))
	for _, k := range keys {
		full = append(full, s.key(k))
	}

	if err := s.client.Del(ctx, full...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *RedisStorage) Close() error {
	return s.client.Close()
}
