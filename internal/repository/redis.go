package repository

import (
	"context"
	"fmt"
	"time"

	"clientbook/internal/config"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient builds a client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

// RedisSeenStore marks notification tags via SETNX so dedup survives process
// restarts.
type RedisSeenStore struct {
	client *redis.Client
}

func NewRedisSeenStore(client *redis.Client) *RedisSeenStore {
	return &RedisSeenStore{client: client}
}

func (s *RedisSeenStore) MarkOnce(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if s.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	ok, err := s.client.SetNX(ctx, "seen:"+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to mark key in redis: %w", err)
	}
	return ok, nil
}
