package cache

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"salesledger/internal/domain"
)

type RedisChannelCache struct {
	client *redis.Client
}

func NewRedisChannelCache(addr string, password string, db int) *RedisChannelCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	return &RedisChannelCache{client: client}
}

func (c *RedisChannelCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisChannelCache) Close() error {
	return c.client.Close()
}

func (c *RedisChannelCache) Get(ctx context.Context, key string) ([]domain.SalesChannel, bool, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var channels []domain.SalesChannel
	if err := json.Unmarshal([]byte(val), &channels); err != nil {
		return nil, false, err
	}
	return channels, true, nil
}

func (c *RedisChannelCache) Set(ctx context.Context, key string, channels []domain.SalesChannel, ttl time.Duration) error {
	payload, err := json.Marshal(channels)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}

func (c *RedisChannelCache) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}
