package cache

import (
	"context"
	"encoding/json"
	"time"

	"meetsync/core/config"
	"meetsync/core/logger"

	"github.com/redis/go-redis/v9"
)

// Cache wraps the shared Redis client
type Cache struct {
	client *redis.Client
}

func InitCache(cfg config.RedisConfig) (Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", "addr", cfg.Addr, "error", err)
		return Cache{}, err
	}

	logger.Info("Redis initialized", "addr", cfg.Addr, "db", cfg.DB)
	return Cache{client: client}, nil
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

// GetJSON reads a cached value into dest, reporting whether the key existed
func (c *Cache) GetJSON(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, err
	}
	return true, nil
}

// SetJSON stores a JSON-encoded value with a TTL
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, raw, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}
