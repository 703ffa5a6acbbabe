package blob

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const urlCachePrefix = "blob:url:"

// RedisURLCache stores signed URLs in Redis with a TTL.
type RedisURLCache struct {
	client redis.Cmdable
}

func NewRedisURLCache(client redis.Cmdable) *RedisURLCache {
	return &RedisURLCache{client: client}
}

func (c *RedisURLCache) Get(ctx context.Context, key string) (string, bool, error) {
	url, err := c.client.Get(ctx, urlCachePrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return url, true, nil
}

func (c *RedisURLCache) Set(ctx context.Context, key, url string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return c.client.Set(ctx, urlCachePrefix+key, url, ttl).Err()
}

func (c *RedisURLCache) Invalidate(ctx context.Context, key string) error {
	return c.client.Del(ctx, urlCachePrefix+key).Err()
}
