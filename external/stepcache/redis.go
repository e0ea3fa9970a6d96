package stepcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/imcaffiene/webinar-platform/internal/stepcache"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "pipeline:step:"

type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (c *RedisCache) Put(ctx context.Context, meetingID, step string, payload []byte) error {
	if err := c.client.Set(ctx, cacheKey(meetingID, step), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("caching %s result for meeting %s: %w", step, meetingID, err)
	}
	return nil
}

func (c *RedisCache) Get(ctx context.Context, meetingID, step string) ([]byte, error) {
	b, err := c.client.Get(ctx, cacheKey(meetingID, step)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, stepcache.ErrMiss
		}
		return nil, fmt.Errorf("reading %s result for meeting %s: %w", step, meetingID, err)
	}
	return b, nil
}

func (c *RedisCache) Shutdown() error {
	return c.client.Close()
}

func cacheKey(meetingID, step string) string {
	return keyPrefix + meetingID + ":" + step
}
