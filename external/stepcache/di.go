package stepcache

import (
	"context"
	"fmt"
	"time"

	"github.com/imcaffiene/webinar-platform/internal/config"
	"github.com/imcaffiene/webinar-platform/internal/repository"
	"github.com/imcaffiene/webinar-platform/internal/stepcache"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do/v2"
)

const redisPingTimeout = 5 * time.Second

func RegisterDI(injector do.Injector) {
	do.Provide(injector, func(i do.Injector) (stepcache.Cache, error) {
		c := do.MustInvoke[*config.Config](i)
		if c.RedisURL == "" {
			return NewStoreCache(do.MustInvoke[repository.Repository](i)), nil
		}
		opts, err := redis.ParseURL(c.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parsing REDIS_URL: %w", err)
		}
		client := redis.NewClient(opts)
		ctx, cancel := context.WithTimeout(context.Background(), redisPingTimeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("testing redis connection: %w", err)
		}
		return NewRedisCache(client, c.StepCacheTTL), nil
	})
}
