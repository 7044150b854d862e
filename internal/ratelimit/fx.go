package ratelimit

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"

	"github.com/smallbiznis/billable/internal/config"
)

// Module provides the shared redis client plus the limiter and locker
// built on it. Without REDIS_ADDR everything is nil and callers skip
// redis-backed behavior.
var Module = fx.Module("ratelimit",
	fx.Provide(func(cfg config.Config) *redis.Client {
		if cfg.RedisAddr == "" {
			return nil
		}
		return redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
	}),
	fx.Provide(func(client *redis.Client) *Locker {
		if client == nil {
			return nil
		}
		return NewLocker(client)
	}),
	fx.Provide(func(client *redis.Client) *TokenBucket {
		if client == nil {
			return nil
		}
		// 20 requests per second with a burst of 40 per caller.
		return NewTokenBucket(client, 20, 40)
	}),
)
