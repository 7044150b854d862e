package ratelimit

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// bucketScript refills the bucket by elapsed time, then takes one token.
// Returns 1 when the request is allowed.
var bucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local data = redis.call("HMGET", key, "tokens", "ts")
local tokens = tonumber(data[1])
local ts = tonumber(data[2])
if tokens == nil then
	tokens = burst
	ts = now
end

local elapsed = math.max(0, now - ts)
tokens = math.min(burst, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end

redis.call("HMSET", key, "tokens", tokens, "ts", now)
redis.call("EXPIRE", key, math.ceil(burst / rate) * 2)
return allowed
`)

// TokenBucket allows rate requests per second with a burst ceiling,
// keyed per caller.
type TokenBucket struct {
	client *redis.Client
	rate   float64
	burst  float64
}

func NewTokenBucket(client *redis.Client, rate, burst float64) *TokenBucket {
	return &TokenBucket{client: client, rate: rate, burst: burst}
}

// Allow reports whether the keyed caller may proceed. Redis failures fail
// open so a cache outage does not take the API down.
func (b *TokenBucket) Allow(ctx context.Context, key string) bool {
	now := float64(time.Now().UnixMilli()) / 1000.0
	allowed, err := bucketScript.Run(ctx, b.client,
		[]string{"ratelimit:" + key}, b.rate, b.burst, now,
	).Int()
	if err != nil {
		return true
	}
	return allowed == 1
}
