// Package ratelimit provides redis backed request limiting and a simple
// distributed lock for work that must not run on two replicas at once.
package ratelimit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only when the caller still holds it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Locker struct {
	client *redis.Client
}

func NewLocker(client *redis.Client) *Locker {
	return &Locker{client: client}
}

// Acquire takes the named lock for ttl. The returned token must be passed
// to Release; an empty token means the lock is held elsewhere.
func (l *Locker) Acquire(ctx context.Context, name string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, "lock:"+name, token, ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", nil
	}
	return token, nil
}

func (l *Locker) Release(ctx context.Context, name, token string) error {
	return releaseScript.Run(ctx, l.client, []string{"lock:" + name}, token).Err()
}
