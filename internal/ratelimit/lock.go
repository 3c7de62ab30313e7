package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

var (
	errNoRedis  = errors.New("ratelimit: redis client not configured")
	errEmptyKey = errors.New("ratelimit: empty key")
)

// Deletes the key only while it still carries the caller's token. A holder
// whose TTL lapsed must not free a lock someone else has since taken.
var releaseIfOwner = redis.NewScript(`
local owner = redis.call("GET", KEYS[1])
if owner and owner == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// periodLock is a SETNX mutex with an expiry, one key per customer period.
type periodLock struct {
	client *redis.Client
	ttl    time.Duration
}

func newPeriodLock(client *redis.Client, ttl time.Duration) *periodLock {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &periodLock{client: client, ttl: ttl}
}

// acquire returns the owner token when the lock was taken.
func (l *periodLock) acquire(ctx context.Context, key string) (string, bool, error) {
	if l == nil {
		return "", false, errNoRedis
	}
	if key == "" {
		return "", false, errEmptyKey
	}

	owner := uuid.NewString()
	taken, err := l.client.SetNX(ctx, key, owner, l.ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !taken {
		return "", false, nil
	}
	return owner, true, nil
}

func (l *periodLock) release(ctx context.Context, key, owner string) error {
	if l == nil || key == "" || owner == "" {
		return nil
	}
	return releaseIfOwner.Run(ctx, l.client, []string{key}, owner).Err()
}
