package ratelimit

import (
	"context"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/milkseller/internal/config"
)

const (
	keyUpstreamCaller = "milkseller:ratelimit:upstream:%s"
	keySnapshotLock   = "milkseller:lock:snapshot:%s:%s:%s"
)

// UpstreamLimiter throttles callers of upstream-backed routes and serializes
// snapshot recomputation per customer and period. A nil or disabled limiter
// allows everything.
type UpstreamLimiter struct {
	enabled bool

	bucket *callerBucket
	lock   *periodLock
}

func NewUpstreamLimiter(cfg config.Config, client *redis.Client) (*UpstreamLimiter, error) {
	if client == nil {
		return nil, nil
	}
	limitCfg := cfg.RateLimit
	if limitCfg.UpstreamRate <= 0 || limitCfg.UpstreamBurst <= 0 {
		return nil, fmt.Errorf("upstream rate limit must be positive, got rate=%g burst=%d", limitCfg.UpstreamRate, limitCfg.UpstreamBurst)
	}
	return &UpstreamLimiter{
		enabled: true,
		bucket:  newCallerBucket(client, limitCfg.UpstreamRate, limitCfg.UpstreamBurst),
		lock:    newPeriodLock(client, limitCfg.SnapshotLockTTL),
	}, nil
}

func (l *UpstreamLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// AllowCaller takes one token from the caller's bucket.
func (l *UpstreamLimiter) AllowCaller(ctx context.Context, callerID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.take(ctx, fmt.Sprintf(keyUpstreamCaller, strings.TrimSpace(callerID)))
}

func (l *UpstreamLimiter) TryLockSnapshot(ctx context.Context, userID, start, end string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	return l.lock.acquire(ctx, snapshotLockKey(userID, start, end))
}

func (l *UpstreamLimiter) ReleaseSnapshot(ctx context.Context, userID, start, end, token string) error {
	if !l.Enabled() {
		return nil
	}
	return l.lock.release(ctx, snapshotLockKey(userID, start, end), token)
}

func snapshotLockKey(userID, start, end string) string {
	return fmt.Sprintf(keySnapshotLock, strings.TrimSpace(userID), start, end)
}
