package ratelimit

import (
	"context"
	"errors"
	"math"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Refills at ARGV[1] tokens per second up to ARGV[2], spends one token and
// reports {allowed, whole tokens left, ms until the next token}. Redis TIME is
// the clock so replicas agree.
var takeToken = redis.NewScript(`
local per_sec = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local expire_ms = tonumber(ARGV[3])

local t = redis.call("TIME")
local now_ms = t[1] * 1000 + math.floor(t[2] / 1000)

local level = tonumber(redis.call("HGET", KEYS[1], "level"))
local seen = tonumber(redis.call("HGET", KEYS[1], "seen"))
if level == nil or seen == nil then
  level = capacity
else
  local elapsed = math.max(0, now_ms - seen)
  level = math.min(capacity, level + elapsed * per_sec / 1000)
end

local allowed = 0
local wait_ms = 0
if level >= 1 then
  allowed = 1
  level = level - 1
else
  wait_ms = math.ceil((1 - level) * 1000 / per_sec)
end

redis.call("HSET", KEYS[1], "level", tostring(level), "seen", now_ms)
redis.call("PEXPIRE", KEYS[1], expire_ms)
return {allowed, math.floor(level), wait_ms}
`)

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// callerBucket is a Redis-backed token bucket keyed by caller.
type callerBucket struct {
	client  *redis.Client
	perSec  float64
	burst   int
	expires time.Duration
	now     func() time.Time
}

func newCallerBucket(client *redis.Client, perSec float64, burst int) *callerBucket {
	if client == nil {
		return nil
	}
	return &callerBucket{
		client:  client,
		perSec:  perSec,
		burst:   burst,
		expires: bucketExpiry(perSec, burst),
		now:     time.Now,
	}
}

func (b *callerBucket) take(ctx context.Context, key string) (*RateLimitResult, error) {
	if b == nil {
		return nil, errNoRedis
	}
	if key == "" {
		return nil, errEmptyKey
	}

	reply, err := takeToken.Run(ctx, b.client, []string{key}, b.perSec, b.burst, b.expires.Milliseconds()).Int64Slice()
	if err != nil {
		return nil, err
	}
	if len(reply) != 3 {
		return nil, errors.New("ratelimit: unexpected bucket reply")
	}

	wait := time.Duration(reply[2]) * time.Millisecond
	return &RateLimitResult{
		Allowed:    reply[0] == 1,
		Limit:      b.burst,
		Remaining:  int(reply[1]),
		ResetTime:  b.now().Add(wait),
		RetryAfter: wait,
	}, nil
}

// bucketExpiry keeps an idle bucket around for twice its full refill time.
func bucketExpiry(perSec float64, burst int) time.Duration {
	if perSec <= 0 || burst <= 0 {
		return time.Second
	}
	secs := math.Max(1, math.Ceil(2*float64(burst)/perSec))
	return time.Duration(secs) * time.Second
}
