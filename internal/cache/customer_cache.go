package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/milkseller/internal/milkapi"
	"go.uber.org/zap"
)

const (
	defaultCustomerTTL = 45 * time.Second
	redisKeyPrefix     = "milkseller:customer:"
)

// CustomerCache stores upstream customer profiles, subscription and rate history included.
// Misses and backend failures look the same to callers.
type CustomerCache interface {
	GetCustomer(ctx context.Context, userID string) (milkapi.User, bool)
	SetCustomer(ctx context.Context, userID string, user milkapi.User)
	InvalidateCustomer(ctx context.Context, userID string)
}

type memoryCustomerCache struct {
	users Cache[string, milkapi.User]
	ttl   time.Duration
}

// NewMemoryCustomerCache keeps profiles in process memory.
func NewMemoryCustomerCache(ttl time.Duration) CustomerCache {
	if ttl <= 0 {
		ttl = defaultCustomerTTL
	}
	return &memoryCustomerCache{
		users: NewTTLCache[string, milkapi.User](),
		ttl:   ttl,
	}
}

func (c *memoryCustomerCache) GetCustomer(_ context.Context, userID string) (milkapi.User, bool) {
	return c.users.Get(cacheKey(userID))
}

func (c *memoryCustomerCache) SetCustomer(_ context.Context, userID string, user milkapi.User) {
	if user.ID == "" {
		return
	}
	c.users.Set(cacheKey(userID), user, c.ttl)
}

func (c *memoryCustomerCache) InvalidateCustomer(_ context.Context, userID string) {
	c.users.Delete(cacheKey(userID))
}

type redisCustomerCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisCustomerCache shares profiles across replicas.
func NewRedisCustomerCache(client *redis.Client, ttl time.Duration, log *zap.Logger) CustomerCache {
	if ttl <= 0 {
		ttl = defaultCustomerTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &redisCustomerCache{client: client, ttl: ttl, log: log.Named("cache.customer")}
}

func (c *redisCustomerCache) GetCustomer(ctx context.Context, userID string) (milkapi.User, bool) {
	raw, err := c.client.Get(ctx, redisKeyPrefix+cacheKey(userID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("redis get failed", zap.Error(err))
		}
		return milkapi.User{}, false
	}
	var user milkapi.User
	if err := json.Unmarshal(raw, &user); err != nil {
		c.log.Warn("discarding undecodable cache entry", zap.Error(err))
		return milkapi.User{}, false
	}
	return user, true
}

func (c *redisCustomerCache) SetCustomer(ctx context.Context, userID string, user milkapi.User) {
	if user.ID == "" {
		return
	}
	raw, err := json.Marshal(user)
	if err != nil {
		c.log.Warn("encode cache entry", zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, redisKeyPrefix+cacheKey(userID), raw, c.ttl).Err(); err != nil {
		c.log.Warn("redis set failed", zap.Error(err))
	}
}

func (c *redisCustomerCache) InvalidateCustomer(ctx context.Context, userID string) {
	if err := c.client.Del(ctx, redisKeyPrefix+cacheKey(userID)).Err(); err != nil {
		c.log.Warn("redis del failed", zap.Error(err))
	}
}

func cacheKey(parts ...string) string {
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}
		values = append(values, strings.ToLower(trimmed))
	}
	return strings.Join(values, "|")
}
