package cache

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/milkseller/internal/config"
	"github.com/smallbiznis/milkseller/internal/milkapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestTTLCache_Expiry validates lazy expiry against the injected clock.
func TestTTLCache_Expiry(t *testing.T) {
	now := time.Date(2024, 9, 1, 8, 0, 0, 0, time.UTC)
	c := newTTLCache[string, int](func() time.Time { return now })

	c.Set("a", 1, time.Minute)
	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Empty(t, c.items)
}

func TestTTLCache_NonPositiveTTLIsIgnored(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set("a", 1, 0)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestTTLCache_Delete(t *testing.T) {
	c := NewTTLCache[string, string]()
	c.Set("k", "v", time.Hour)
	c.Delete("k")
	_, ok := c.Get("k")
	assert.False(t, ok)
}

// TestMemoryCustomerCache validates key normalization and invalidation.
func TestMemoryCustomerCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCustomerCache(time.Minute)

	c.SetCustomer(ctx, "42", milkapi.User{})
	_, ok := c.GetCustomer(ctx, "42")
	assert.False(t, ok, "users without id are not cached")

	c.SetCustomer(ctx, " 42 ", milkapi.User{ID: "42", FullName: "Asha"})
	user, ok := c.GetCustomer(ctx, "42")
	require.True(t, ok)
	assert.Equal(t, "Asha", user.FullName)

	c.InvalidateCustomer(ctx, "42")
	_, ok = c.GetCustomer(ctx, "42")
	assert.False(t, ok)
}

func TestNewCustomerCache_WithoutRedis(t *testing.T) {
	c := NewCustomerCache(config.Config{CacheTTL: time.Second}, nil, zap.NewNop())
	_, isMemory := c.(*memoryCustomerCache)
	assert.True(t, isMemory)
}
