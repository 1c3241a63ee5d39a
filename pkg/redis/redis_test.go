package redis

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/solarcapture/pkg/config"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewFromRedis(rdb, "test").SummaryCache(), mr
}

func TestNewClient_Disabled(t *testing.T) {
	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, err := New(cfg)
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.Equal(t, "solarcapture", client.Namespace())
	assert.NoError(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())
}

func TestNewClient_UsesConfiguredNamespace(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, _ := strings.Cut(mr.Addr(), ":")

	client, err := New(&config.Config{Redis: config.RedisConfig{
		Host:      host,
		Port:      port,
		Enabled:   true,
		KeyPrefix: "capture-staging",
	}})
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Ping(ctx))
	require.NoError(t, client.SummaryCache().Set(ctx, TotalKey(), 1, time.Minute))
	assert.True(t, mr.Exists("capture-staging:cache:summary:total"))
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	host, port, _ := strings.Cut(mr.Addr(), ":")
	mr.Close()

	_, err := New(&config.Config{Redis: config.RedisConfig{Host: host, Port: port, Enabled: true}})
	assert.Error(t, err)
}

func TestCache_Disabled(t *testing.T) {
	client, _ := New(&config.Config{})
	cache := NewCache(client, "test")
	ctx := context.Background()

	// When Redis is disabled, cache operations should be no-ops
	var result string
	found, err := cache.Get(ctx, "key", &result)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, cache.Set(ctx, "key", "v", TTLShort))
	n, err := cache.Flush(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCache_SetGet(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	type row struct {
		Zone  string  `json:"zone"`
		Price float64 `json:"price"`
	}

	require.NoError(t, cache.Set(ctx, "k", []row{{"DE-LU", 42.5}}, time.Minute))
	assert.True(t, mr.Exists("test:cache:k"))

	var got []row
	found, err := cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, []row{{"DE-LU", 42.5}}, got)

	mr.FastForward(2 * time.Minute)
	found, err = cache.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestCache_GetOrSet(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	calls := 0
	load := func() (interface{}, error) {
		calls++
		return map[string]int{"n": 7}, nil
	}

	for i := 0; i < 3; i++ {
		var got map[string]int
		require.NoError(t, cache.GetOrSet(ctx, "lazy", &got, time.Minute, load))
		assert.Equal(t, 7, got["n"])
	}
	assert.Equal(t, 1, calls)
}

func TestCache_Flush(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, TotalKey(), 1, time.Minute))
	require.NoError(t, cache.Set(ctx, MonthlyKey("FR"), 2, time.Minute))
	require.NoError(t, mr.Set("other:key", "keep"))

	n, err := cache.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, mr.Exists("other:key"))
	assert.False(t, mr.Exists("test:cache:summary:total"))
}

func TestCacheKeys(t *testing.T) {
	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"total", TotalKey(), "summary:total"},
		{"yearly", YearlyKey(), "summary:yearly"},
		{"monthly zone", MonthlyKey("DE-LU"), "summary:monthly:DE-LU"},
		{"monthly all", MonthlyKey(""), "summary:monthly:all"},
		{"daily", DailyKey("FR", 4), "summary:daily:FR:4"},
		{"daily all", DailyKey("", 0), "summary:daily:all:0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}
