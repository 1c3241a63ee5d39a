package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/solarcapture/pkg/config"
)

// Client wraps the go-redis client used for the summary response cache.
// A disabled client turns every cache call into a no-op.
type Client struct {
	rdb       *redis.Client
	enabled   bool
	namespace string
}

const pingTimeout = 5 * time.Second

// New connects to Redis when enabled in cfg
func New(cfg *config.Config) (*Client, error) {
	namespace := cfg.Redis.KeyPrefix
	if namespace == "" {
		namespace = config.DefaultRedisKeyPrefix
	}

	if !cfg.Redis.Enabled {
		return &Client{namespace: namespace}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	c := &Client{rdb: rdb, enabled: true, namespace: namespace}
	if err := c.Ping(context.Background()); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return c, nil
}

// NewFromRedis wraps an existing go-redis client under the given namespace
func NewFromRedis(rdb *redis.Client, namespace string) *Client {
	if namespace == "" {
		namespace = config.DefaultRedisKeyPrefix
	}
	return &Client{rdb: rdb, enabled: rdb != nil, namespace: namespace}
}

// SummaryCache returns the cache for read API summary responses
func (c *Client) SummaryCache() *Cache {
	return NewCache(c, c.namespace)
}

// Namespace returns the key prefix of this client's caches
func (c *Client) Namespace() string {
	return c.namespace
}

// Ping checks the connection; a disabled client always succeeds
func (c *Client) Ping(ctx context.Context) error {
	if !c.enabled {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return c.rdb.Ping(ctx).Err()
}

// Close closes the Redis connection
func (c *Client) Close() error {
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}

// Enabled returns whether Redis is enabled
func (c *Client) Enabled() bool {
	return c.enabled
}

// Redis returns the underlying go-redis client
func (c *Client) Redis() *redis.Client {
	return c.rdb
}
