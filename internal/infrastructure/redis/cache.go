package redis

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/avatarctic/car-marketplace/internal/core/ports"
)

// scanBatch is the COUNT hint passed to SCAN.
const scanBatch = 200

// RedisCache implements ports.RemoteCache using a Redis client.
type RedisCache struct {
	r redis.UniversalClient
	// optional key prefix to namespace entries
	prefix string
}

var _ ports.RemoteCache = (*RedisCache)(nil)

// NewRedisCache creates a new Redis-backed remote cache.
func NewRedisCache(r redis.UniversalClient, prefix string) *RedisCache {
	return &RedisCache{r: r, prefix: prefix}
}

func (c *RedisCache) namespaced(key string) string {
	if c.prefix == "" {
		return key
	}
	return c.prefix + ":" + key
}

func (c *RedisCache) stripNamespace(key string) string {
	if c.prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, c.prefix+":")
}

// Get implements RemoteCache.Get.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.r.Get(ctx, c.namespaced(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

// Set implements RemoteCache.Set.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.r.Set(ctx, c.namespaced(key), value, ttl).Err()
}

// Keys walks the keyspace with SCAN rather than KEYS so large databases are
// not blocked. Returned keys have the namespace prefix removed.
func (c *RedisCache) Keys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := c.r.Scan(ctx, 0, c.namespaced(pattern), scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, c.stripNamespace(iter.Val()))
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return keys, nil
}

// Delete implements RemoteCache.Delete.
func (c *RedisCache) Delete(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	ns := make([]string, len(keys))
	for i, k := range keys {
		ns[i] = c.namespaced(k)
	}
	return c.r.Del(ctx, ns...).Result()
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.r.Ping(ctx).Err()
}

func (c *RedisCache) Info(ctx context.Context, section string) (string, error) {
	return c.r.Info(ctx, section).Result()
}

func (c *RedisCache) Close() error {
	return c.r.Close()
}
