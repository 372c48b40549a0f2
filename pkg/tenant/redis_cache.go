package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces tenant cache keys in a shared Redis database.
const DefaultRedisPrefix = "tenant:"

// RedisCache shares resolved tenants between every instance of the service,
// so an invalidation issued by one instance is observed by all of them.
// Redis failures degrade to cache misses; they are logged, never returned.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
	log    *slog.Logger
}

// NewRedisCache wraps client. The client stays owned by the caller.
func NewRedisCache(client redis.UniversalClient, prefix string, log *slog.Logger) *RedisCache {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &RedisCache{client: client, prefix: prefix, log: log}
}

func (c *RedisCache) Get(ctx context.Context, key string) (*Tenant, bool) {
	raw, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WarnContext(ctx, "tenant cache get failed", "key", key, "error", err)
		}
		return nil, false
	}

	t, err := decodeTenant(raw)
	if err != nil {
		c.log.WarnContext(ctx, "tenant cache entry is corrupt", "key", key, "error", err)
		c.Delete(ctx, key)
		return nil, false
	}
	return t, true
}

func (c *RedisCache) Set(ctx context.Context, key string, tenant *Tenant, ttl time.Duration) {
	if ttl <= 0 || tenant == nil {
		return
	}
	raw, err := json.Marshal(tenant)
	if err != nil {
		c.log.WarnContext(ctx, "tenant cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, c.prefix+key, raw, ttl).Err(); err != nil {
		c.log.WarnContext(ctx, "tenant cache set failed", "key", key, "error", err)
	}
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.log.WarnContext(ctx, "tenant cache delete failed", "key", key, "error", err)
	}
}

// Close is a no-op: the Redis client belongs to the caller.
func (c *RedisCache) Close() error { return nil }

func decodeTenant(raw []byte) (*Tenant, error) {
	var t Tenant
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, err
	}
	if t.Slug == "" || !t.Status.Valid() {
		return nil, errors.New("incomplete tenant record")
	}
	return &t, nil
}
