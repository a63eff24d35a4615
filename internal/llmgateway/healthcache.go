package llmgateway

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// HealthCache stores provider health state with a bounded staleness window,
// so probes don't hammer providers on every request. A cache miss means "no recent
// probe" rather than "unhealthy" — callers fall back to the live probe.
type HealthCache interface {
	Get(ctx context.Context, provider string) (healthy bool, ok bool)
	Set(ctx context.Context, provider string, healthy bool, ttl time.Duration)
}

type cacheEntry struct {
	healthy   bool
	expiresAt time.Time
}

// localCache is the in-process default: a single governd instance needs no
// external coordination to share health state between requests.
type localCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

func newLocalCache() *localCache {
	return &localCache{entries: make(map[string]cacheEntry)}
}

func (c *localCache) Get(ctx context.Context, provider string) (bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[provider]
	if !ok || time.Now().After(e.expiresAt) {
		return false, false
	}
	return e.healthy, true
}

func (c *localCache) Set(ctx context.Context, provider string, healthy bool, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[provider] = cacheEntry{healthy: healthy, expiresAt: time.Now().Add(ttl)}
}

// redisCache backs the health cache with Redis, for deployments running
// more than one governd process against a shared provider roster.
type redisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache builds a HealthCache backed by addr; used only when
// config.LLMConfig.RedisAddr is set.
func NewRedisCache(addr string) HealthCache {
	return &redisCache{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: "llmgateway:health:",
	}
}

func (c *redisCache) Get(ctx context.Context, provider string) (bool, bool) {
	val, err := c.client.Get(ctx, c.prefix+provider).Result()
	if err != nil {
		return false, false
	}
	return val == "1", true
}

func (c *redisCache) Set(ctx context.Context, provider string, healthy bool, ttl time.Duration) {
	val := "0"
	if healthy {
		val = "1"
	}
	c.client.Set(ctx, c.prefix+provider, val, ttl)
}
