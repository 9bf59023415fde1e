package cache

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"graminstore-backend/internal/logger"

	"github.com/redis/go-redis/v9"
)

// memoryLimit bounds the in-memory fallback; expired entries are swept
// once the map grows past it.
const memoryLimit = 1000

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is a small TTL memoization layer backed by Redis when
// REDIS_ADDRESS is reachable, with an in-process map as fallback.
type Cache struct {
	rdb *redis.Client

	mu  sync.Mutex
	mem map[string]memoryEntry
}

// New builds a cache. Redis is optional: if the address is unset or the
// ping fails, the cache runs memory-only.
func New() *Cache {
	c := &Cache{mem: make(map[string]memoryEntry)}

	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		return c
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Get().WithError(err).Warn("redis unreachable, cache falls back to memory")
		return c
	}

	c.rdb = rdb
	logger.Get().WithField("addr", addr).Info("connected to redis")
	return c
}

// Get loads a cached value into dest. Returns false on miss or expiry.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	if c.rdb != nil {
		val, err := c.rdb.Get(ctx, key).Result()
		if err == nil {
			return json.Unmarshal([]byte(val), dest) == nil
		}
		if err != redis.Nil {
			logger.Get().WithError(err).Warn("redis get failed")
		}
	}

	c.mu.Lock()
	entry, ok := c.mem[key]
	if ok && time.Now().After(entry.expiresAt) {
		delete(c.mem, key)
		ok = false
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	return json.Unmarshal(entry.value, dest) == nil
}

// Set stores a value under key for ttl.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}

	if c.rdb != nil {
		if err := c.rdb.Set(ctx, key, raw, ttl).Err(); err == nil {
			return
		}
		logger.Get().Warn("redis set failed, falling back to memory")
	}

	c.mu.Lock()
	c.mem[key] = memoryEntry{value: raw, expiresAt: time.Now().Add(ttl)}
	if len(c.mem) > memoryLimit {
		now := time.Now()
		for k, e := range c.mem {
			if now.After(e.expiresAt) {
				delete(c.mem, k)
			}
		}
	}
	c.mu.Unlock()
}

// Invalidate removes keys from both layers.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) {
	if c.rdb != nil {
		c.rdb.Del(ctx, keys...)
	}
	c.mu.Lock()
	for _, k := range keys {
		delete(c.mem, k)
	}
	c.mu.Unlock()
}
