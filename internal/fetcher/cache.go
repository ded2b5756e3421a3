package fetcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// cacheKeyPrefix namespaces SEOScan entries in a shared cache.
const cacheKeyPrefix = "seoscan:page:"

// Cache stores serialized responses by key.
type Cache interface {
	// Get returns the cached value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CachingFetcher serves successful responses from a Cache and stores fresh
// ones. Errors are never cached, and a failing cache only costs a refetch.
type CachingFetcher struct {
	next   Fetcher
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachingFetcher wraps next with cache.
func NewCachingFetcher(next Fetcher, cache Cache, ttl time.Duration, logger *slog.Logger) *CachingFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingFetcher{next: next, cache: cache, ttl: ttl, logger: logger}
}

// Fetch implements Fetcher.
func (f *CachingFetcher) Fetch(ctx context.Context, url string) (*Response, error) {
	key := CacheKey(url)

	data, found, err := f.cache.Get(ctx, key)
	switch {
	case err != nil:
		f.logger.Warn("cache lookup failed", "url", url, "error", err)
	case found:
		var resp Response
		if err := json.Unmarshal(data, &resp); err == nil {
			resp.Cached = true
			return &resp, nil
		}
		f.logger.Warn("discarding corrupt cache entry", "url", url)
	}

	resp, err := f.next.Fetch(ctx, url)
	if err != nil {
		return resp, err
	}

	encoded, err := json.Marshal(resp)
	if err != nil {
		return resp, nil
	}
	if err := f.cache.Set(ctx, key, encoded, f.ttl); err != nil {
		f.logger.Warn("cache store failed", "url", url, "error", err)
	}
	return resp, nil
}

// CacheKey returns the cache key for a URL.
func CacheKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return cacheKeyPrefix + hex.EncodeToString(sum[:])
}

// RedisCache implements Cache on a Redis server.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to Redis at addr and verifies the connection.
func NewRedisCache(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisCache{client: client}, nil
}

// Get implements Cache.
func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Set implements Cache.
func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Close closes the Redis connection.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
