package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

// Ensure ResponseCache implements the interface.
var _ driving.CacheService = (*ResponseCache)(nil)

const (
	cacheNamespaceKey  = "cache:namespace"
	defaultCachePrefix = "answer:"
)

// ResponseCache stores answers under namespaced, content-addressed keys.
// Bumping the namespace makes every existing key unreachable at once.
type ResponseCache struct {
	kv     driven.KVStore
	prefix string
}

// NewResponseCache creates a response cache over kv.
func NewResponseCache(kv driven.KVStore) *ResponseCache {
	return &ResponseCache{kv: kv, prefix: defaultCachePrefix}
}

// CurrentNamespace returns the active namespace, 1 when none is stored.
func (c *ResponseCache) CurrentNamespace(ctx context.Context) int64 {
	data, err := c.kv.Get(ctx, cacheNamespaceKey)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Failed to read cache namespace: %v", err)
		}
		return 1
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// BumpNamespace advances the namespace and returns the new value.
// Concurrent bumps may collapse into one; that only delays invalidation.
func (c *ResponseCache) BumpNamespace(ctx context.Context) (int64, error) {
	if _, err := c.kv.SetNX(ctx, cacheNamespaceKey, []byte("1"), 0); err != nil {
		return 0, fmt.Errorf("init cache namespace: %w", err)
	}
	n, err := c.kv.Incr(ctx, cacheNamespaceKey, 0)
	if err != nil {
		return 0, fmt.Errorf("bump cache namespace: %w", err)
	}
	logger.Debug("Cache namespace bumped to %d", n)
	return n, nil
}

// Key computes the cache key for a normalized query under settings.
func (c *ResponseCache) Key(ctx context.Context, settings domain.Settings, normalized string) string {
	ns := c.CurrentNamespace(ctx)
	material := fmt.Sprintf("%s|%d|%d|%s", settings.Model, settings.MaxPosts, settings.ContentLength, normalized)
	sum := sha256.Sum256([]byte(material))
	return c.prefix + "ns" + strconv.FormatInt(ns, 10) + "_" + hex.EncodeToString(sum[:])
}

// Lookup returns the answer stored under key.
// A corrupt entry is deleted and reported as a miss.
func (c *ResponseCache) Lookup(ctx context.Context, key string) (*domain.CachedAnswer, bool) {
	data, err := c.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Cache read failed: %v", err)
		}
		return nil, false
	}

	var answer domain.CachedAnswer
	if err := json.Unmarshal(data, &answer); err != nil {
		logger.Warn("Deleting corrupt cache entry %s: %v", key, err)
		if err := c.kv.Delete(ctx, key); err != nil {
			logger.Warn("Failed to delete corrupt cache entry: %v", err)
		}
		return nil, false
	}
	if answer.Results == nil {
		answer.Results = []domain.SourceResult{}
	}
	return &answer, true
}

// Store writes answer under key. The ttl is clamped to [1m, 24h].
func (c *ResponseCache) Store(ctx context.Context, key string, answer *domain.CachedAnswer, ttl time.Duration) error {
	if answer == nil {
		return domain.ErrInvalidInput
	}
	data, err := json.Marshal(answer)
	if err != nil {
		return fmt.Errorf("encode cached answer: %w", err)
	}
	if ttl <= 0 {
		ttl = domain.DefaultCacheTTL
	}
	return c.kv.Set(ctx, key, data, domain.ClampCacheTTL(ttl))
}

// Purge deletes a single entry.
func (c *ResponseCache) Purge(ctx context.Context, key string) error {
	return c.kv.Delete(ctx, key)
}

// Clear invalidates every cached answer.
func (c *ResponseCache) Clear(ctx context.Context) (int64, error) {
	return c.BumpNamespace(ctx)
}

// Namespace returns the current namespace.
func (c *ResponseCache) Namespace(ctx context.Context) (int64, error) {
	return c.CurrentNamespace(ctx), nil
}
