package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

// Sliding window parameters.
const (
	rateWindowSeconds    = 60
	rateWindowTTL        = 70 * time.Second
	rateLockTTL          = 5 * time.Second
	rateLockPolls        = 5
	rateLockPollInterval = 50 * time.Millisecond
	ipHashLength         = 16

	// Key prefixes for the two per-IP limiters.
	PrimaryLimiterPrefix = "ai"
	LightLimiterPrefix   = "light"
)

// SlidingWindowLimiter is a per-IP limiter that keeps the request
// timestamps of the last minute in the key-value store.
//
// Updates are guarded by a short advisory lock. When the lock cannot be
// taken within rateLockPolls polls the limiter proceeds without it.
type SlidingWindowLimiter struct {
	kv     driven.KVStore
	prefix string
	now    func() time.Time
	sleep  func(time.Duration)
}

// NewSlidingWindowLimiter creates a limiter whose keys live under prefix.
func NewSlidingWindowLimiter(kv driven.KVStore, prefix string) *SlidingWindowLimiter {
	return &SlidingWindowLimiter{
		kv:     kv,
		prefix: prefix,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// WithClock replaces the time source and the lock poll sleeper.
func (l *SlidingWindowLimiter) WithClock(now func() time.Time, sleep func(time.Duration)) *SlidingWindowLimiter {
	l.now = now
	if sleep != nil {
		l.sleep = sleep
	}
	return l
}

// Key returns the storage key of ip's window.
func (l *SlidingWindowLimiter) Key(ip string) string {
	return "ratelimit:" + l.prefix + ":" + hashIP(ip)
}

// Limited reports whether ip has already made limit requests in the last
// minute. When it has not, the current request is recorded.
// Storage failures fail open.
func (l *SlidingWindowLimiter) Limited(ctx context.Context, ip string, limit int) bool {
	if limit <= 0 {
		return false
	}

	key := l.Key(ip)
	lockKey := key + ":lock"
	locked := l.acquire(ctx, lockKey)
	if locked {
		defer func() {
			if err := l.kv.Delete(ctx, lockKey); err != nil {
				logger.Warn("Failed to release rate lock: %v", err)
			}
		}()
	} else {
		logger.Debug("Rate lock busy for %s, proceeding without it", key)
	}

	window := l.load(ctx, key)
	now := l.now().Unix()
	window.Prune(now, rateWindowSeconds)
	if window.Count() >= limit {
		return true
	}

	window.Add(now)
	data, err := json.Marshal(window)
	if err != nil {
		logger.Warn("Failed to encode rate window: %v", err)
		return false
	}
	if err := l.kv.Set(ctx, key, data, rateWindowTTL); err != nil {
		logger.Warn("Failed to persist rate window: %v", err)
	}
	return false
}

func (l *SlidingWindowLimiter) acquire(ctx context.Context, lockKey string) bool {
	for i := 0; i < rateLockPolls; i++ {
		ok, err := l.kv.SetNX(ctx, lockKey, []byte("1"), rateLockTTL)
		if err != nil {
			logger.Warn("Failed to take rate lock: %v", err)
			return false
		}
		if ok {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		l.sleep(rateLockPollInterval)
	}
	return false
}

func (l *SlidingWindowLimiter) load(ctx context.Context, key string) domain.RateWindow {
	var window domain.RateWindow
	data, err := l.kv.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Warn("Failed to read rate window: %v", err)
		}
		return window
	}
	if err := json.Unmarshal(data, &window); err != nil {
		logger.Debug("Discarding corrupt rate window %s: %v", key, err)
		return domain.RateWindow{}
	}
	return window
}

// GlobalLimiter caps provider calls per UTC minute across all clients.
type GlobalLimiter struct {
	kv  driven.KVStore
	now func() time.Time
}

// NewGlobalLimiter creates a global per-minute limiter.
func NewGlobalLimiter(kv driven.KVStore) *GlobalLimiter {
	return &GlobalLimiter{kv: kv, now: time.Now}
}

// WithClock replaces the time source.
func (g *GlobalLimiter) WithClock(now func() time.Time) *GlobalLimiter {
	g.now = now
	return g
}

// Key returns the counter key for the minute containing t.
func (g *GlobalLimiter) Key(t time.Time) string {
	return "ratelimit:global:" + t.UTC().Format("200601021504")
}

// Allow counts one call and reports whether it fits under maxPerMinute.
// Zero means unlimited. Storage failures fail open.
func (g *GlobalLimiter) Allow(ctx context.Context, maxPerMinute int) bool {
	if maxPerMinute <= 0 {
		return true
	}
	n, err := g.kv.Incr(ctx, g.Key(g.now()), 2*time.Minute)
	if err != nil {
		logger.Warn("Failed to count global call: %v", err)
		return true
	}
	return n <= int64(maxPerMinute)
}

func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])[:ipHashLength]
}
