package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

// DefaultJanitorInterval is how often expired storage entries are purged.
const DefaultJanitorInterval = 15 * time.Minute

// Janitor periodically purges expired rate-limit, lock and cache entries.
// It is a pure core service with no external control API.
type Janitor struct {
	purger   driven.ExpiryPurger
	interval time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewJanitor creates a janitor. A non-positive interval uses
// DefaultJanitorInterval.
func NewJanitor(purger driven.ExpiryPurger, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	return &Janitor{purger: purger, interval: interval}
}

// Start purges once, then on every tick. It blocks until Stop is called
// or ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) error {
	j.mu.Lock()
	if j.running {
		j.mu.Unlock()
		return nil // Already running
	}
	j.running = true
	j.stopCh = make(chan struct{})
	stopCh := j.stopCh
	j.wg.Add(1)
	j.mu.Unlock()
	defer j.wg.Done()

	j.RunOnce(ctx)

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.mu.Lock()
			j.running = false
			j.mu.Unlock()
			return nil
		case <-stopCh:
			return nil
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// Stop ends the loop and waits for an in-flight purge to finish.
func (j *Janitor) Stop() error {
	j.mu.Lock()
	if !j.running {
		j.mu.Unlock()
		return nil
	}
	j.running = false
	close(j.stopCh)
	j.mu.Unlock()

	j.wg.Wait()
	return nil
}

// RunOnce purges expired entries and returns how many were removed.
func (j *Janitor) RunOnce(ctx context.Context) int64 {
	n, err := j.purger.PurgeExpired(ctx)
	if err != nil {
		logger.Warn("Failed to purge expired entries: %v", err)
		return 0
	}
	if n > 0 {
		logger.Debug("Purged %d expired entries", n)
	}
	return n
}
