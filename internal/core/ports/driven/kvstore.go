package driven

import (
	"context"
	"time"
)

// KVStore is the key-value storage port used by the rate limiters,
// the response cache and the cache namespace counter.
//
// Implementations must treat a zero ttl as "no expiry" and must hide
// expired entries from Get.
type KVStore interface {
	// Get returns the value for key.
	// Returns domain.ErrNotFound if the key is missing or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key with the given ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// SetNX stores value only if key is absent or expired.
	// Returns true if the value was stored.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)

	// Incr increments the integer stored at key by one and returns the new value.
	// A missing key is treated as zero. The ttl applies only when the key is created.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
