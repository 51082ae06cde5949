package driven

import "context"

// ExpiryPurger removes expired entries from persistent storage. Reads
// already ignore expired entries; purging only reclaims space.
type ExpiryPurger interface {
	// PurgeExpired deletes expired entries and returns how many were removed.
	PurgeExpired(ctx context.Context) (int64, error)
}
