package driving

import "context"

// CacheService exposes cache administration.
type CacheService interface {
	// Clear invalidates every cached answer by bumping the namespace.
	// Returns the new namespace.
	Clear(ctx context.Context) (int64, error)

	// Namespace returns the current cache namespace.
	Namespace(ctx context.Context) (int64, error)
}
