package driven

import (
	"context"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
)

// EventLog records per-request search events.
// Recording is fire-and-forget from the core's point of view: errors are
// logged by the caller and never affect the response.
type EventLog interface {
	// Record stores one event.
	Record(ctx context.Context, event domain.SearchEvent) error

	// Recent returns up to limit events, newest first.
	Recent(ctx context.Context, limit int) ([]domain.SearchEvent, error)
}
