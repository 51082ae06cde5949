package domain

import "time"

// Cache hit markers recorded on SearchEvent.CacheHit.
const (
	CacheHitMiss   = 0
	CacheHitServer = 1
	CacheHitClient = 2
)

// SearchEvent is the per-request analytics record.
type SearchEvent struct {
	// ID is the unique event identifier.
	ID string

	// Query is the sanitized query, empty when queries are anonymized.
	Query string

	// QueryHash is the SHA-256 of the normalized query.
	QueryHash string

	// ResultsCount is the number of candidate documents.
	ResultsCount int

	// AISuccess is true when an answer was produced.
	AISuccess bool

	// Error is the internal error code, empty on success.
	Error string

	// CacheHit is CacheHitMiss, CacheHitServer or CacheHitClient; nil when not applicable.
	CacheHit *int

	// ResponseTimeMS is the server-side handling time; nil when not measured.
	ResponseTimeMS *int

	// Helpful is the visitor's feedback on the answer; nil for search events.
	Helpful *bool

	// CreatedAt is when the event was recorded.
	CreatedAt time.Time
}

// Anonymize drops the plain query text, keeping only its hash.
func (e *SearchEvent) Anonymize() {
	if e.QueryHash == "" && e.Query != "" {
		e.QueryHash = HashQuery(e.Query)
	}
	e.Query = ""
}

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool {
	return &v
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
