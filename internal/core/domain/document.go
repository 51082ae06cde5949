package domain

import "time"

// Content length bounds for document bodies sent to the LLM.
const (
	MinContentLength     = 100
	MaxContentLength     = 2000
	DefaultContentLength = 400

	// MaxExcerptRunes is the maximum excerpt length kept per document.
	MaxExcerptRunes = 200
)

// CandidateDocument is a search hit supplied by the document source.
// The core only consumes these, most recent first.
type CandidateDocument struct {
	// ID is the document identifier in the host system.
	ID string `json:"id"`

	// Title is the human-readable title.
	Title string `json:"title"`

	// URL is the canonical link to the document.
	URL string `json:"url"`

	// Excerpt is a short summary, at most MaxExcerptRunes.
	Excerpt string `json:"excerpt,omitempty"`

	// Content is the document body as plain text.
	Content string `json:"content"`

	// Type is the host content type (post, page, product...).
	Type string `json:"type,omitempty"`

	// PublishedAt is the publish date.
	PublishedAt time.Time `json:"published_at"`
}

// SourceResult is one cited source in an answer.
type SourceResult struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Excerpt string `json:"excerpt"`
	Type    string `json:"type"`
}

// CachedAnswer is a summary and its cited sources.
// It is the unit stored in the response cache.
type CachedAnswer struct {
	// AnswerHTML is sanitized HTML.
	AnswerHTML string `json:"answer_html"`

	// Results are the cited sources in display order.
	Results []SourceResult `json:"results"`
}

// ParsePublishedAt accepts RFC 3339 timestamps or YYYY-MM-DD dates.
// Anything else yields the zero time.
func ParsePublishedAt(s string) time.Time {
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
