package domain

import (
	"strings"
	"time"
)

const unknownDescription = "Unknown"

// Defaults and bounds for Settings fields.
const (
	DefaultModel             = "gpt-4o-mini"
	DefaultMaxPosts          = 20
	DefaultMaxTokens         = 1500
	DefaultCacheTTL          = time.Hour
	MinCacheTTL              = time.Minute
	MaxCacheTTL              = 24 * time.Hour
	DefaultRequestTimeout    = 60 * time.Second
	MinRequestTimeout        = 10 * time.Second
	MaxRequestTimeout        = 300 * time.Second
	DefaultMaxSourcesDisplay = 5
	DefaultRateLimit         = 10
	DefaultLightRateLimit    = 60
)

// Settings is the typed per-call configuration.
// A fresh value is built on every settings write; it is never mutated in place.
type Settings struct {
	// Enabled turns the AI summary on or off.
	Enabled bool

	// APIKey is the LLM provider key.
	APIKey string

	// BaseURL is the provider API base (empty means the provider default).
	BaseURL string

	// Model is the provider model id.
	Model string

	// SiteName is used in the system prompt persona.
	SiteName string

	// MaxPosts is how many candidate documents the caller may send.
	MaxPosts int

	// MaxTokens is the completion token budget.
	MaxTokens int

	// CacheTTL is how long answers stay cached.
	CacheTTL time.Duration

	// RequestTimeout bounds a single provider call.
	RequestTimeout time.Duration

	// MaxCallsPerMinute caps provider calls site-wide. Zero means unlimited.
	MaxCallsPerMinute int

	// ContentLength is the per-document content budget in characters.
	ContentLength int

	// ShowSources controls whether cited sources are returned.
	ShowSources bool

	// MaxSourcesDisplay caps the number of cited sources (1-5).
	MaxSourcesDisplay int

	// SpamBlocklist holds admin-blocked terms, one per line.
	SpamBlocklist string

	// AnonymizeQueries stores only query hashes in the event log.
	AnonymizeQueries bool

	// PostTypes lists the content types the document source searches.
	PostTypes []string

	// RateLimitPerMinute is the per-IP limit for summary requests.
	RateLimitPerMinute int

	// LightRateLimitPerMinute is the per-IP limit for low-value endpoints.
	LightRateLimitPerMinute int

	// RequireChallenge makes the HMAC challenge token mandatory.
	RequireChallenge bool

	// ChallengeSecret signs challenge tokens.
	ChallengeSecret string

	// TrustProxy honours X-Forwarded-For when resolving client IPs.
	TrustProxy bool
}

// DefaultSettings returns settings with sensible defaults.
// The feature is disabled until an API key is configured.
func DefaultSettings() Settings {
	return Settings{
		Model:                   DefaultModel,
		MaxPosts:                DefaultMaxPosts,
		MaxTokens:               DefaultMaxTokens,
		CacheTTL:                DefaultCacheTTL,
		RequestTimeout:          DefaultRequestTimeout,
		ContentLength:           DefaultContentLength,
		ShowSources:             true,
		MaxSourcesDisplay:       DefaultMaxSourcesDisplay,
		PostTypes:               []string{"post", "page"},
		RateLimitPerMinute:      DefaultRateLimit,
		LightRateLimitPerMinute: DefaultLightRateLimit,
	}
}

// IsConfigured returns true if summaries can be produced.
func (s Settings) IsConfigured() bool {
	return s.Enabled && strings.TrimSpace(s.APIKey) != ""
}

// Normalize fills zero values with defaults and clamps fields to their bounds.
func (s Settings) Normalize() Settings {
	d := DefaultSettings()

	if strings.TrimSpace(s.Model) == "" {
		s.Model = d.Model
	}
	if s.MaxPosts <= 0 {
		s.MaxPosts = d.MaxPosts
	}
	s.MaxPosts = clampInt(s.MaxPosts, 1, 100)
	if s.MaxTokens <= 0 {
		s.MaxTokens = d.MaxTokens
	}
	s.MaxTokens = clampInt(s.MaxTokens, 100, 16000)
	if s.CacheTTL <= 0 {
		s.CacheTTL = d.CacheTTL
	}
	s.CacheTTL = ClampCacheTTL(s.CacheTTL)
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = d.RequestTimeout
	}
	s.RequestTimeout = clampDuration(s.RequestTimeout, MinRequestTimeout, MaxRequestTimeout)
	if s.MaxCallsPerMinute < 0 {
		s.MaxCallsPerMinute = 0
	}
	if s.ContentLength <= 0 {
		s.ContentLength = d.ContentLength
	}
	s.ContentLength = clampInt(s.ContentLength, MinContentLength, MaxContentLength)
	if s.MaxSourcesDisplay <= 0 {
		s.MaxSourcesDisplay = d.MaxSourcesDisplay
	}
	s.MaxSourcesDisplay = clampInt(s.MaxSourcesDisplay, 1, DefaultMaxSourcesDisplay)
	if s.RateLimitPerMinute <= 0 {
		s.RateLimitPerMinute = d.RateLimitPerMinute
	}
	if s.LightRateLimitPerMinute <= 0 {
		s.LightRateLimitPerMinute = d.LightRateLimitPerMinute
	}
	if len(s.PostTypes) == 0 {
		s.PostTypes = d.PostTypes
	}
	return s
}

// AffectsAnswers reports whether moving from s to next changes answer content,
// in which case cached answers must be invalidated.
func (s Settings) AffectsAnswers(next Settings) bool {
	return s.Model != next.Model ||
		s.MaxTokens != next.MaxTokens ||
		s.ShowSources != next.ShowSources ||
		s.MaxSourcesDisplay != next.MaxSourcesDisplay
}

// BlocklistTerms returns the non-empty, lowercased blocklist lines.
func (s Settings) BlocklistTerms() []string {
	var terms []string
	for _, line := range strings.Split(s.SpamBlocklist, "\n") {
		term := strings.ToLower(strings.TrimSpace(line))
		if term != "" {
			terms = append(terms, term)
		}
	}
	return terms
}

// ClampCacheTTL bounds ttl to [MinCacheTTL, MaxCacheTTL].
func ClampCacheTTL(ttl time.Duration) time.Duration {
	return clampDuration(ttl, MinCacheTTL, MaxCacheTTL)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampDuration(v, lo, hi time.Duration) time.Duration {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
