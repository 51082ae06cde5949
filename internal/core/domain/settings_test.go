package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	assert.False(t, s.Enabled)
	assert.Equal(t, DefaultModel, s.Model)
	assert.Equal(t, time.Hour, s.CacheTTL)
	assert.Equal(t, 60*time.Second, s.RequestTimeout)
	assert.Equal(t, 400, s.ContentLength)
	assert.Equal(t, 10, s.RateLimitPerMinute)
	assert.Equal(t, 60, s.LightRateLimitPerMinute)
	assert.Equal(t, 0, s.MaxCallsPerMinute)
	assert.True(t, s.ShowSources)
}

func TestSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings Settings
		expected bool
	}{
		{"disabled", Settings{Enabled: false, APIKey: "sk-test"}, false},
		{"no key", Settings{Enabled: true}, false},
		{"blank key", Settings{Enabled: true, APIKey: "   "}, false},
		{"configured", Settings{Enabled: true, APIKey: "sk-test"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.IsConfigured())
		})
	}
}

func TestSettings_Normalize_FillsDefaults(t *testing.T) {
	s := Settings{}.Normalize()

	assert.Equal(t, DefaultModel, s.Model)
	assert.Equal(t, DefaultMaxTokens, s.MaxTokens)
	assert.Equal(t, DefaultCacheTTL, s.CacheTTL)
	assert.Equal(t, DefaultContentLength, s.ContentLength)
	assert.Equal(t, DefaultMaxSourcesDisplay, s.MaxSourcesDisplay)
	assert.Equal(t, []string{"post", "page"}, s.PostTypes)
}

func TestSettings_Normalize_Clamps(t *testing.T) {
	s := Settings{
		CacheTTL:          5 * time.Second,
		RequestTimeout:    time.Hour,
		ContentLength:     50,
		MaxSourcesDisplay: 12,
		MaxCallsPerMinute: -3,
	}.Normalize()

	assert.Equal(t, MinCacheTTL, s.CacheTTL)
	assert.Equal(t, MaxRequestTimeout, s.RequestTimeout)
	assert.Equal(t, MinContentLength, s.ContentLength)
	assert.Equal(t, 5, s.MaxSourcesDisplay)
	assert.Equal(t, 0, s.MaxCallsPerMinute)

	s = Settings{CacheTTL: 48 * time.Hour, ContentLength: 5000}.Normalize()
	assert.Equal(t, MaxCacheTTL, s.CacheTTL)
	assert.Equal(t, MaxContentLength, s.ContentLength)
}

func TestSettings_AffectsAnswers(t *testing.T) {
	base := DefaultSettings()

	changed := base
	changed.Model = "gpt-4.1-mini"
	assert.True(t, base.AffectsAnswers(changed))

	changed = base
	changed.MaxTokens = 900
	assert.True(t, base.AffectsAnswers(changed))

	changed = base
	changed.ShowSources = false
	assert.True(t, base.AffectsAnswers(changed))

	changed = base
	changed.RateLimitPerMinute = 30
	changed.SpamBlocklist = "casino"
	assert.False(t, base.AffectsAnswers(changed))
}

func TestSettings_BlocklistTerms(t *testing.T) {
	s := Settings{SpamBlocklist: "Casino\n\n  crypto airdrop \r\n"}
	assert.Equal(t, []string{"casino", "crypto airdrop"}, s.BlocklistTerms())

	assert.Nil(t, Settings{}.BlocklistTerms())
}
