package services

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEnabled           = "answers.enabled"
	keyAPIKey            = "answers.api_key"
	keyBaseURL           = "answers.base_url"
	keyModel             = "answers.model"
	keySiteName          = "answers.site_name"
	keyMaxPosts          = "answers.max_posts"
	keyMaxTokens         = "answers.max_tokens"
	keyCacheTTL          = "answers.cache_ttl"
	keyRequestTimeout    = "answers.request_timeout"
	keyMaxCallsPerMinute = "answers.max_calls_per_minute"
	keyContentLength     = "answers.content_length"
	keyShowSources       = "answers.show_sources"
	keyMaxSources        = "answers.max_sources_display"
	keySpamBlocklist     = "answers.spam_blocklist"
	keyAnonymize         = "answers.anonymize_queries"
	keyPostTypes         = "answers.post_types"
	keyRateLimit         = "admission.rate_limit_per_minute"
	keyLightRateLimit    = "admission.light_rate_limit_per_minute"
	keyRequireChallenge  = "admission.require_challenge"
	keyChallengeSecret   = "admission.challenge_secret"
	keyTrustProxy        = "admission.trust_proxy"
)

// Environment variables that override stored settings. Overridden values
// are never written back to the store.
//
//nolint:gosec // G101: These are variable names, not credentials.
const (
	EnvEnabled         = "SERCHA_ANSWERS_ENABLED"
	EnvAPIKey          = "SERCHA_OPENAI_API_KEY"
	EnvBaseURL         = "SERCHA_OPENAI_BASE_URL"
	EnvModel           = "SERCHA_OPENAI_MODEL"
	EnvSiteName        = "SERCHA_SITE_NAME"
	EnvChallengeSecret = "SERCHA_CHALLENGE_SECRET"
)

// envOverrides maps config keys to the variables that override them.
var envOverrides = map[string]string{
	keyEnabled:         EnvEnabled,
	keyAPIKey:          EnvAPIKey,
	keyBaseURL:         EnvBaseURL,
	keyModel:           EnvModel,
	keySiteName:        EnvSiteName,
	keyChallengeSecret: EnvChallengeSecret,
}

type settingKind int

const (
	kindString settingKind = iota
	kindInt
	kindBool
	kindDuration
	kindList
)

// settingKeys lists every settable key in display order.
var settingKeys = []struct {
	key  string
	kind settingKind
}{
	{keyEnabled, kindBool},
	{keyAPIKey, kindString},
	{keyBaseURL, kindString},
	{keyModel, kindString},
	{keySiteName, kindString},
	{keyMaxPosts, kindInt},
	{keyMaxTokens, kindInt},
	{keyCacheTTL, kindDuration},
	{keyRequestTimeout, kindDuration},
	{keyMaxCallsPerMinute, kindInt},
	{keyContentLength, kindInt},
	{keyShowSources, kindBool},
	{keyMaxSources, kindInt},
	{keySpamBlocklist, kindList},
	{keyAnonymize, kindBool},
	{keyPostTypes, kindList},
	{keyRateLimit, kindInt},
	{keyLightRateLimit, kindInt},
	{keyRequireChallenge, kindBool},
	{keyChallengeSecret, kindString},
	{keyTrustProxy, kindBool},
}

// SettingsService reads and writes typed settings over a ConfigStore.
// Every read builds a fresh, normalized Settings value.
type SettingsService struct {
	configStore driven.ConfigStore
	cache       driving.CacheService
	lookupEnv   func(string) (string, bool)
}

// NewSettingsService creates a settings service. When cache is non-nil,
// saves that change answer content invalidate it.
func NewSettingsService(configStore driven.ConfigStore, cache driving.CacheService) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		cache:       cache,
		lookupEnv:   os.LookupEnv,
	}
}

// WithEnv replaces the environment lookup. Used by tests.
func (s *SettingsService) WithEnv(lookup func(string) (string, bool)) *SettingsService {
	s.lookupEnv = lookup
	return s
}

// Get retrieves current settings.
func (s *SettingsService) Get() (domain.Settings, error) {
	d := domain.DefaultSettings()

	settings := domain.Settings{
		Enabled:                 s.getBool(keyEnabled, d.Enabled),
		APIKey:                  s.configStore.GetString(keyAPIKey),
		BaseURL:                 s.configStore.GetString(keyBaseURL),
		Model:                   s.getString(keyModel, d.Model),
		SiteName:                s.configStore.GetString(keySiteName),
		MaxPosts:                s.getInt(keyMaxPosts, d.MaxPosts),
		MaxTokens:               s.getInt(keyMaxTokens, d.MaxTokens),
		CacheTTL:                s.getDuration(keyCacheTTL, d.CacheTTL),
		RequestTimeout:          s.getDuration(keyRequestTimeout, d.RequestTimeout),
		MaxCallsPerMinute:       s.configStore.GetInt(keyMaxCallsPerMinute),
		ContentLength:           s.getInt(keyContentLength, d.ContentLength),
		ShowSources:             s.getBool(keyShowSources, d.ShowSources),
		MaxSourcesDisplay:       s.getInt(keyMaxSources, d.MaxSourcesDisplay),
		SpamBlocklist:           strings.Join(s.configStore.GetStringSlice(keySpamBlocklist), "\n"),
		AnonymizeQueries:        s.getBool(keyAnonymize, d.AnonymizeQueries),
		PostTypes:               s.configStore.GetStringSlice(keyPostTypes),
		RateLimitPerMinute:      s.getInt(keyRateLimit, d.RateLimitPerMinute),
		LightRateLimitPerMinute: s.getInt(keyLightRateLimit, d.LightRateLimitPerMinute),
		RequireChallenge:        s.getBool(keyRequireChallenge, d.RequireChallenge),
		ChallengeSecret:         s.configStore.GetString(keyChallengeSecret),
		TrustProxy:              s.getBool(keyTrustProxy, d.TrustProxy),
	}

	if v, ok := s.env(EnvEnabled); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.Enabled = b
		} else {
			logger.Warn("Ignoring %s: %q is not a boolean", EnvEnabled, v)
		}
	}
	if v, ok := s.env(EnvAPIKey); ok {
		settings.APIKey = v
	}
	if v, ok := s.env(EnvBaseURL); ok {
		settings.BaseURL = v
	}
	if v, ok := s.env(EnvModel); ok {
		settings.Model = v
	}
	if v, ok := s.env(EnvSiteName); ok {
		settings.SiteName = v
	}
	if v, ok := s.env(EnvChallengeSecret); ok {
		settings.ChallengeSecret = v
	}

	return settings.Normalize(), nil
}

// Save persists settings and invalidates the cache when answers would change.
// Keys overridden by the environment are not written to the store.
func (s *SettingsService) Save(settings domain.Settings) error {
	prev, err := s.Get()
	if err != nil {
		return err
	}
	next := settings.Normalize()

	values := map[string]any{
		keyEnabled:           next.Enabled,
		keyBaseURL:           next.BaseURL,
		keyModel:             next.Model,
		keySiteName:          next.SiteName,
		keyMaxPosts:          next.MaxPosts,
		keyMaxTokens:         next.MaxTokens,
		keyCacheTTL:          next.CacheTTL.String(),
		keyRequestTimeout:    next.RequestTimeout.String(),
		keyMaxCallsPerMinute: next.MaxCallsPerMinute,
		keyContentLength:     next.ContentLength,
		keyShowSources:       next.ShowSources,
		keyMaxSources:        next.MaxSourcesDisplay,
		keySpamBlocklist:     next.BlocklistTerms(),
		keyAnonymize:         next.AnonymizeQueries,
		keyPostTypes:         next.PostTypes,
		keyRateLimit:         next.RateLimitPerMinute,
		keyLightRateLimit:    next.LightRateLimitPerMinute,
		keyRequireChallenge:  next.RequireChallenge,
		keyTrustProxy:        next.TrustProxy,
	}
	if next.APIKey != "" {
		values[keyAPIKey] = next.APIKey
	}
	if next.ChallengeSecret != "" {
		values[keyChallengeSecret] = next.ChallengeSecret
	}

	for _, k := range settingKeys {
		v, ok := values[k.key]
		if !ok || s.overridden(k.key) {
			continue
		}
		if err := s.configStore.Set(k.key, v); err != nil {
			return fmt.Errorf("save %s: %w", k.key, err)
		}
	}

	s.invalidateIfNeeded(prev, next)
	return nil
}

// Set updates one key from its string form.
func (s *SettingsService) Set(key, value string) error {
	kind, ok := kindOf(key)
	if !ok {
		return fmt.Errorf("unknown setting %q: %w", key, domain.ErrInvalidInput)
	}
	converted, err := parseSetting(kind, value)
	if err != nil {
		return fmt.Errorf("setting %s: %w", key, err)
	}

	prev, err := s.Get()
	if err != nil {
		return err
	}
	if err := s.configStore.Set(key, converted); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	next, err := s.Get()
	if err != nil {
		return err
	}

	s.invalidateIfNeeded(prev, next)
	return nil
}

// Keys returns the settable keys in display order.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingKeys))
	for i, k := range settingKeys {
		keys[i] = k.key
	}
	return keys
}

// Reconcile compares a previously observed snapshot with the stored
// settings, invalidating the cache if answers would change. It is used
// after the config file changes on disk.
func (s *SettingsService) Reconcile(prev domain.Settings) (domain.Settings, error) {
	next, err := s.Get()
	if err != nil {
		return prev, err
	}
	s.invalidateIfNeeded(prev, next)
	return next, nil
}

func (s *SettingsService) invalidateIfNeeded(prev, next domain.Settings) {
	if s.cache == nil || !prev.AffectsAnswers(next) {
		return
	}
	ns, err := s.cache.Clear(context.Background())
	if err != nil {
		logger.Warn("Failed to invalidate answer cache: %v", err)
		return
	}
	logger.Info("Answer settings changed, cache namespace is now %d", ns)
}

func kindOf(key string) (settingKind, bool) {
	for _, k := range settingKeys {
		if k.key == key {
			return k.kind, true
		}
	}
	return 0, false
}

func parseSetting(kind settingKind, value string) (any, error) {
	value = strings.TrimSpace(value)
	switch kind {
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer: %w", value, domain.ErrInvalidInput)
		}
		return n, nil
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%q is not a boolean: %w", value, domain.ErrInvalidInput)
		}
		return b, nil
	case kindDuration:
		if n, err := strconv.Atoi(value); err == nil {
			return (time.Duration(n) * time.Second).String(), nil
		}
		d, err := time.ParseDuration(value)
		if err != nil {
			return nil, fmt.Errorf("%q is not a duration: %w", value, domain.ErrInvalidInput)
		}
		return d.String(), nil
	case kindList:
		var items []string
		for _, item := range strings.FieldsFunc(value, func(r rune) bool { return r == ',' || r == '\n' }) {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		return items, nil
	default:
		return value, nil
	}
}

func (s *SettingsService) env(name string) (string, bool) {
	if s.lookupEnv == nil {
		return "", false
	}
	v, ok := s.lookupEnv(name)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// overridden reports whether an environment variable shadows key.
func (s *SettingsService) overridden(key string) bool {
	name, ok := envOverrides[key]
	if !ok {
		return false
	}
	_, set := s.env(name)
	return set
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

// getDuration accepts a Go duration string or a number of seconds.
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	if str := s.configStore.GetString(key); str != "" {
		if d, err := time.ParseDuration(str); err == nil {
			return d
		}
		logger.Warn("Ignoring invalid duration %s=%q", key, str)
		return defaultVal
	}
	if n := s.configStore.GetInt(key); n > 0 {
		return time.Duration(n) * time.Second
	}
	return defaultVal
}
