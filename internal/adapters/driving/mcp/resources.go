package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for sercha-answers resources.
	uriScheme = "sercha-answers://"
)

// settingsView is the public rendering of settings. Secrets are reported
// only as present or absent.
type settingsView struct {
	Enabled                 bool     `json:"enabled"`
	Configured              bool     `json:"configured"`
	APIKeySet               bool     `json:"api_key_set"`
	BaseURL                 string   `json:"base_url,omitempty"`
	Model                   string   `json:"model"`
	SiteName                string   `json:"site_name"`
	MaxPosts                int      `json:"max_posts"`
	MaxTokens               int      `json:"max_tokens"`
	CacheTTL                string   `json:"cache_ttl"`
	RequestTimeout          string   `json:"request_timeout"`
	MaxCallsPerMinute       int      `json:"max_calls_per_minute"`
	ContentLength           int      `json:"content_length"`
	ShowSources             bool     `json:"show_sources"`
	MaxSourcesDisplay       int      `json:"max_sources_display"`
	BlocklistTerms          int      `json:"blocklist_terms"`
	AnonymizeQueries        bool     `json:"anonymize_queries"`
	PostTypes               []string `json:"post_types"`
	RateLimitPerMinute      int      `json:"rate_limit_per_minute"`
	LightRateLimitPerMinute int      `json:"light_rate_limit_per_minute"`
	RequireChallenge        bool     `json:"require_challenge"`
	ChallengeSecretSet      bool     `json:"challenge_secret_set"`
	TrustProxy              bool     `json:"trust_proxy"`
}

func newSettingsView(s domain.Settings) settingsView {
	return settingsView{
		Enabled:                 s.Enabled,
		Configured:              s.IsConfigured(),
		APIKeySet:               s.APIKey != "",
		BaseURL:                 s.BaseURL,
		Model:                   s.Model,
		SiteName:                s.SiteName,
		MaxPosts:                s.MaxPosts,
		MaxTokens:               s.MaxTokens,
		CacheTTL:                s.CacheTTL.String(),
		RequestTimeout:          s.RequestTimeout.String(),
		MaxCallsPerMinute:       s.MaxCallsPerMinute,
		ContentLength:           s.ContentLength,
		ShowSources:             s.ShowSources,
		MaxSourcesDisplay:       s.MaxSourcesDisplay,
		BlocklistTerms:          len(s.BlocklistTerms()),
		AnonymizeQueries:        s.AnonymizeQueries,
		PostTypes:               s.PostTypes,
		RateLimitPerMinute:      s.RateLimitPerMinute,
		LightRateLimitPerMinute: s.LightRateLimitPerMinute,
		RequireChallenge:        s.RequireChallenge,
		ChallengeSecretSet:      s.ChallengeSecret != "",
		TrustProxy:              s.TrustProxy,
	}
}

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Settings != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "settings",
			Name:        "settings",
			Description: "Current answer settings with secrets masked",
			MIMEType:    "application/json",
		}, s.handleSettingsResource)
	}

	if s.ports.Cache != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "cache/namespace",
			Name:        "cache-namespace",
			Description: "Current response cache namespace",
			MIMEType:    "text/plain",
		}, s.handleNamespaceResource)
	}
}

// handleSettingsResource returns the current settings.
func (s *Server) handleSettingsResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Settings == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	settings, err := s.ports.Settings.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	data, err := json.MarshalIndent(newSettingsView(settings), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling settings: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleNamespaceResource returns the current cache namespace.
func (s *Server) handleNamespaceResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Cache == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	ns, err := s.ports.Cache.Namespace(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading cache namespace: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     strconv.FormatInt(ns, 10),
		}},
	}, nil
}
