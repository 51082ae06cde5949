package mcp

import (
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Answer runs the summary pipeline.
	Answer driving.AnswerService

	// Cache administers the response cache.
	Cache driving.CacheService

	// Settings exposes the current configuration.
	Settings driving.SettingsService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Answer == nil {
		return ErrMissingAnswerService
	}
	// Cache and Settings are optional
	return nil
}
