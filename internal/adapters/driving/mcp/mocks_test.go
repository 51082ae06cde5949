package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driving"
)

// mockAnswerService is a mock implementation of driving.AnswerService.
type mockAnswerService struct {
	outcome     domain.Outcome
	lastRequest driving.AnswerRequest
}

func (m *mockAnswerService) Answer(_ context.Context, req driving.AnswerRequest) domain.Outcome {
	m.lastRequest = req
	return m.outcome
}

func (m *mockAnswerService) RecordClientEvent(_ context.Context, _, _ string, _ int) error {
	return nil
}

func (m *mockAnswerService) RecordFeedback(_ context.Context, _, _ string, _ bool) error {
	return nil
}

func (m *mockAnswerService) IssueChallenge() (string, int64) {
	return "", 0
}

// mockCacheService is a mock implementation of driving.CacheService.
type mockCacheService struct {
	namespace int64
	err       error
}

func (m *mockCacheService) Clear(_ context.Context) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.namespace++
	return m.namespace, nil
}

func (m *mockCacheService) Namespace(_ context.Context) (int64, error) {
	return m.namespace, m.err
}

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings domain.Settings
	err      error
}

func (m *mockSettingsService) Get() (domain.Settings, error) {
	return m.settings, m.err
}

func (m *mockSettingsService) Save(settings domain.Settings) error {
	m.settings = settings
	return m.err
}

func (m *mockSettingsService) Set(_, _ string) error {
	return m.err
}

func (m *mockSettingsService) Keys() []string {
	return nil
}
