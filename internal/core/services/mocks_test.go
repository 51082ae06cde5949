package services

import (
	"context"
	"sync"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
)

// mockChatClient returns queued results and records requests.
type mockChatClient struct {
	mu       sync.Mutex
	results  []*driven.ChatResult
	errs     []error
	requests []driven.ChatRequest
}

func (m *mockChatClient) Complete(_ context.Context, req driven.ChatRequest) (*driven.ChatResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := len(m.requests)
	m.requests = append(m.requests, req)
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i < len(m.results) {
		return m.results[i], nil
	}
	return &driven.ChatResult{Content: `{"answer_html":"<p>ok</p>","results":[]}`, FinishReason: "stop", Attempts: 1}, nil
}

func (m *mockChatClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// mockPromptStore serves fixed prompts.
type mockPromptStore struct {
	prompts map[string]string
	err     error
}

func (m *mockPromptStore) Load(name string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	p, ok := m.prompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

// staticSettings is a SettingsSource returning a fixed value.
type staticSettings struct {
	settings domain.Settings
	err      error
}

func (s *staticSettings) Get() (domain.Settings, error) {
	return s.settings, s.err
}

// failingEventLog always fails to record.
type failingEventLog struct{}

func (failingEventLog) Record(context.Context, domain.SearchEvent) error {
	return domain.ErrInvalidInput
}

func (failingEventLog) Recent(context.Context, int) ([]domain.SearchEvent, error) {
	return nil, nil
}
