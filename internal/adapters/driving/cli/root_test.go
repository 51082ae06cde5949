package cli

import (
	"bytes"
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

// mockSettingsService is a mock implementation of driving.SettingsService.
type mockSettingsService struct {
	settings domain.Settings
	setKey   string
	setValue string
	err      error
}

func (m *mockSettingsService) Get() (domain.Settings, error) {
	return m.settings, m.err
}

func (m *mockSettingsService) Save(settings domain.Settings) error {
	m.settings = settings
	return m.err
}

func (m *mockSettingsService) Set(key, value string) error {
	m.setKey, m.setValue = key, value
	return m.err
}

func (m *mockSettingsService) Keys() []string {
	return []string{"answers.enabled", "answers.api_key"}
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

// mockWatcher records Watch calls and blocks until the context ends.
type mockWatcher struct {
	started chan struct{}
}

func (m *mockWatcher) Watch(ctx context.Context, onChange func()) error {
	close(m.started)
	onChange()
	<-ctx.Done()
	return nil
}

// mockJanitor signals when started and blocks until the context ends.
type mockJanitor struct {
	started chan struct{}
}

func (m *mockJanitor) Start(ctx context.Context) error {
	close(m.started)
	<-ctx.Done()
	return nil
}

type testServices struct {
	answer   *mockAnswerService
	settings *mockSettingsService
	cache    *mockCacheService
}

// setupTestServices installs mock services and returns them with a cleanup
// function that restores the previous state.
func setupTestServices() (*testServices, func()) {
	oldAnswer, oldSettings, oldCache := answerService, settingsService, cacheService
	oldWatcher, oldOnChange, oldFactory := configWatcher, onConfigChange, serviceFactory
	oldJanitor := janitor

	ts := &testServices{
		answer:   &mockAnswerService{},
		settings: &mockSettingsService{settings: domain.DefaultSettings()},
		cache:    &mockCacheService{},
	}
	SetServices(&Services{Answer: ts.answer, Settings: ts.settings, Cache: ts.cache})
	serviceFactory = nil

	return ts, func() {
		answerService, settingsService, cacheService = oldAnswer, oldSettings, oldCache
		configWatcher, onConfigChange, serviceFactory = oldWatcher, oldOnChange, oldFactory
		janitor = oldJanitor
	}
}

// execute runs the root command with args and returns combined output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := Execute(context.Background())
	return buf.String(), err
}
