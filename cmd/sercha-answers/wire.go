package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/custodia-labs/sercha-answers/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-answers/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/sercha-answers/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-answers/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-answers/internal/adapters/driving/cli"
	"github.com/custodia-labs/sercha-answers/internal/core/domain"
	"github.com/custodia-labs/sercha-answers/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-answers/internal/core/services"
	"github.com/custodia-labs/sercha-answers/internal/logger"
	"github.com/custodia-labs/sercha-answers/internal/normalisers/html"
)

// buildServices wires the adapters behind the driving ports.
func buildServices(opts cli.Options) (*cli.Services, error) {
	var (
		configStore driven.ConfigStore
		watcher     cli.ConfigWatcher
		kv          driven.KVStore
		purger      driven.ExpiryPurger
		events      driven.EventLog
		closeFn     func() error
	)

	if opts.Ephemeral {
		logger.Debug("Ephemeral mode: settings, cache and events kept in memory")
		memKV := memory.NewKVStore()
		configStore = memory.NewConfigStore()
		kv, purger = memKV, memKV
		events = memory.NewEventLog()
	} else {
		fileStore, err := file.NewConfigStore(opts.ConfigDir)
		if err != nil {
			return nil, fmt.Errorf("opening config: %w", err)
		}
		configStore, watcher = fileStore, fileStore

		store, err := sqlite.NewStore(opts.DataDir)
		if err != nil {
			return nil, fmt.Errorf("opening store: %w", err)
		}
		kv, purger, events, closeFn = store.KVStore(), store, store.EventLog(), store.Close
	}

	// Ephemeral runs without a config dir use the built-in prompt.
	var prompts driven.PromptStore
	if !opts.Ephemeral || opts.ConfigDir != "" {
		promptDir := ""
		if opts.ConfigDir != "" {
			promptDir = filepath.Join(opts.ConfigDir, "prompts")
		}
		store, err := file.NewPromptStore(promptDir)
		if err != nil {
			return nil, fmt.Errorf("opening prompts: %w", err)
		}
		prompts = store
	}

	cache := services.NewResponseCache(kv)
	settingsService := services.NewSettingsService(configStore, cache).WithEnv(os.LookupEnv)

	initial, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}

	summary := services.NewSummaryService(
		openai.NewClient(openai.Config{}),
		cache,
		services.NewGlobalLimiter(kv),
		services.NewPromptBuilder(prompts),
	)
	answerService := services.NewAnswerService(
		settingsService,
		summary,
		kv,
		services.NewChallenger(initial.ChallengeSecret),
		events,
	).WithNormaliser(html.New())

	return &cli.Services{
		Answer:         answerService,
		Settings:       settingsService,
		Cache:          cache,
		Watcher:        watcher,
		Janitor:        services.NewJanitor(purger, services.DefaultJanitorInterval),
		OnConfigChange: reconciler(settingsService, prompts, initial),
		Close:          closeFn,
	}, nil
}

// reconciler returns the config change hook. It invalidates the answer cache
// when a reload alters answer content and drops cached prompt templates.
func reconciler(settings *services.SettingsService, prompts driven.PromptStore, initial domain.Settings) func() {
	var mu sync.Mutex
	last := initial
	return func() {
		mu.Lock()
		defer mu.Unlock()

		if prompts != nil {
			prompts.Reload()
		}
		next, err := settings.Reconcile(last)
		if err != nil {
			logger.Warn("Failed to apply reloaded settings: %v", err)
			return
		}
		if next.ChallengeSecret != last.ChallengeSecret {
			logger.Warn("Challenge secret changed; restart to apply it")
		}
		last = next
	}
}
