// Package cli provides the cobra command tree for sercha-answers.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-answers/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// ConfigWatcher reloads configuration when its backing file changes.
type ConfigWatcher interface {
	Watch(ctx context.Context, onChange func()) error
}

// BackgroundTask is a long-running maintenance loop such as the storage
// janitor. Start blocks until ctx ends.
type BackgroundTask interface {
	Start(ctx context.Context) error
}

// Services holds the driving ports used by the commands.
type Services struct {
	Answer   driving.AnswerService
	Settings driving.SettingsService
	Cache    driving.CacheService

	// Watcher is optional. When set, long-running commands reload
	// settings as the config file changes.
	Watcher ConfigWatcher

	// OnConfigChange runs after every successful reload.
	OnConfigChange func()

	// Janitor is optional. Long-running commands start it to purge
	// expired storage entries.
	Janitor BackgroundTask

	// Close releases storage handles. Optional.
	Close func() error
}

// Options are the global flags passed to the service factory.
type Options struct {
	// ConfigDir overrides the config directory (default ~/.sercha-answers).
	ConfigDir string

	// DataDir overrides the data directory (default ~/.sercha-answers/data).
	DataDir string

	// Ephemeral keeps settings, cache and events in memory.
	Ephemeral bool
}

// ServiceFactory builds Services from the global flags.
type ServiceFactory func(opts Options) (*Services, error)

var (
	answerService   driving.AnswerService
	settingsService driving.SettingsService
	cacheService    driving.CacheService
	configWatcher   ConfigWatcher
	onConfigChange  func()
	janitor         BackgroundTask
	closeServices   func() error

	serviceFactory ServiceFactory
	globalOpts     Options
	verbose        bool
)

var rootCmd = &cobra.Command{
	Use:   "sercha-answers",
	Short: "Grounded AI answers for site search",
	Long: `sercha-answers turns a visitor's search query and the matching documents
into a short cited answer, with abuse protection and response caching.

Run 'sercha-answers serve' to expose the HTTP API, or 'sercha-answers ask'
to try a query from the terminal.`,
	SilenceUsage:      true,
	PersistentPreRunE: initServices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.ConfigDir, "config-dir", "", "config directory")
	rootCmd.PersistentFlags().StringVar(&globalOpts.DataDir, "data-dir", "", "data directory")
	rootCmd.PersistentFlags().BoolVar(&globalOpts.Ephemeral, "ephemeral", false,
		"keep settings, cache and events in memory (settings come from the environment)")
}

// SetServices injects the driving ports directly.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	answerService = s.Answer
	settingsService = s.Settings
	cacheService = s.Cache
	configWatcher = s.Watcher
	onConfigChange = s.OnConfigChange
	janitor = s.Janitor
	closeServices = s.Close
}

// SetServiceFactory registers a factory that builds services once the
// global flags are parsed.
func SetServiceFactory(f ServiceFactory) {
	serviceFactory = f
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	defer func() {
		if closeServices != nil {
			if err := closeServices(); err != nil {
				logger.Warn("Failed to close storage: %v", err)
			}
			closeServices = nil
		}
	}()
	return rootCmd.ExecuteContext(ctx)
}

func initServices(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if serviceFactory == nil || answerService != nil {
		return nil
	}
	s, err := serviceFactory(globalOpts)
	if err != nil {
		return fmt.Errorf("initialising services: %w", err)
	}
	SetServices(s)
	return nil
}

var errNotConfigured = errors.New("service not configured")

func requireSettings() error {
	if settingsService == nil {
		return fmt.Errorf("settings %w", errNotConfigured)
	}
	return nil
}
