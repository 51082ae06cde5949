package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-answers/internal/core/domain"
)

// apiKeySetting is the settings key holding the provider key.
const apiKeySetting = "answers.api_key"

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and change answer, limit and admission settings.

Settings live in config.toml under the config directory. Changes that alter
answer content invalidate the response cache.`,
	RunE: runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE:  runSettingsShow,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a single setting",
	Long: `Set a single setting by key. Run 'sercha-answers settings keys' for the
list. Durations use Go syntax (90s, 24h). Lists are comma separated.`,
	Args: cobra.ExactArgs(2),
	RunE: runSettingsSet,
}

var settingsSetKeyCmd = &cobra.Command{
	Use:   "set-key",
	Short: "Set the provider API key",
	Long:  `Prompts for the provider API key without echoing it.`,
	Args:  cobra.NoArgs,
	RunE:  runSettingsSetKey,
}

var settingsKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List settable keys",
	RunE:  runSettingsKeys,
}

func init() {
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
	settingsCmd.AddCommand(settingsSetKeyCmd)
	settingsCmd.AddCommand(settingsKeysCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Answers]")
	cmd.Printf("  Enabled: %s\n", yesNo(settings.Enabled))
	if settings.APIKey != "" {
		cmd.Printf("  API Key: %s\n", maskAPIKey(settings.APIKey))
	} else {
		cmd.Printf("  API Key: (not set)\n")
	}
	if settings.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", settings.BaseURL)
	}
	cmd.Printf("  Model: %s\n", settings.Model)
	cmd.Printf("  Site Name: %s\n", settings.SiteName)
	cmd.Printf("  Max Posts: %d\n", settings.MaxPosts)
	cmd.Printf("  Max Tokens: %d\n", settings.MaxTokens)
	cmd.Printf("  Content Length: %d\n", settings.ContentLength)
	cmd.Printf("  Show Sources: %s (max %d)\n", yesNo(settings.ShowSources), settings.MaxSourcesDisplay)
	cmd.Printf("  Post Types: %s\n", strings.Join(settings.PostTypes, ", "))
	cmd.Printf("  Cache TTL: %s\n", settings.CacheTTL)
	cmd.Printf("  Request Timeout: %s\n", settings.RequestTimeout)
	cmd.Println()

	cmd.Println("[Limits]")
	cmd.Printf("  Per-IP Requests/min: %d\n", settings.RateLimitPerMinute)
	cmd.Printf("  Per-IP Light Requests/min: %d\n", settings.LightRateLimitPerMinute)
	if settings.MaxCallsPerMinute > 0 {
		cmd.Printf("  Provider Calls/min: %d\n", settings.MaxCallsPerMinute)
	} else {
		cmd.Printf("  Provider Calls/min: unlimited\n")
	}
	cmd.Println()

	cmd.Println("[Admission]")
	cmd.Printf("  Require Challenge: %s\n", yesNo(settings.RequireChallenge))
	if settings.ChallengeSecret != "" {
		cmd.Printf("  Challenge Secret: %s\n", maskAPIKey(settings.ChallengeSecret))
	} else {
		cmd.Printf("  Challenge Secret: (ephemeral)\n")
	}
	cmd.Printf("  Trust Proxy: %s\n", yesNo(settings.TrustProxy))
	cmd.Printf("  Anonymize Queries: %s\n", yesNo(settings.AnonymizeQueries))
	cmd.Printf("  Blocklist Terms: %d\n", len(settings.BlocklistTerms()))
	cmd.Println()

	if settings.IsConfigured() {
		cmd.Println("Status: configured")
	} else {
		cmd.Println("Status: not configured")
		cmd.Println("Run 'sercha-answers settings set-key' and 'sercha-answers settings set answers.enabled true'.")
	}
	return nil
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	key, value := args[0], args[1]
	if err := settingsService.Set(key, value); err != nil {
		if errors.Is(err, domain.ErrInvalidInput) {
			return fmt.Errorf("invalid setting: %w", err)
		}
		return fmt.Errorf("failed to save setting: %w", err)
	}

	if key == apiKeySetting {
		value = maskAPIKey(value)
	}
	cmd.Printf("%s = %s\n", key, value)
	return nil
}

func runSettingsSetKey(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}

	cmd.Print("API key: ")
	key := strings.TrimSpace(passwordReader())
	cmd.Println()
	if key == "" {
		return errors.New("no key entered")
	}

	if err := settingsService.Set(apiKeySetting, key); err != nil {
		return fmt.Errorf("failed to save API key: %w", err)
	}
	cmd.Printf("API key saved (%s)\n", maskAPIKey(key))
	return nil
}

func runSettingsKeys(cmd *cobra.Command, _ []string) error {
	if err := requireSettings(); err != nil {
		return err
	}
	for _, k := range settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// passwordReader is swapped in tests.
var passwordReader = readPassword

func readPassword() string {
	// Try to read password without echo
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	// Fallback to regular input
	reader := bufio.NewReader(os.Stdin)
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
