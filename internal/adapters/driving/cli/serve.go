package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/sercha-answers/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/sercha-answers/internal/logger"
)

var (
	serveAddr    string
	serveOrigins []string
	serveMaxRPS  float64
	serveBurst   int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP answer API",
	Long: `Start the HTTP API used by the site's search page.

Endpoints:
  POST /api/answers    summarise a query over candidate documents
  GET  /api/challenge  issue an anti-bot challenge token
  POST /api/feedback   record whether an answer helped
  POST /api/log        record a client-side cache hit
  GET  /health         liveness probe

The config file is watched; edits apply without a restart.

Examples:
  sercha-answers serve --addr :8080 --allow-origin https://shop.example`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", httpapi.DefaultAddr, "listen address")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "allow-origin", nil, "CORS origin to allow (repeatable)")
	serveCmd.Flags().Float64Var(&serveMaxRPS, "max-rps", 0, "process-wide request ceiling per second (0 = off)")
	serveCmd.Flags().IntVar(&serveBurst, "burst", 0, "burst size for --max-rps")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if answerService == nil {
		return fmt.Errorf("answer %w", errNotConfigured)
	}

	server, err := httpapi.NewServer(httpapi.Config{
		Addr:           serveAddr,
		AllowedOrigins: serveOrigins,
		FloodRate:      serveMaxRPS,
		FloodBurst:     serveBurst,
	}, answerService, settingsService)
	if err != nil {
		return err
	}

	startBackground(cmd)

	fmt.Fprintf(cmd.OutOrStdout(), "Answer API listening on %s\n", serveAddr)
	return server.Run(cmd.Context())
}

// startBackground starts the config watcher and the storage janitor for a
// long-running command. Both stop with the command's context.
func startBackground(cmd *cobra.Command) {
	startWatcher(cmd)
	if janitor != nil {
		go func() {
			if err := janitor.Start(cmd.Context()); err != nil {
				logger.Warn("Storage janitor stopped: %v", err)
			}
		}()
	}
}

// startWatcher reloads settings on config changes until the command's
// context ends.
func startWatcher(cmd *cobra.Command) {
	if configWatcher == nil {
		return
	}
	onChange := onConfigChange
	if onChange == nil {
		onChange = func() {}
	}
	go func() {
		if err := configWatcher.Watch(cmd.Context(), onChange); err != nil {
			logger.Warn("Config watching disabled: %v", err)
		}
	}()
}
