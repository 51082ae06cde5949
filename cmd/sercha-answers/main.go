// Command sercha-answers serves grounded AI answers for site search.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/custodia-labs/sercha-answers/internal/adapters/driving/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cli.SetServiceFactory(buildServices)
	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
