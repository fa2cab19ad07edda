// Command visiontext is a terminal client for an image text-extraction
// service. Run without arguments it starts the TUI; subcommands cover
// headless extraction, history, the diagnostic event log and a local
// fixture backend.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
