package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"micro-crm/backend/utils/logging"
	"micro-crm/crm-cli/cli"
)

func main() {
	// Keep the terminal quiet unless a level was asked for.
	if os.Getenv("LOG_LEVEL") == "" {
		_ = os.Setenv("LOG_LEVEL", "warn")
	}
	logging.InitLogger("crm-cli")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
