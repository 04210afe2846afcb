// Command server runs the headless kcchat relay: the chat and overlay
// WebSocket listeners, the REST login/admin surface, and the
// background cleanup service. Grounded on the teacher's cmd/server/
// main.go's signal-driven startup/shutdown shape.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"codeberg.org/kcchat/server/internal/appserver"
	"codeberg.org/kcchat/server/internal/config"
	"codeberg.org/kcchat/server/internal/logger"
)

func main() {
	logger.Info("starting kcchat server")

	configPath := os.Getenv("KCCHAT_CONFIG")
	if configPath == "" {
		configPath = "config.json"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.FatalErr(err, "failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := appserver.New(ctx, cfg)
	if err != nil {
		logger.FatalErr(err, "failed to initialize server")
	}

	app.Run(ctx)

	<-ctx.Done()
	logger.Info("shutting down kcchat server")

	shutdownCtx := context.Background()
	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.ErrorErr(err, "error during shutdown")
	}

	logger.Info("kcchat server stopped")
}
