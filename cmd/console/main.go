// Command console runs the same in-process server as cmd/server, plus
// a foreground admin TUI attached directly to the chat loop's command
// channel (spec.md §4.1.2's interactive-admin path). Grounded on the
// teacher's cmd/tui/main.go, which runs its own TUI as a thin wrapper
// over shared internal/ wiring.
package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"codeberg.org/kcchat/server/internal/appserver"
	"codeberg.org/kcchat/server/internal/config"
	"codeberg.org/kcchat/server/internal/console"
	"codeberg.org/kcchat/server/internal/logger"
)

func main() {
	configPath := os.Getenv("KCCHAT_CONFIG")
	if configPath == "" {
		configPath = "config.json"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.FatalErr(err, "failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := appserver.New(ctx, cfg)
	if err != nil {
		logger.FatalErr(err, "failed to initialize server")
	}
	app.Run(ctx)

	model := console.New(app.Chat)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := program.Run(); err != nil {
		logger.ErrorErr(err, "console exited with error")
	}

	cancel()
	if err := app.Shutdown(context.Background()); err != nil {
		logger.ErrorErr(err, "error during shutdown")
	}
}
