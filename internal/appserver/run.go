package appserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"codeberg.org/kcchat/server/internal/logger"
)

// Run starts the chat loop, the overlay loop, the cleanup service, and
// all three listeners as background goroutines, then returns
// immediately. It does not block; the caller decides how to wait
// (cmd/server blocks on a signal, cmd/console blocks on its TUI).
func (a *App) Run(ctx context.Context) {
	go a.Chat.Run(ctx)
	go a.overlay.Run(ctx)

	gcCtx, cancel := context.WithCancel(context.Background())
	a.gcCancel = cancel
	go a.gc.Start(gcCtx)

	go listenAndServe("chat", a.chatServer)
	go listenAndServe("overlay", a.overlayServer)
	go listenAndServe("rest", a.restServer)
}

func listenAndServe(name string, srv *http.Server) {
	logger.Info("listening", "service", name, "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.ErrorErr(err, "listener failed", "service", name)
	}
}

// Shutdown tears everything down in the teacher's established order:
// background services first, then each HTTP listener, then the
// database connections.
func (a *App) Shutdown(ctx context.Context) error {
	if a.gcCancel != nil {
		a.gcCancel()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var errs []error
	if err := a.chatServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := a.overlayServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := a.restServer.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	if a.tokens != nil {
		if err := a.tokens.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.db.Close()

	return errors.Join(errs...)
}
