// Package appserver wires every dependency the chat relay needs into
// one in-process App and starts its background services. It exists so
// cmd/server (headless) and cmd/console (same process, plus a
// foreground admin TUI) can share one construction path, mirroring the
// teacher's split between cmd/server and cmd/tui — both import shared
// internal/ wiring rather than duplicating it.
package appserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/kcchat/server/internal/auth"
	"codeberg.org/kcchat/server/internal/chat"
	"codeberg.org/kcchat/server/internal/config"
	"codeberg.org/kcchat/server/internal/httpapi"
	"codeberg.org/kcchat/server/internal/overlay"
	"codeberg.org/kcchat/server/internal/store/postgres"
	"codeberg.org/kcchat/server/internal/store/tokencache"
	"codeberg.org/kcchat/server/internal/ws"
)

// gcInterval is how often the postgres.GC prunes expired banned hosts
// and cached Google id-tokens.
const gcInterval = 5 * time.Minute

// App bundles every live dependency: the database pool, the chat and
// overlay loops, and the three listeners fronting them. Build one with
// New, start it with Run, and tear it down with Shutdown.
type App struct {
	cfg *config.Config

	db *pgxpool.Pool

	Chat    *chat.Server
	overlay *overlay.Dispatcher
	gc      *postgres.GC
	tokens  io.Closer

	chatServer    *http.Server
	overlayServer *http.Server
	restServer    *http.Server

	gcCancel context.CancelFunc
}

// New wires the pool, repositories, auth registry, chat and overlay
// loops, and the three HTTP listeners, following the teacher's
// cmd/server/server.go NewServer shape. It does not block; call Run to
// start the background goroutines.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	db, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	users := postgres.NewUserRepository(db)
	messages := postgres.NewMessageRepository(db)
	responses := postgres.NewResponseRepository(db)
	bannedHosts := postgres.NewBannedHostRepository(db)
	bannedWordsRepo := postgres.NewBannedWordRepository(db)
	runtimeConfig := postgres.NewRuntimeConfigRepository(db)
	transactions := postgres.NewTransactionRepository(db)
	googleIDs := postgres.NewGoogleIDCache(db)

	var tokenCache auth.TokenCache = googleIDs
	var closer io.Closer
	if cfg.RedisURL != "" {
		cache, err := tokencache.NewFromURL(cfg.RedisURL, googleIDs)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connect to redis token cache: %w", err)
		}
		tokenCache = cache
		closer = cache
	}

	bannedWords, err := bannedWordsRepo.LoadAll(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load banned words: %w", err)
	}

	googleProvider := auth.NewGoogleProvider(cfg.GoogleOAuthClientID, tokenCache, users)
	authRegistry := auth.NewRegistry(googleProvider)

	overlayDispatcher := overlay.NewDispatcher()

	chatServer := chat.NewServer(
		cfg,
		chat.Stores{
			Users:         users,
			Messages:      messages,
			Responses:     responses,
			BannedHosts:   bannedHosts,
			RuntimeConfig: runtimeConfig,
			Transactions:  transactions,
		},
		authRegistry,
		overlayDispatcher,
		bannedWords,
	)
	if err := chatServer.LoadSimpleResponses(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("load simple responses: %w", err)
	}

	gc := postgres.NewGC(bannedHosts, googleIDs, gcInterval, func() int64 { return time.Now().Unix() })

	restAPI, err := httpapi.New(cfg, chatServer)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init rest api: %w", err)
	}
	restRouter := httpapi.NewRouter(restAPI)

	app := &App{
		cfg:     cfg,
		db:      db,
		Chat:    chatServer,
		overlay: overlayDispatcher,
		gc:      gc,
		tokens:  closer,
		chatServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", config.ChatListenPort()),
			Handler: ws.ChatHandler(chatServer),
		},
		overlayServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", config.OverlayListenPort()),
			Handler: ws.OverlayHandler(overlayDispatcher),
		},
		restServer: &http.Server{
			Addr:    fmt.Sprintf(":%d", config.RESTListenPort()),
			Handler: restRouter,
		},
	}
	return app, nil
}
