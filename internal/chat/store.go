package chat

import (
	"context"

	"codeberg.org/kcchat/server/internal/model"
)

// The interfaces below are the chat loop's only view of persistence. Each
// is satisfied structurally by the corresponding internal/store/postgres
// repository, keeping this package ignorant of pgx/pgxpool entirely —
// the same seam internal/chat/commands.Services uses one layer up.

type UserStore interface {
	FindByID(ctx context.Context, id int64) (model.User, error)
	FindByName(ctx context.Context, name string) (model.User, bool, error)
	FindOrCreateByProviderID(ctx context.Context, providerID string) (model.User, error)
	UpdateLastMessage(ctx context.Context, userID int64, message string, whenMillis int64) error
	UpdateDisplayName(ctx context.Context, userID int64, name string, whenSeconds int64) error
	UpdateDisplayColor(ctx context.Context, userID int64, color string) error
	SetBan(ctx context.Context, name string, until int64, below model.AuthLevel) (int64, bool, error)
	Unban(ctx context.Context, name string) (int64, bool, error)
	SetAuthLevel(ctx context.Context, name string, level, below model.AuthLevel) (int64, bool, error)
}

type MessageStore interface {
	Insert(ctx context.Context, msg model.Message) (int64, error)
	DropByUser(ctx context.Context, userID int64) ([]int64, error)
	DropByID(ctx context.Context, ids []int64) ([]int64, error)
	// Recent returns the most recent limit non-dropped messages, oldest
	// first, for the hello history burst (spec.md §4.1).
	Recent(ctx context.Context, limit int) ([]model.HistoryMessage, error)
}

type ResponseStore interface {
	LoadAll(ctx context.Context) ([]model.SimpleResponse, error)
	Add(ctx context.Context, command, response string) error
	Edit(ctx context.Context, command, response string) error
	Remove(ctx context.Context, command string) error
}

type BannedHostStore interface {
	Insert(ctx context.Context, host string, started, until int64) error
	IsBanned(ctx context.Context, host string, now int64) (bool, error)
}

type RuntimeConfigStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type TransactionStore interface {
	Insert(ctx context.Context, tx model.Transaction) error
}

// OverlaySink is the one-way cross-loop signal edge to the overlay
// dispatcher (spec.md §5), kept as a small interface so internal/chat
// doesn't import internal/overlay directly.
type OverlaySink interface {
	Alert(title, subtitle string)
	Command(name string)
}
