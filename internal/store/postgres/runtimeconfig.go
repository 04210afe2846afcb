package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	queryGetRuntimeConfig = `
		SELECT value FROM runtime_config WHERE key = $1
	`

	queryUpsertRuntimeConfig = `
		INSERT INTO runtime_config (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`
)

// RuntimeConfigRepository persists the handful of mutable, operator-set
// values spec.md §4.2 exposes through commands. The chat server writes
// only the "video" key (the current video id); the slow/duplicate-slow/
// follow-mode thresholds are kept in memory, not here. Modeled as a flat
// key/value table rather than dedicated columns, since the set of
// tunables is small and homogeneous (all int-or-string scalars).
type RuntimeConfigRepository struct {
	db *pgxpool.Pool
}

func NewRuntimeConfigRepository(db *pgxpool.Pool) *RuntimeConfigRepository {
	return &RuntimeConfigRepository{db: db}
}

func (r *RuntimeConfigRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow(ctx, queryGetRuntimeConfig, key).Scan(&value)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *RuntimeConfigRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.db.Exec(ctx, queryUpsertRuntimeConfig, key, value)
	return err
}
