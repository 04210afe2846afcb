package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	queryLookupGoogleID = `
		SELECT sub FROM google_ids WHERE id_token = $1 AND expiry > $2
	`

	queryStoreGoogleID = `
		INSERT INTO google_ids (id_token, sub, expiry)
		VALUES ($1, $2, $3)
		ON CONFLICT (id_token) DO UPDATE SET sub = EXCLUDED.sub, expiry = EXCLUDED.expiry
	`

	queryDeleteExpiredGoogleIDs = `
		DELETE FROM google_ids WHERE expiry <= $1
	`
)

// GoogleIDCache is the Postgres-backed system of record for
// auth.GoogleProvider's verified-subject cache (spec.md §4.4 step 1).
// It satisfies auth.TokenCache directly and also serves as the fallback
// internal/store/tokencache reaches for when Redis isn't configured.
type GoogleIDCache struct {
	db *pgxpool.Pool
}

func NewGoogleIDCache(db *pgxpool.Pool) *GoogleIDCache {
	return &GoogleIDCache{db: db}
}

func (c *GoogleIDCache) Lookup(ctx context.Context, token string) (string, bool, error) {
	var sub string
	err := c.db.QueryRow(ctx, queryLookupGoogleID, token, time.Now().Unix()).Scan(&sub)
	if err == pgx.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return sub, true, nil
}

func (c *GoogleIDCache) Store(ctx context.Context, token, sub string, expiry int64) error {
	_, err := c.db.Exec(ctx, queryStoreGoogleID, token, sub, expiry)
	return err
}

// PruneExpired deletes google_ids rows whose expiry has already passed,
// called periodically by gc.go alongside the banned-host prune.
func (c *GoogleIDCache) PruneExpired(ctx context.Context, now int64) (int64, error) {
	tag, err := c.db.Exec(ctx, queryDeleteExpiredGoogleIDs, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
