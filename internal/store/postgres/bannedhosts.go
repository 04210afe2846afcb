package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	queryInsertBannedHost = `
		INSERT INTO banned_hosts (host, started, until)
		VALUES ($1, $2, $3)
		ON CONFLICT (host) DO UPDATE SET until = GREATEST(banned_hosts.until, EXCLUDED.until)
	`

	queryIsHostBanned = `
		SELECT EXISTS(SELECT 1 FROM banned_hosts WHERE host = $1 AND until > $2)
	`

	queryDeleteExpiredBannedHosts = `
		DELETE FROM banned_hosts WHERE until <= $1
	`
)

// BannedHostRepository tracks peer-address bans independent of any user
// account (spec.md §4.2's ipban/ip verb and §4.1's admission pipeline).
type BannedHostRepository struct {
	db *pgxpool.Pool
}

func NewBannedHostRepository(db *pgxpool.Pool) *BannedHostRepository {
	return &BannedHostRepository{db: db}
}

func (r *BannedHostRepository) Insert(ctx context.Context, host string, started, until int64) error {
	_, err := r.db.Exec(ctx, queryInsertBannedHost, host, started, until)
	return err
}

func (r *BannedHostRepository) IsBanned(ctx context.Context, host string, now int64) (bool, error) {
	var banned bool
	err := r.db.QueryRow(ctx, queryIsHostBanned, host, now).Scan(&banned)
	return banned, err
}

// PruneExpired deletes banned_hosts rows whose ban has already lapsed,
// called periodically by gc.go.
func (r *BannedHostRepository) PruneExpired(ctx context.Context, now int64) (int64, error) {
	tag, err := r.db.Exec(ctx, queryDeleteExpiredBannedHosts, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
