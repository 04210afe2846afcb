package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/kcchat/server/internal/apierr"
	"codeberg.org/kcchat/server/internal/model"
)

const (
	queryFindUserByID = `
		SELECT id, display_name, display_color, auth_level, last_message,
		       last_message_time, banned_at, banned_until,
		       display_name_change_time, created_at
		FROM users
		WHERE id = $1
	`

	queryFindUserByName = `
		SELECT id, display_name, display_color, auth_level, last_message,
		       last_message_time, banned_at, banned_until,
		       display_name_change_time, created_at
		FROM users
		WHERE lower(display_name) = lower($1)
	`

	queryFindUserIDByGoogleSub = `
		SELECT user_id FROM google_users WHERE sub = $1
	`

	queryInsertUser = `
		INSERT INTO users (created_at)
		VALUES ($1)
		RETURNING id, display_name, display_color, auth_level, last_message,
		          last_message_time, banned_at, banned_until,
		          display_name_change_time, created_at
	`

	queryInsertGoogleUserBinding = `
		INSERT INTO google_users (sub, user_id) VALUES ($1, $2)
	`

	queryUpdateLastMessage = `
		UPDATE users
		SET last_message = $2, last_message_time = $3
		WHERE id = $1
	`

	queryUpdateDisplayName = `
		UPDATE users
		SET display_name = $2, display_name_change_time = $3
		WHERE id = $1
	`

	queryUpdateDisplayColor = `
		UPDATE users
		SET display_color = $2
		WHERE id = $1
	`

	queryUpdateBan = `
		UPDATE users
		SET banned_at = $2, banned_until = $3
		WHERE id = $1 AND auth_level < $4
		RETURNING id
	`

	queryUpdateAuthLevel = `
		UPDATE users
		SET auth_level = $2
		WHERE id = $1 AND auth_level < $3
		RETURNING id
	`
)

// UserRepository implements user CRUD the way the teacher's
// algorave/users.Repository wraps a pgxpool.Pool with named queries.
type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

func scanUser(row pgx.Row) (model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID, &u.DisplayName, &u.DisplayColor, &u.AuthLevel, &u.LastMessage,
		&u.LastMessageTime, &u.BannedAt, &u.BannedUntil,
		&u.DisplayNameChangeTime, &u.CreatedAt,
	)
	return u, err
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (model.User, error) {
	return scanUser(r.db.QueryRow(ctx, queryFindUserByID, id))
}

func (r *UserRepository) FindByName(ctx context.Context, name string) (model.User, bool, error) {
	u, err := scanUser(r.db.QueryRow(ctx, queryFindUserByName, name))
	if err == pgx.ErrNoRows {
		return model.User{}, false, nil
	}
	if err != nil {
		return model.User{}, false, err
	}
	return u, true, nil
}

// FindOrCreateByProviderID resolves the Google subject identifier to a
// user row via the google_users(sub, user_id) binding table (spec.md §6),
// creating an empty-named user and its binding on first sight (spec.md
// §4.1 step 1 / §4.4). The binding lives in its own table, not a column
// on users, so each provider's bindings stay independent per spec.md
// §3's "one user may have one binding per provider".
func (r *UserRepository) FindOrCreateByProviderID(ctx context.Context, providerID string) (model.User, error) {
	var userID int64
	err := r.db.QueryRow(ctx, queryFindUserIDByGoogleSub, providerID).Scan(&userID)
	if err == nil {
		return r.FindByID(ctx, userID)
	}
	if err != pgx.ErrNoRows {
		return model.User{}, err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return model.User{}, err
	}
	defer tx.Rollback(ctx)

	user, err := scanUser(tx.QueryRow(ctx, queryInsertUser, time.Now().Unix()))
	if err != nil {
		return model.User{}, err
	}

	if _, err := tx.Exec(ctx, queryInsertGoogleUserBinding, providerID, user.ID); err != nil {
		if apierr.IsDuplicateKey(err) {
			// a concurrent authenticate already created this binding;
			// use its user rather than the one just inserted here.
			var existingID int64
			if scanErr := r.db.QueryRow(ctx, queryFindUserIDByGoogleSub, providerID).Scan(&existingID); scanErr != nil {
				return model.User{}, scanErr
			}
			return r.FindByID(ctx, existingID)
		}
		return model.User{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return model.User{}, err
	}
	return user, nil
}

func (r *UserRepository) UpdateLastMessage(ctx context.Context, userID int64, message string, whenMillis int64) error {
	_, err := r.db.Exec(ctx, queryUpdateLastMessage, userID, message, whenMillis)
	return err
}

func (r *UserRepository) UpdateDisplayName(ctx context.Context, userID int64, name string, whenSeconds int64) error {
	_, err := r.db.Exec(ctx, queryUpdateDisplayName, userID, name, whenSeconds)
	return err
}

func (r *UserRepository) UpdateDisplayColor(ctx context.Context, userID int64, color string) error {
	_, err := r.db.Exec(ctx, queryUpdateDisplayColor, userID, color)
	return err
}

// SetBan sets banned_at/banned_until for the named user, refusing to
// touch an ADMIN target (auth_level < $4 guards it at the SQL level).
func (r *UserRepository) SetBan(ctx context.Context, name string, until int64, below model.AuthLevel) (int64, bool, error) {
	user, found, err := r.FindByName(ctx, name)
	if err != nil || !found {
		return 0, false, err
	}
	var id int64
	err = r.db.QueryRow(ctx, queryUpdateBan, user.ID, time.Now().Unix(), until, below).Scan(&id)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

func (r *UserRepository) Unban(ctx context.Context, name string) (int64, bool, error) {
	user, found, err := r.FindByName(ctx, name)
	if err != nil || !found {
		return 0, false, err
	}
	if err := r.SetBanValues(ctx, user.ID, 0, 0); err != nil {
		return 0, false, err
	}
	return user.ID, true, nil
}

// SetBanValues writes banned_at/banned_until directly, bypassing the
// below-auth-level guard; used by Unban, which always succeeds.
func (r *UserRepository) SetBanValues(ctx context.Context, userID, bannedAt, bannedUntil int64) error {
	_, err := r.db.Exec(ctx, `UPDATE users SET banned_at = $2, banned_until = $3 WHERE id = $1`, userID, bannedAt, bannedUntil)
	return err
}

func (r *UserRepository) SetAuthLevel(ctx context.Context, name string, level, below model.AuthLevel) (int64, bool, error) {
	user, found, err := r.FindByName(ctx, name)
	if err != nil || !found {
		return 0, false, err
	}
	var id int64
	err = r.db.QueryRow(ctx, queryUpdateAuthLevel, user.ID, level, below).Scan(&id)
	if err == pgx.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}
