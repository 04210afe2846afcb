package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/kcchat/server/internal/model"
)

const (
	queryInsertMessage = `
		INSERT INTO messages (user_id, time, message, host, donate_value)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	queryDropMessagesByUser = `
		UPDATE messages
		SET dropped = true
		WHERE user_id = $1 AND dropped = false
		RETURNING id
	`

	queryDropMessagesByID = `
		UPDATE messages
		SET dropped = true
		WHERE id = ANY($1) AND dropped = false
		RETURNING id
	`

	queryRecentMessages = `
		SELECT m.id, m.user_id, m.time, m.message, m.donate_value,
		       COALESCE(u.display_name, ''), COALESCE(u.display_color, ''), COALESCE(u.auth_level, 0)
		FROM messages m
		LEFT JOIN users u ON u.id = m.user_id
		WHERE m.dropped = false
		ORDER BY m.time DESC
		LIMIT $1
	`
)

// MessageRepository implements message history persistence, keyed on
// the same named-query-constant idiom as UserRepository.
type MessageRepository struct {
	db *pgxpool.Pool
}

func NewMessageRepository(db *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{db: db}
}

func (r *MessageRepository) Insert(ctx context.Context, msg model.Message) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, queryInsertMessage,
		msg.UserID, msg.Time, msg.Message, msg.Host, msg.DonateValue,
	).Scan(&id)
	return id, err
}

// DropByUser soft-deletes every live message authored by userID,
// returning the ids actually dropped (spec.md §4.2's ban-time message
// purge).
func (r *MessageRepository) DropByUser(ctx context.Context, userID int64) ([]int64, error) {
	return r.collectIDs(ctx, queryDropMessagesByUser, userID)
}

// DropByID soft-deletes the explicit message ids named (the `delete`
// command), returning only the ids that were actually live.
func (r *MessageRepository) DropByID(ctx context.Context, ids []int64) ([]int64, error) {
	return r.collectIDs(ctx, queryDropMessagesByID, ids)
}

// Recent returns the most recent limit non-dropped messages, oldest
// first, joined with each author's current display fields. Grounded on
// the original's processHello (chatserver.cpp:943-948), which queries
// newest-first then replays the batch back-to-front.
func (r *MessageRepository) Recent(ctx context.Context, limit int) ([]model.HistoryMessage, error) {
	rows, err := r.db.Query(ctx, queryRecentMessages, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.HistoryMessage
	for rows.Next() {
		var m model.HistoryMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Time, &m.Message, &m.DonateValue, &m.AuthorName, &m.AuthorColor, &m.AuthorLevel); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (r *MessageRepository) collectIDs(ctx context.Context, query string, arg any) ([]int64, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
