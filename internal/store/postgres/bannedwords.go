package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

const queryListBannedWords = `SELECT word FROM banned_words`

// BannedWordRepository loads the flat banned-substring set spec.md §3
// describes. The set is small and read far more often than it changes,
// so the server caches LoadAll's result in memory and checks messages
// against the cache rather than querying per message.
type BannedWordRepository struct {
	db *pgxpool.Pool
}

func NewBannedWordRepository(db *pgxpool.Pool) *BannedWordRepository {
	return &BannedWordRepository{db: db}
}

func (r *BannedWordRepository) LoadAll(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, queryListBannedWords)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var w string
		if err := rows.Scan(&w); err != nil {
			return nil, err
		}
		words = append(words, w)
	}
	return words, rows.Err()
}
