package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/kcchat/server/internal/model"
)

const (
	queryListSimpleResponses = `
		SELECT command, response FROM simple_responses ORDER BY command
	`

	queryInsertSimpleResponse = `
		INSERT INTO simple_responses (command, response) VALUES ($1, $2)
	`

	queryUpdateSimpleResponse = `
		UPDATE simple_responses SET response = $2 WHERE command = $1
	`

	queryDeleteSimpleResponse = `
		DELETE FROM simple_responses WHERE command = $1
	`
)

// ResponseRepository persists the dynamic !command table addcom/editcom/
// delcom maintain, so it survives a restart (spec.md §4.2).
type ResponseRepository struct {
	db *pgxpool.Pool
}

func NewResponseRepository(db *pgxpool.Pool) *ResponseRepository {
	return &ResponseRepository{db: db}
}

// LoadAll returns every persisted SimpleResponse, used at startup to
// repopulate the in-memory command registry.
func (r *ResponseRepository) LoadAll(ctx context.Context) ([]model.SimpleResponse, error) {
	rows, err := r.db.Query(ctx, queryListSimpleResponses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SimpleResponse
	for rows.Next() {
		var sr model.SimpleResponse
		if err := rows.Scan(&sr.Command, &sr.Response); err != nil {
			return nil, err
		}
		out = append(out, sr)
	}
	return out, rows.Err()
}

func (r *ResponseRepository) Add(ctx context.Context, command, response string) error {
	_, err := r.db.Exec(ctx, queryInsertSimpleResponse, command, response)
	return err
}

func (r *ResponseRepository) Edit(ctx context.Context, command, response string) error {
	_, err := r.db.Exec(ctx, queryUpdateSimpleResponse, command, response)
	return err
}

func (r *ResponseRepository) Remove(ctx context.Context, command string) error {
	_, err := r.db.Exec(ctx, queryDeleteSimpleResponse, command)
	return err
}
