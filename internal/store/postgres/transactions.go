package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"codeberg.org/kcchat/server/internal/model"
)

const queryInsertTransaction = `
	INSERT INTO transactions (order_id, user_id, time_received, data, message, succeeded)
	VALUES ($1, $2, $3, $4, $5, $6)
`

// TransactionRepository records every donation-order verification
// attempt. order_id carries a unique index so a replayed PayPal
// callback is rejected at insert time (spec.md §4.6, §7) — callers
// detect the conflict with apierr.IsDuplicateKey.
type TransactionRepository struct {
	db *pgxpool.Pool
}

func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Insert(ctx context.Context, tx model.Transaction) error {
	_, err := r.db.Exec(ctx, queryInsertTransaction,
		tx.OrderID, tx.UserID, tx.TimeReceived, tx.Data, tx.Message, tx.Succeeded,
	)
	return err
}
