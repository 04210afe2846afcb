// Package apierr centralizes error classification and HTTP response
// helpers. The convention, carried over from the teacher: REST handlers
// call the helpers here (they log once and respond); WebSocket handlers
// log via logger.ErrorErr and send a status/servermsg frame themselves;
// repositories only wrap errors with fmt.Errorf and never log.
package apierr

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Category buckets a classified error for structured logging.
type Category string

const (
	CategoryDatabase   Category = "database"
	CategoryNetwork    Category = "network"
	CategoryValidation Category = "validation"
	CategoryAuth       Category = "auth"
	CategoryNotFound   Category = "not_found"
	CategoryTimeout    Category = "timeout"
	CategoryUnknown    Category = "unknown"
)

// Info is the result of classifying an error.
type Info struct {
	Category  Category
	Sanitized string
}

// uniqueViolation is the Postgres SQLSTATE for a unique-index conflict —
// the idiomatic pgx equivalent of the MySQL native error code 1062 that
// spec.md §7 calls out for duplicate transactions and duplicate renames.
const uniqueViolation = "23505"

// IsDuplicateKey reports whether err is a unique-constraint violation.
func IsDuplicateKey(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Classify inspects err and returns its category and a message safe to
// log or surface, in order: pgx-specific errors, context errors, then a
// substring-matching fallback for everything else.
func Classify(err error) Info {
	if err == nil {
		return Info{CategoryUnknown, ""}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return Info{CategoryDatabase, err.Error()}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return Info{CategoryNotFound, err.Error()}
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Info{CategoryTimeout, err.Error()}
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return Info{CategoryTimeout, err.Error()}
	case strings.Contains(msg, "not found") || strings.Contains(msg, "no rows"):
		return Info{CategoryNotFound, err.Error()}
	case strings.Contains(msg, "database") || strings.Contains(msg, "sql") || strings.Contains(msg, "postgres"):
		return Info{CategoryDatabase, err.Error()}
	case strings.Contains(msg, "connection") || strings.Contains(msg, "network") || strings.Contains(msg, "dial"):
		return Info{CategoryNetwork, err.Error()}
	case strings.Contains(msg, "validation") || strings.Contains(msg, "invalid") || strings.Contains(msg, "required"):
		return Info{CategoryValidation, err.Error()}
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "forbidden") || strings.Contains(msg, "permission"):
		return Info{CategoryAuth, err.Error()}
	default:
		return Info{CategoryUnknown, err.Error()}
	}
}
