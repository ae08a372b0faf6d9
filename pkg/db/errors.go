package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolationCode = "23505"

// IsUniqueViolation reports whether the provided error references a Postgres
// unique violation. When constraintName is provided, the match is narrowed to
// that constraint.
func IsUniqueViolation(err error, constraintName string) bool {
	if err == nil {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolationCode {
			return false
		}
		if constraintName == "" {
			return true
		}
		return pgErr.ConstraintName == constraintName
	}

	// SQLite (tests) and older drivers only expose the message text.
	msg := err.Error()
	if constraintName != "" && strings.Contains(msg, constraintName) {
		return true
	}
	return strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}
