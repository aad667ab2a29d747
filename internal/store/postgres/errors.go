package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates the row does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrDuplicateKey indicates a unique constraint rejected the write.
	ErrDuplicateKey = errors.New("duplicate key")
)

const uniqueViolationCode = "23505"

// isUniqueViolation reports whether err is a PostgreSQL unique_violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
