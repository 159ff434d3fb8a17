package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/vitalog/vitalog-api/internal/core/domain"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// translate maps driver errors onto domain kinds. notFound is used for
// sql.ErrNoRows; other errors are wrapped as internal.
func translate(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return domain.NewError(domain.ErrConflict, "unique constraint violation on field: %s", pgErr.ConstraintName)
		case pgForeignKeyViolation:
			return domain.NewError(domain.ErrValidation, "foreign key constraint failed")
		}
	}
	return fmt.Errorf("db error: %w", err)
}
