package mongo

import (
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/vitalog/vitalog-api/internal/core/domain"
)

// translate maps driver errors onto domain kinds the same way the postgres
// repositories do.
func translate(err error, notFound error, field string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return notFound
	case mongo.IsDuplicateKeyError(err):
		return domain.NewError(domain.ErrConflict, "unique constraint violation on field: %s", field)
	default:
		return fmt.Errorf("mongo error: %w", err)
	}
}
