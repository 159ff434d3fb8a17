package ports

import (
	"context"

	"github.com/vitalog/vitalog-api/internal/core/domain"
)

// ListFilesFilter carries the query parameters for listing file records.
type ListFilesFilter struct {
	UploadedBy string // empty = no filter
	Page       int    // 1-based
	Limit      int    // rows per page (capped at 100 by service)
}

// FileRepository defines persistence operations for file records.
// Lookups and Delete return an error wrapping domain.ErrNotFound when the
// record is absent.
type FileRepository interface {
	Create(ctx context.Context, f *domain.File) error
	FindByID(ctx context.Context, id string) (*domain.File, error)
	FindByKey(ctx context.Context, key string) (*domain.File, error)
	// List returns a page of records ordered by creation time, newest first,
	// and the total number of records matching the filter.
	List(ctx context.Context, filter ListFilesFilter) ([]*domain.File, int64, error)
	Delete(ctx context.Context, id string) error
}
