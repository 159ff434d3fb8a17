package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/vitalog/vitalog-api/internal/core/domain"
	"github.com/vitalog/vitalog-api/internal/core/ports"
)

const fileColumns = `id::text, filename, original_name, mime_type, size, key, url, uploaded_by, metadata, created_at, updated_at`

var errFileNotFound = domain.NewError(domain.ErrNotFound, "file not found")

type FileRepository struct {
	db DBTX
}

var _ ports.FileRepository = (*FileRepository)(nil)

func NewFileRepository(db DBTX) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, f *domain.File) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}

	var metadata []byte
	if len(f.Metadata) > 0 {
		b, err := json.Marshal(f.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		metadata = b
	}

	query :=
		`INSERT INTO files (id, filename, original_name, mime_type, size, key, url, uploaded_by, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		f.ID, f.Filename, f.OriginalName, f.MimeType, f.Size, f.Key, f.URL, f.UploadedBy, metadata,
	).Scan(&f.CreatedAt, &f.UpdatedAt)

	return translate(err, errFileNotFound)
}

func (r *FileRepository) FindByID(ctx context.Context, id string) (*domain.File, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errFileNotFound
	}
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1`
	f, err := scanFile(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translate(err, errFileNotFound)
	}
	return f, nil
}

func (r *FileRepository) FindByKey(ctx context.Context, key string) (*domain.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE key = $1`
	f, err := scanFile(r.db.QueryRowContext(ctx, query, key))
	if err != nil {
		return nil, translate(err, errFileNotFound)
	}
	return f, nil
}

// List pages through files newest first. An empty UploadedBy matches every row.
func (r *FileRepository) List(ctx context.Context, filter ports.ListFilesFilter) ([]*domain.File, int64, error) {
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	offset := (page - 1) * limit

	where := ``
	args := []any{}
	if filter.UploadedBy != "" {
		where = ` WHERE uploaded_by = $1`
		args = append(args, filter.UploadedBy)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM files`+where, args...).Scan(&total); err != nil {
		return nil, 0, translate(err, errFileNotFound)
	}

	query := fmt.Sprintf(`SELECT %s FROM files%s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		fileColumns, where, len(args)+1, len(args)+2)

	rows, err := r.db.QueryContext(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, translate(err, errFileNotFound)
	}
	defer rows.Close()

	files := make([]*domain.File, 0, limit)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, 0, translate(err, errFileNotFound)
		}
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, translate(err, errFileNotFound)
	}
	return files, total, nil
}

func (r *FileRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return errFileNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE id = $1`, id)
	if err != nil {
		return translate(err, errFileNotFound)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translate(err, errFileNotFound)
	}
	if n == 0 {
		return errFileNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFile(s scanner) (*domain.File, error) {
	var (
		f          domain.File
		uploadedBy sql.NullString
		metadata   []byte
	)
	err := s.Scan(&f.ID, &f.Filename, &f.OriginalName, &f.MimeType, &f.Size, &f.Key, &f.URL,
		&uploadedBy, &metadata, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if uploadedBy.Valid {
		v := uploadedBy.String
		f.UploadedBy = &v
	}
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &f.Metadata); err != nil {
			return nil, fmt.Errorf("decode metadata: %w", err)
		}
	}
	return &f, nil
}
