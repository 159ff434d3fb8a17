package service

import (
	"context"
	"fmt"
	"math"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/vitalog/vitalog-api/internal/core/domain"
	"github.com/vitalog/vitalog-api/internal/core/ports"
)

const (
	presignExpiry      = time.Hour
	defaultListLimit   = 20
	maxListLimit       = 100
	defaultConcurrency = 4
)

// UploadConfig bounds what the upload pipeline accepts.
type UploadConfig struct {
	MaxFileSize      int64
	AllowedMimeTypes []string
	Concurrency      int
}

// UploadService validates files, writes them to the object store and keeps
// their metadata in the file repository.
type UploadService struct {
	store   ports.ObjectStore
	files   ports.FileRepository
	cfg     UploadConfig
	allowed map[string]struct{}
	logger  zerolog.Logger
}

var _ ports.UploadService = (*UploadService)(nil)

func NewUploadService(store ports.ObjectStore, files ports.FileRepository, cfg UploadConfig, logger zerolog.Logger) *UploadService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedMimeTypes))
	for _, m := range cfg.AllowedMimeTypes {
		allowed[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	return &UploadService{store: store, files: files, cfg: cfg, allowed: allowed, logger: logger}
}

// UploadFile stores one file and records it. The object is written first; if
// the record cannot be created the object stays in the bucket and is logged.
func (s *UploadService) UploadFile(ctx context.Context, file ports.UploadInput, opts ports.UploadOptions) (*domain.File, error) {
	if err := s.validateFile(file); err != nil {
		return nil, err
	}

	key := objectKey(opts.Folder, file.Filename)
	stored, err := s.store.Put(ctx, key, file.Data, file.MimeType, opts.Metadata)
	if err != nil {
		return nil, err
	}

	record := &domain.File{
		Filename:     path.Base(key),
		OriginalName: file.Filename,
		MimeType:     file.MimeType,
		Size:         stored.Size,
		Key:          stored.Key,
		URL:          stored.URL,
		UploadedBy:   optional(opts.UploadedBy),
		Metadata:     opts.Metadata,
	}
	if err := s.files.Create(ctx, record); err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("file record not created; object orphaned")
		return nil, err
	}

	s.logger.Info().Str("file_id", record.ID).Str("key", key).Int64("size", record.Size).Msg("file uploaded")
	return record, nil
}

// UploadFiles uploads files concurrently. The returned slice holds, in input
// order, every file that committed; err is the first failure, if any.
func (s *UploadService) UploadFiles(ctx context.Context, files []ports.UploadInput, opts ports.UploadOptions) ([]*domain.File, error) {
	results := make([]*domain.File, len(files))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, f := range files {
		g.Go(func() error {
			rec, err := s.UploadFile(ctx, f, opts)
			if err != nil {
				return err
			}
			results[i] = rec
			return nil
		})
	}
	err := g.Wait()

	committed := make([]*domain.File, 0, len(files))
	for _, r := range results {
		if r != nil {
			committed = append(committed, r)
		}
	}
	return committed, err
}

// PresignUpload hands out a direct-to-bucket PUT URL. Only the MIME type can
// be checked up front; nothing is recorded until ConfirmUpload.
func (s *UploadService) PresignUpload(ctx context.Context, filename, mimeType, folder string) (*ports.PresignedUpload, error) {
	if err := s.validateMime(mimeType); err != nil {
		return nil, err
	}

	key := objectKey(folder, filename)
	url, err := s.store.PresignUpload(ctx, key, ports.PresignOptions{Expires: presignExpiry, ContentType: mimeType})
	if err != nil {
		return nil, err
	}
	return &ports.PresignedUpload{URL: url, Key: key, ExpiresIn: int64(presignExpiry / time.Second)}, nil
}

// ConfirmUpload records an object a client uploaded through a presigned URL.
func (s *UploadService) ConfirmUpload(ctx context.Context, input ports.ConfirmInput) (*domain.File, error) {
	exists, err := s.store.Exists(ctx, input.Key)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrFileNotStored
	}

	record := &domain.File{
		Filename:     path.Base(input.Key),
		OriginalName: input.OriginalName,
		MimeType:     input.MimeType,
		Size:         input.Size,
		Key:          input.Key,
		URL:          s.store.PublicURL(input.Key),
		UploadedBy:   optional(input.UploadedBy),
	}
	if err := s.files.Create(ctx, record); err != nil {
		return nil, err
	}

	s.logger.Info().Str("file_id", record.ID).Str("key", record.Key).Msg("presigned upload confirmed")
	return record, nil
}

// ListFiles returns one page of records, newest first.
func (s *UploadService) ListFiles(ctx context.Context, page, limit int, uploadedBy string) (*ports.FileList, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	files, total, err := s.files.List(ctx, ports.ListFilesFilter{UploadedBy: uploadedBy, Page: page, Limit: limit})
	if err != nil {
		return nil, err
	}
	if files == nil {
		files = []*domain.File{}
	}

	return &ports.FileList{
		Files: files,
		Total: total,
		Pages: int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

func (s *UploadService) GetFile(ctx context.Context, id string) (*domain.File, error) {
	return s.files.FindByID(ctx, id)
}

func (s *UploadService) GetFileByKey(ctx context.Context, key string) (*domain.File, error) {
	return s.files.FindByKey(ctx, key)
}

// DownloadURL presigns a GET for the object behind file id.
func (s *UploadService) DownloadURL(ctx context.Context, id string) (*ports.DownloadLink, error) {
	file, err := s.files.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	url, err := s.store.PresignDownload(ctx, file.Key, presignExpiry)
	if err != nil {
		return nil, err
	}
	return &ports.DownloadLink{URL: url, ExpiresIn: int64(presignExpiry / time.Second)}, nil
}

// DeleteFile removes the object and then its record. A failed object delete
// leaves the record untouched.
func (s *UploadService) DeleteFile(ctx context.Context, id string) error {
	file, err := s.files.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, file.Key); err != nil {
		return err
	}
	if err := s.files.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info().Str("file_id", id).Str("key", file.Key).Msg("file deleted")
	return nil
}

func (s *UploadService) validateFile(file ports.UploadInput) error {
	if len(file.Data) == 0 {
		return domain.ErrEmptyFile
	}
	if s.cfg.MaxFileSize > 0 && int64(len(file.Data)) > s.cfg.MaxFileSize {
		return domain.NewError(domain.ErrValidation, "file size exceeds maximum allowed size of %sMB", formatMB(s.cfg.MaxFileSize))
	}
	return s.validateMime(file.MimeType)
}

func (s *UploadService) validateMime(mimeType string) error {
	if _, ok := s.allowed[strings.ToLower(mimeType)]; ok {
		return nil
	}
	allowed := "none configured"
	if len(s.cfg.AllowedMimeTypes) > 0 {
		allowed = strings.Join(s.cfg.AllowedMimeTypes, ", ")
	}
	return domain.NewError(domain.ErrValidation, "file type %s is not allowed. Allowed types: %s", mimeType, allowed)
}

// objectKey builds {folder}/{uuid}{ext}. The caller's filename only
// contributes its extension.
func objectKey(folder, filename string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		folder = domain.DefaultFolder
	}
	return folder + "/" + uuid.NewString() + path.Ext(filename)
}

func formatMB(n int64) string {
	mb := float64(n) / (1024 * 1024)
	if mb == math.Trunc(mb) {
		return fmt.Sprintf("%d", int64(mb))
	}
	return fmt.Sprintf("%.2f", mb)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
