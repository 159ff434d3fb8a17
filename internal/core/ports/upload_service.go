package ports

import (
	"context"

	"github.com/vitalog/vitalog-api/internal/core/domain"
)

// UploadInput is a file received from the transport layer.
type UploadInput struct {
	Filename string
	MimeType string
	Data     []byte
}

// UploadOptions tunes where and how an upload is stored.
type UploadOptions struct {
	Folder     string
	UploadedBy string
	Metadata   map[string]string
}

// PresignedUpload is handed to clients that upload straight to the bucket.
type PresignedUpload struct {
	URL       string `json:"url"`
	Key       string `json:"key"`
	ExpiresIn int64  `json:"expiresIn"`
}

// ConfirmInput finalizes a presigned upload.
type ConfirmInput struct {
	Key          string
	OriginalName string
	MimeType     string
	Size         int64
	UploadedBy   string
}

// FileList is one page of file records.
type FileList struct {
	Files []*domain.File `json:"files"`
	Total int64          `json:"total"`
	Pages int            `json:"pages"`
}

// DownloadLink is a time-boxed GET URL for a stored file.
type DownloadLink struct {
	URL       string `json:"url"`
	ExpiresIn int64  `json:"expiresIn"`
}

// UploadService defines the upload pipeline use cases.
type UploadService interface {
	UploadFile(ctx context.Context, file UploadInput, opts UploadOptions) (*domain.File, error)
	UploadFiles(ctx context.Context, files []UploadInput, opts UploadOptions) ([]*domain.File, error)
	PresignUpload(ctx context.Context, filename, mimeType, folder string) (*PresignedUpload, error)
	ConfirmUpload(ctx context.Context, input ConfirmInput) (*domain.File, error)
	ListFiles(ctx context.Context, page, limit int, uploadedBy string) (*FileList, error)
	GetFile(ctx context.Context, id string) (*domain.File, error)
	GetFileByKey(ctx context.Context, key string) (*domain.File, error)
	DownloadURL(ctx context.Context, id string) (*DownloadLink, error)
	DeleteFile(ctx context.Context, id string) error
}
