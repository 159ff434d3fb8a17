package ports

import (
	"context"
	"time"

	"github.com/vitalog/vitalog-api/internal/core/domain"
)

// PresignOptions tunes a presigned upload URL.
type PresignOptions struct {
	Expires     time.Duration // zero means one hour
	ContentType string
}

// ObjectStore is a remote bucket addressed by string keys.
type ObjectStore interface {
	Put(ctx context.Context, key string, body []byte, mimeType string, metadata map[string]string) (*domain.StoredObject, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// Exists reports false only when the store confirms the key is absent.
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string, maxKeys int) ([]string, error)
	PresignUpload(ctx context.Context, key string, opts PresignOptions) (string, error)
	PresignDownload(ctx context.Context, key string, expires time.Duration) (string, error)
	PublicURL(key string) string
}
