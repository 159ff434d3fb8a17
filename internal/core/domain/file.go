package domain

import "time"

// DefaultFolder is the key prefix used when the caller does not pick one.
const DefaultFolder = "uploads"

// File is the metadata record of an object held in the bucket.
type File struct {
	ID           string            `json:"id"`
	Filename     string            `json:"filename"`
	OriginalName string            `json:"originalName"`
	MimeType     string            `json:"mimeType"`
	Size         int64             `json:"size"`
	Key          string            `json:"key"`
	URL          string            `json:"url"`
	UploadedBy   *string           `json:"uploadedBy"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

// StoredObject describes a successful object-store write.
type StoredObject struct {
	Key      string
	URL      string
	Size     int64
	MimeType string
}
