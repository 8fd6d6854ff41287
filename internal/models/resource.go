package models

import "time"

// ResourceKind distinguishes uploaded files from external links.
type ResourceKind string

const (
	ResourceKindLink ResourceKind = "LINK"
	ResourceKindFile ResourceKind = "FILE"
)

// Resource is a shared study material.
type Resource struct {
	ID          string       `db:"id" json:"id"`
	Title       string       `db:"title" json:"title"`
	Subject     *string      `db:"subject" json:"subject,omitempty"`
	Kind        ResourceKind `db:"kind" json:"kind"`
	URL         *string      `db:"url" json:"url,omitempty"`
	StoragePath *string      `db:"storage_path" json:"-"`
	FileName    *string      `db:"file_name" json:"file_name,omitempty"`
	MimeType    *string      `db:"mime_type" json:"mime_type,omitempty"`
	SizeBytes   *int64       `db:"size_bytes" json:"size_bytes,omitempty"`
	CreatedBy   string       `db:"created_by" json:"created_by"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
}

// CreateLinkResourceRequest shares an external link.
type CreateLinkResourceRequest struct {
	Title   string  `json:"title" validate:"required,max=200"`
	Subject *string `json:"subject" validate:"omitempty,max=120"`
	URL     string  `json:"url" validate:"required,url"`
}

// UploadResourceRequest carries an uploaded file.
type UploadResourceRequest struct {
	Title    string  `validate:"required,max=200"`
	Subject  *string `validate:"omitempty,max=120"`
	FileName string  `validate:"required"`
	MimeType string
	Size     int64
	Content  []byte
}

// ResourceDownload is a signed link for fetching a stored file.
type ResourceDownload struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}
