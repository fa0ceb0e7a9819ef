package domain

import "time"

// Document is the metadata record for a blob stored in the object store.
// The bytes themselves never pass through this service; clients upload and
// download via time-limited presigned URLs.
type Document struct {
	ID          string
	RoomID      string
	UploadedBy  string
	Filename    string
	ContentType string
	SizeBytes   int64
	SHA256Hash  string // optional client-supplied digest
	StorageKey  string
	UploadedAt  time.Time
}
