package objstore

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("objstore: object not found")

// Default presign lifetimes. Uploads get a longer window since clients may
// be pushing large files; downloads are redeemed immediately.
const (
	DefaultPutTTL = 5 * time.Minute
	DefaultGetTTL = time.Minute
)

// ObjectInfo describes a stored blob.
type ObjectInfo struct {
	Key       string
	SizeBytes int64
}

// Store is a presigned-URL object store. Blobs never pass through the API
// process on the hot path: clients PUT and GET directly against the URLs.
type Store interface {
	// PresignPut returns a URL that accepts exactly one PUT of the object
	// within ttl.
	PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)

	// PresignGet returns a URL serving the object within ttl. filename
	// sets the Content-Disposition the client will see.
	PresignGet(ctx context.Context, key, filename string, ttl time.Duration) (string, error)

	// Head reports metadata for a stored object, ErrNotFound if absent.
	// Used to confirm an upload actually happened.
	Head(ctx context.Context, key string) (ObjectInfo, error)

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}
