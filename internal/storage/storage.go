package storage

import (
	"context"
	"errors"
	"io"
)

// ErrForeignURL marks a URL that does not resolve to an object in the owned
// bucket (e.g. a third-party host). Callers doing best-effort cascading
// deletes treat it as non-fatal.
var ErrForeignURL = errors.New("url does not belong to the asset store")

// AssetStore handles binary blob persistence for covers and narration audio.
type AssetStore interface {
	// Upload stores the blob under key and returns a durable fetchable URL.
	Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error)
	// DeleteByURL resolves url back to the object key it was uploaded under
	// and removes the blob. Returns ErrForeignURL for URLs this store does
	// not own.
	DeleteByURL(ctx context.Context, url string) error
	// Owns reports whether url points into the owned bucket.
	Owns(url string) bool
}
