package storage

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const (
	uploadTimeout = 2 * time.Minute
	deleteTimeout = 30 * time.Second
)

// GCSStore implements AssetStore on a single Cloud Storage bucket. Objects
// are exposed through the public storage.googleapis.com URL, or through the
// CDN domain when one is configured. URL-to-key resolution inverts exactly
// that mapping so a delete always targets the key the blob was uploaded under.
type GCSStore struct {
	client    *storage.Client
	bucket    string
	cdnDomain string
}

func NewGCSStore(ctx context.Context, bucket, cdnDomain string, opts ...option.ClientOption) (*GCSStore, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket name must not be empty")
	}

	opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	return &GCSStore{
		client:    client,
		bucket:    bucket,
		cdnDomain: cdnDomain,
	}, nil
}

func (s *GCSStore) Upload(ctx context.Context, key string, data io.Reader, contentType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	if contentType != "" {
		w.ContentType = contentType
	}
	if _, err := io.Copy(w, data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("failed to write object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close writer for %q: %w", key, err)
	}

	log.Printf("[Storage] Uploaded %s (%s)", key, contentType)
	return s.publicURL(key), nil
}

func (s *GCSStore) DeleteByURL(ctx context.Context, rawURL string) error {
	key, ok := s.keyFromURL(rawURL)
	if !ok {
		return fmt.Errorf("%w: %s", ErrForeignURL, rawURL)
	}

	ctx, cancel := context.WithTimeout(ctx, deleteTimeout)
	defer cancel()

	if err := s.client.Bucket(s.bucket).Object(key).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete object %q: %w", key, err)
	}
	log.Printf("[Storage] Deleted %s", key)
	return nil
}

func (s *GCSStore) Owns(rawURL string) bool {
	_, ok := s.keyFromURL(rawURL)
	return ok
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}

func (s *GCSStore) publicURL(key string) string {
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key)
}

// keyFromURL recovers the object key from a URL produced by publicURL.
func (s *GCSStore) keyFromURL(rawURL string) (string, bool) {
	prefixes := []string{
		fmt.Sprintf("https://storage.googleapis.com/%s/", s.bucket),
	}
	if s.cdnDomain != "" {
		prefixes = append(prefixes, fmt.Sprintf("https://%s/", s.cdnDomain))
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(rawURL, prefix) {
			key := strings.TrimPrefix(rawURL, prefix)
			// Strip any query string (signed URL parameters etc).
			if i := strings.Index(key, "?"); i >= 0 {
				key = key[:i]
			}
			if key != "" {
				return key, true
			}
		}
	}
	return "", false
}
