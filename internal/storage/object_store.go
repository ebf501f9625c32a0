package storage

import (
	"context"
	"time"
)

// UploadResult echoes where a blob landed.
type UploadResult struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// ObjectStore is content-addressable blob storage keyed by a deterministic
// path. Keys are version-suffixed by callers and never reused.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, mimeType string) (UploadResult, error)
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	SignedURL(key string, ttl time.Duration) (string, error)
}

// BlobKey builds the storage key for one version of one document.
func BlobKey(teamID, documentID uint, version int, filename string) string {
	return blobKey(teamID, documentID, version, filename)
}
