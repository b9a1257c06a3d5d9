// Package storage keeps the binary content of file attributes. Records only
// reference blobs by key.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// BlobStore is an object store keyed by opaque strings.
type BlobStore interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
	// Get returns common.ErrorNotFound for unknown keys.
	Get(ctx context.Context, key string) ([]byte, error)
	// Delete is idempotent.
	Delete(ctx context.Context, key string) error
}

// NewStorageKey returns a fresh key for a blob of entity. Keys are never
// reused, so a replaced upload never races with readers of the old one.
func NewStorageKey(entity string) string {
	d := time.Now().UTC()
	return fmt.Sprintf("%s/%d/%02d/%02d/%v", entity, d.Year(), d.Month(), d.Day(), uuid.New())
}
