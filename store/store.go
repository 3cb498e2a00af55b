// Package store provides the persistent blob store backing the weather cache.
package store

import "context"

// PersistentStore is an opaque get/set of serialized blobs by key.
// Persistence is best-effort: callers log Save failures and keep serving
// in-memory data.
type PersistentStore interface {
	Load(ctx context.Context, key string) ([]byte, bool)
	Save(ctx context.Context, key string, blob []byte) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
}
