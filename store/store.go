// Package store defines the durable-tier contract used by tiercache.
//
// A Store is one logical table keyed by string, holding the encoded value
// plus the metadata the engine needs for TTL, schema validation, and LRU
// victim selection. Absence is signaled with ok=false, never an error.
// PutAll and DeleteAll must be atomic: on any failure the store is left
// exactly as it was before the call.
//
// A store is owned by a single engine instance while open; implementations
// do not need to tolerate concurrent callers beyond that.
package store

import "context"

// Row is one durable cache entry.
type Row struct {
	Key           string
	Value         []byte
	Timestamp     int64 // unix nanoseconds of last write or refreshed read
	SchemaVersion string
	Size          int64 // byte length of Value
}

type Store interface {
	// Get returns the row for key; ok=false when absent.
	Get(ctx context.Context, key string) (row Row, ok bool, err error)

	// Put inserts or replaces the row for row.Key.
	Put(ctx context.Context, row Row) error

	// PutAll inserts or replaces every row atomically; all or none.
	PutAll(ctx context.Context, rows []Row) error

	// Delete removes key. Absent keys are a no-op.
	Delete(ctx context.Context, key string) error

	// DeleteAll removes every key atomically; all or none.
	DeleteAll(ctx context.Context, keys []string) error

	// Touch updates the stored timestamp for key, if present.
	Touch(ctx context.Context, key string, ts int64) error

	// Victim returns the row with the smallest (timestamp, key), or
	// ok=false when the store is empty. Eviction calls this once per
	// removal: each deletion can change the next candidate.
	Victim(ctx context.Context) (key string, size int64, ok bool, err error)

	// Count returns the number of rows.
	Count(ctx context.Context) (int64, error)

	// TotalSize returns Σ Size over all rows; 0 when empty.
	TotalSize(ctx context.Context) (int64, error)

	// Clear removes every row.
	Clear(ctx context.Context) error

	// Close releases the store. Must be idempotent; operations after Close
	// fail with the backend's closed error.
	Close(ctx context.Context) error
}
