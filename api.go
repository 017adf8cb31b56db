package tiercache

import (
	"context"
	"time"

	c "github.com/unkn0wn-root/tiercache/codec"
	st "github.com/unkn0wn-root/tiercache/store"
)

// Cache is the two-tier typed cache API. V is the caller's value type;
// serialization is handled by a pluggable Codec[V].
//
// Every method holds the engine's single lock for its full duration,
// including durable-store I/O (Fetch runs its loader outside the lock).
type Cache[V Versioned] interface {
	// Get returns the cached value for key, memory tier first. A memory hit
	// refreshes the entry's recency in both tiers; a durable hit promotes
	// the entry into memory when it fits under MaxItemBytes. Expired,
	// schema-mismatched, or undecodable durable rows are purged and
	// reported as a plain miss (ok=false, nil error).
	Get(ctx context.Context, key string) (v V, ok bool, err error)

	// GetMany returns the found, valid subset of keys. Unlike Get it never
	// refreshes timestamps and never promotes durable hits into memory,
	// though invalid durable rows are still purged.
	GetMany(ctx context.Context, keys []string) (map[string]V, error)

	// Put writes value through to both tiers (memory only when the encoded
	// size fits under MaxItemBytes) and enforces the tier caps.
	Put(ctx context.Context, key string, value V) error

	// PutMany writes all items under one timestamp. The durable write is
	// atomic: on failure nothing persists anywhere. All keys and sizes are
	// validated before anything is written.
	PutMany(ctx context.Context, items map[string]V) error

	// Fetch returns the cached value for key or computes it with load and
	// writes the result through. Concurrent fetches of the same key share
	// one load call.
	Fetch(ctx context.Context, key string, load func(context.Context) (V, error)) (V, error)

	// Delete removes key from both tiers. Missing keys are not an error.
	Delete(ctx context.Context, key string) error

	// DeleteMany removes all keys; the durable deletion is atomic.
	DeleteMany(ctx context.Context, keys []string) error

	// Clear empties both tiers. Lifetime statistics counters survive.
	Clear(ctx context.Context) error

	// Exists reports raw presence in either tier without TTL or schema
	// validation; a stale-but-unvisited row still counts. Use Get for a
	// validated read.
	Exists(ctx context.Context, key string) (bool, error)

	// Count and TotalSize report durable-tier totals. Memory entries are
	// always a subset of the durable tier, so these are the cache totals.
	Count(ctx context.Context) (int64, error)
	TotalSize(ctx context.Context) (int64, error)

	// Stats returns a snapshot of the lifetime counters and current gauges.
	Stats(ctx context.Context) (Stats, error)

	// Close releases the durable store. Idempotent; any operation after
	// Close fails with ErrClosed.
	Close(ctx context.Context) error
}

// Cloner deep-copies values handed out from (and kept in) the memory tier so
// callers cannot mutate shared cache state. Values decoded from the durable
// tier are already private copies. Nil disables cloning; use it only when
// values are treated as immutable.
type Cloner[V any] interface {
	Clone(V) V
}

// CloneFunc adapts a function to the Cloner interface.
type CloneFunc[V any] func(V) V

func (f CloneFunc[V]) Clone(v V) V { return f(v) }

// Options tune the behavior of the engine.
// Store and the seven numeric parameters are required; the rest default.
type Options[V Versioned] struct {
	// Required.
	Store st.Store

	// Tier caps and TTLs. All seven must be positive or New fails with a
	// ConfigError.
	MaxMemoryItems int
	MaxMemoryBytes int64
	MaxDiskItems   int64
	MaxDiskBytes   int64
	MemoryTTL      time.Duration
	DiskTTL        time.Duration

	// MaxItemBytes is the memory-eligibility cutoff: values whose encoded
	// form is larger never occupy the memory tier, even when they would fit
	// under MaxMemoryBytes.
	MaxItemBytes int64

	Codec  c.Codec[V]       // nil => codec.JSON[V]{}
	Logger Logger           // nil => NopLogger
	Hooks  Hooks            // nil => NopHooks
	Cloner Cloner[V]        // nil => values returned as stored
	Now    func() time.Time // nil => time.Now; injectable for tests
}

// New validates opts, reads the expected schema version from V's zero value,
// and returns a ready engine bound to the given store.
func New[V Versioned](opts Options[V]) (Cache[V], error) {
	return newCache[V](opts)
}
