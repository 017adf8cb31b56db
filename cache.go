package tiercache

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/singleflight"

	c "github.com/unkn0wn-root/tiercache/codec"
	st "github.com/unkn0wn-root/tiercache/store"
)

// maxKeyLen is the maximum key length in characters.
const maxKeyLen = 256

// Self-heal reasons reported through Hooks.EntrySelfHealed.
const (
	healExpired        = "expired"
	healSchemaMismatch = "schema_mismatch"
	healDecodeError    = "decode_error"
)

type cache[V Versioned] struct {
	mu     sync.Mutex
	closed bool

	store   st.Store
	codec   c.Codec[V]
	log     Logger
	hooks   Hooks
	cloner  Cloner[V]
	now     func() time.Time
	version string // expected schema version, fixed at construction

	maxMemoryItems int
	maxMemoryBytes int64
	maxDiskItems   int64
	maxDiskBytes   int64
	memoryTTL      time.Duration
	diskTTL        time.Duration
	maxItemBytes   int64

	mem *memTier[V]

	flight singleflight.Group

	// lifetime counters; mutated only while mu is held
	memoryHits      uint64
	diskHits        uint64
	misses          uint64
	memoryEvictions uint64
	diskEvictions   uint64
	totalPuts       uint64
	totalGets       uint64
	totalDeletes    uint64
}

func newCache[V Versioned](opts Options[V]) (*cache[V], error) {
	if opts.Store == nil {
		return nil, &ConfigError{Param: "Store", Reason: "is required"}
	}
	params := []struct {
		name string
		v    int64
	}{
		{"MaxMemoryItems", int64(opts.MaxMemoryItems)},
		{"MaxMemoryBytes", opts.MaxMemoryBytes},
		{"MaxDiskItems", opts.MaxDiskItems},
		{"MaxDiskBytes", opts.MaxDiskBytes},
		{"MemoryTTL", int64(opts.MemoryTTL)},
		{"DiskTTL", int64(opts.DiskTTL)},
		{"MaxItemBytes", opts.MaxItemBytes},
	}
	for _, p := range params {
		if p.v <= 0 {
			return nil, &ConfigError{Param: p.name, Reason: "must be positive"}
		}
	}

	version, err := schemaVersionOf[V]()
	if err != nil {
		return nil, err
	}

	cc := &cache[V]{
		store:          opts.Store,
		cloner:         opts.Cloner,
		version:        version,
		maxMemoryItems: opts.MaxMemoryItems,
		maxMemoryBytes: opts.MaxMemoryBytes,
		maxDiskItems:   opts.MaxDiskItems,
		maxDiskBytes:   opts.MaxDiskBytes,
		memoryTTL:      opts.MemoryTTL,
		diskTTL:        opts.DiskTTL,
		maxItemBytes:   opts.MaxItemBytes,
		mem:            newMemTier[V](),
	}

	// defaults
	cc.codec = opts.Codec
	if cc.codec == nil {
		cc.codec = c.JSON[V]{}
	}
	cc.log = coalesce[Logger](opts.Logger, NopLogger{})
	cc.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	cc.now = opts.Now
	if cc.now == nil {
		cc.now = time.Now
	}
	return cc, nil
}

func validateKey(key string) error {
	if key == "" {
		return &KeyError{Key: key, Reason: "empty key"}
	}
	if n := utf8.RuneCountInString(key); n > maxKeyLen {
		return &KeyError{
			Key:    key,
			Reason: fmt.Sprintf("length %d exceeds maximum of %d characters", n, maxKeyLen),
		}
	}
	return nil
}

// expired reports whether an entry written/refreshed at ts has outlived ttl.
func expired(now, ts int64, ttl time.Duration) bool {
	return now-ts > int64(ttl)
}

func (c *cache[V]) cloneOut(v V) V {
	if c.cloner == nil {
		return v
	}
	return c.cloner.Clone(v)
}

// selfHeal purges a durable row discovered invalid during a read. Failure to
// delete is not an error for the caller: the row reads as a miss either way
// and will be purged again on the next visit.
func (c *cache[V]) selfHeal(ctx context.Context, key, reason string) {
	if err := c.store.Delete(ctx, key); err != nil {
		c.log.Warn("self-heal delete failed", Fields{"key": key, "reason": reason, "err": err})
	} else {
		c.log.Debug("purged durable row", Fields{"key": key, "reason": reason})
	}
	c.hooks.EntrySelfHealed(key, reason)
}

// evictMemory enforces the memory caps: item count first, then total bytes.
func (c *cache[V]) evictMemory() {
	for c.mem.len() > c.maxMemoryItems {
		k, ok := c.mem.evictOne()
		if !ok {
			break
		}
		c.memoryEvictions++
		c.hooks.EntryEvicted(TierMemory, k)
		c.log.Debug("evicted from memory (count)", Fields{"key": k})
	}
	for c.mem.size > c.maxMemoryBytes {
		k, ok := c.mem.evictOne()
		if !ok {
			break
		}
		c.memoryEvictions++
		c.hooks.EntryEvicted(TierMemory, k)
		c.log.Debug("evicted from memory (size)", Fields{"key": k})
	}
}

// evictDisk enforces the durable caps: item count first, then total bytes.
// The victim is re-queried after every deletion since each removal can
// change the next (timestamp, key) candidate. Evicted keys cascade out of
// the memory tier. Returns the evicted keys.
func (c *cache[V]) evictDisk(ctx context.Context) ([]string, error) {
	var evicted []string

	count, err := c.store.Count(ctx)
	if err != nil {
		return evicted, err
	}
	for count > c.maxDiskItems {
		k, _, ok, err := c.store.Victim(ctx)
		if err != nil {
			return evicted, err
		}
		if !ok {
			break
		}
		if err := c.store.Delete(ctx, k); err != nil {
			return evicted, err
		}
		c.mem.remove(k)
		c.diskEvictions++
		c.hooks.EntryEvicted(TierDisk, k)
		c.log.Debug("evicted from disk (count)", Fields{"key": k})
		evicted = append(evicted, k)
		count--
	}

	size, err := c.store.TotalSize(ctx)
	if err != nil {
		return evicted, err
	}
	for size > c.maxDiskBytes {
		k, sz, ok, err := c.store.Victim(ctx)
		if err != nil {
			return evicted, err
		}
		if !ok {
			break
		}
		if err := c.store.Delete(ctx, k); err != nil {
			return evicted, err
		}
		c.mem.remove(k)
		c.diskEvictions++
		c.hooks.EntryEvicted(TierDisk, k)
		c.log.Debug("evicted from disk (size)", Fields{"key": k})
		evicted = append(evicted, k)
		size -= sz
	}
	return evicted, nil
}

func (c *cache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if err := validateKey(key); err != nil {
		return zero, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return zero, false, ErrClosed
	}

	c.totalGets++
	now := c.now().UnixNano()

	if e, ok := c.mem.get(key); ok {
		if expired(now, e.ts, c.memoryTTL) {
			// stale in memory only; the durable copy gets its own TTL
			// check below
			c.mem.remove(key)
			c.log.Debug("memory entry expired", Fields{"key": key})
		} else {
			// keep the two tiers' recency in sync on every memory hit
			c.mem.touch(key, now)
			if err := c.store.Touch(ctx, key, now); err != nil {
				return zero, false, err
			}
			c.memoryHits++
			return c.cloneOut(e.value), true, nil
		}
	}

	row, ok, err := c.store.Get(ctx, key)
	if err != nil {
		return zero, false, err
	}
	if !ok {
		c.misses++
		return zero, false, nil
	}
	if expired(now, row.Timestamp, c.diskTTL) {
		c.selfHeal(ctx, key, healExpired)
		c.misses++
		return zero, false, nil
	}
	if row.SchemaVersion != c.version {
		c.selfHeal(ctx, key, healSchemaMismatch)
		c.misses++
		return zero, false, nil
	}
	v, err := c.codec.Decode(row.Value)
	if err != nil {
		c.selfHeal(ctx, key, healDecodeError)
		c.misses++
		return zero, false, nil
	}

	if err := c.store.Touch(ctx, key, now); err != nil {
		return zero, false, err
	}
	if row.Size <= c.maxItemBytes {
		c.mem.upsert(key, v, row.Size, now)
		c.evictMemory()
	}
	c.diskHits++
	return v, true, nil
}

// GetMany applies the same per-key precedence as Get but never refreshes
// timestamps and never promotes durable hits into memory. Invalid durable
// rows are still purged. Missing keys are simply absent from the result.
func (c *cache[V]) GetMany(ctx context.Context, keys []string) (map[string]V, error) {
	for _, k := range keys {
		if err := validateKey(k); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}

	out := make(map[string]V, len(keys))
	now := c.now().UnixNano()

	for _, key := range keys {
		c.totalGets++

		if e, ok := c.mem.get(key); ok {
			if expired(now, e.ts, c.memoryTTL) {
				c.mem.remove(key)
			} else {
				out[key] = c.cloneOut(e.value)
				c.memoryHits++
				continue
			}
		}

		row, ok, err := c.store.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			c.misses++
			continue
		}
		if expired(now, row.Timestamp, c.diskTTL) {
			c.selfHeal(ctx, key, healExpired)
			c.misses++
			continue
		}
		if row.SchemaVersion != c.version {
			c.selfHeal(ctx, key, healSchemaMismatch)
			c.misses++
			continue
		}
		v, err := c.codec.Decode(row.Value)
		if err != nil {
			c.selfHeal(ctx, key, healDecodeError)
			c.misses++
			continue
		}

		out[key] = v
		c.diskHits++
	}
	return out, nil
}

func (c *cache[V]) Put(ctx context.Context, key string, value V) error {
	if err := validateKey(key); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	b, err := c.codec.Encode(value)
	if err != nil {
		return err
	}
	size := int64(len(b))
	if size > c.maxDiskBytes {
		return &TooLargeError{Key: key, Size: size, Limit: c.maxDiskBytes}
	}

	now := c.now().UnixNano()
	row := st.Row{Key: key, Value: b, Timestamp: now, SchemaVersion: c.version, Size: size}
	if err := c.store.Put(ctx, row); err != nil {
		return err
	}
	evicted, err := c.evictDisk(ctx)
	if err != nil {
		return err
	}

	switch {
	case size > c.maxItemBytes:
		// oversized values never occupy the memory tier, even when they
		// overwrite a previously memory-resident entry
		c.mem.remove(key)
	case slices.Contains(evicted, key):
		// the fresh row was itself the durable victim (all-equal-timestamp
		// tie); re-adding it to memory would break the subset invariant
	default:
		c.mem.upsert(key, c.cloneOut(value), size, now)
		c.evictMemory()
	}

	c.totalPuts++
	c.log.Debug("put", Fields{"key": key, "size": size})
	return nil
}

// PutMany validates every key and size up front, lands all rows in one
// atomic durable write, and only then touches the memory tier. All items
// share the same timestamp.
func (c *cache[V]) PutMany(ctx context.Context, items map[string]V) error {
	for k := range items {
		if err := validateKey(k); err != nil {
			return err
		}
	}
	if len(items) == 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	now := c.now().UnixNano()
	rows := make([]st.Row, 0, len(items))
	sizes := make(map[string]int64, len(items))
	for k, v := range items {
		b, err := c.codec.Encode(v)
		if err != nil {
			return err
		}
		size := int64(len(b))
		if size > c.maxDiskBytes {
			return &TooLargeError{Key: k, Size: size, Limit: c.maxDiskBytes}
		}
		rows = append(rows, st.Row{Key: k, Value: b, Timestamp: now, SchemaVersion: c.version, Size: size})
		sizes[k] = size
	}

	if err := c.store.PutAll(ctx, rows); err != nil {
		return err
	}

	for k, v := range items {
		if sizes[k] <= c.maxItemBytes {
			c.mem.upsert(k, c.cloneOut(v), sizes[k], now)
		} else {
			c.mem.remove(k)
		}
	}
	c.evictMemory()
	if _, err := c.evictDisk(ctx); err != nil {
		return err
	}

	c.totalPuts += uint64(len(items))
	c.log.Debug("put_many", Fields{"count": len(items)})
	return nil
}

func (c *cache[V]) Fetch(ctx context.Context, key string, load func(context.Context) (V, error)) (V, error) {
	var zero V
	if v, ok, err := c.Get(ctx, key); err != nil || ok {
		return v, err
	}

	res, err, _ := c.flight.Do(key, func() (any, error) {
		// a concurrent fetch may have populated the key while this call
		// waited its turn
		if v, ok, err := c.Get(ctx, key); err != nil {
			return nil, err
		} else if ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.Put(ctx, key, v); err != nil {
			return nil, err
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	return res.(V), nil
}

func (c *cache[V]) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	c.mem.remove(key)
	if err := c.store.Delete(ctx, key); err != nil {
		return err
	}
	// counts even when the key did not exist
	c.totalDeletes++
	c.log.Debug("delete", Fields{"key": key})
	return nil
}

func (c *cache[V]) DeleteMany(ctx context.Context, keys []string) error {
	for _, k := range keys {
		if err := validateKey(k); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	for _, k := range keys {
		c.mem.remove(k)
	}
	if err := c.store.DeleteAll(ctx, keys); err != nil {
		return err
	}
	c.totalDeletes += uint64(len(keys))
	c.log.Debug("delete_many", Fields{"count": len(keys)})
	return nil
}

func (c *cache[V]) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}

	// lifetime counters deliberately survive Clear
	c.mem.reset()
	return c.store.Clear(ctx)
}

func (c *cache[V]) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false, ErrClosed
	}

	if _, ok := c.mem.get(key); ok {
		return true, nil
	}
	_, ok, err := c.store.Get(ctx, key)
	return ok, err
}

func (c *cache[V]) Count(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClosed
	}
	return c.store.Count(ctx)
}

func (c *cache[V]) TotalSize(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClosed
	}
	return c.store.TotalSize(ctx)
}

func (c *cache[V]) Stats(ctx context.Context) (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return Stats{}, ErrClosed
	}

	diskItems, err := c.store.Count(ctx)
	if err != nil {
		return Stats{}, err
	}
	return Stats{
		MemoryHits:      c.memoryHits,
		DiskHits:        c.diskHits,
		Misses:          c.misses,
		MemoryEvictions: c.memoryEvictions,
		DiskEvictions:   c.diskEvictions,
		TotalPuts:       c.totalPuts,
		TotalGets:       c.totalGets,
		TotalDeletes:    c.totalDeletes,
		MemoryItems:     c.mem.len(),
		DiskItems:       diskItems,
	}, nil
}

func (c *cache[V]) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.store.Close(ctx)
}
