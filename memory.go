package tiercache

// memEntry is the memory-tier materialization of a cache entry. size is the
// byte length of the encoded value, not of the in-memory representation.
type memEntry[V any] struct {
	value V
	size  int64
	ts    int64 // unix nanoseconds of last write or refreshed read
}

// memTier is the bounded in-process tier: a plain map plus running
// aggregates, with deterministic LRU victim selection. It never evicts on
// its own; the engine runs eviction explicitly after growth.
// Not safe for concurrent use - the engine serializes all access.
type memTier[V any] struct {
	entries map[string]memEntry[V]
	size    int64 // Σ entry.size over entries, maintained on every mutation
}

func newMemTier[V any]() *memTier[V] {
	return &memTier[V]{entries: make(map[string]memEntry[V])}
}

func (m *memTier[V]) get(key string) (memEntry[V], bool) {
	e, ok := m.entries[key]
	return e, ok
}

func (m *memTier[V]) len() int { return len(m.entries) }

// upsert inserts or replaces; on replace the old size leaves the aggregate
// before the new one is added.
func (m *memTier[V]) upsert(key string, value V, size, ts int64) {
	if old, ok := m.entries[key]; ok {
		m.size -= old.size
	}
	m.entries[key] = memEntry[V]{value: value, size: size, ts: ts}
	m.size += size
}

// touch refreshes the recency timestamp of an existing entry.
func (m *memTier[V]) touch(key string, ts int64) {
	if e, ok := m.entries[key]; ok {
		e.ts = ts
		m.entries[key] = e
	}
}

// remove deletes key if present and returns its size.
func (m *memTier[V]) remove(key string) (int64, bool) {
	e, ok := m.entries[key]
	if !ok {
		return 0, false
	}
	delete(m.entries, key)
	m.size -= e.size
	return e.size, true
}

// victim returns the LRU entry: smallest timestamp, ties broken by the
// lexicographically smallest key. A full scan keeps the order total and
// deterministic without an auxiliary index.
func (m *memTier[V]) victim() (string, bool) {
	var (
		found bool
		key   string
		ts    int64
	)
	for k, e := range m.entries {
		if !found || e.ts < ts || (e.ts == ts && k < key) {
			found, key, ts = true, k, e.ts
		}
	}
	return key, found
}

// evictOne removes and returns the current LRU victim.
func (m *memTier[V]) evictOne() (string, bool) {
	k, ok := m.victim()
	if !ok {
		return "", false
	}
	m.remove(k)
	return k, true
}

func (m *memTier[V]) reset() {
	m.entries = make(map[string]memEntry[V])
	m.size = 0
}
