// Package tiercache implements a two-tier typed object cache: a bounded
// in-process memory tier in front of a durable store, with least-recently-used
// eviction, per-tier TTL expiry, and schema-version invalidation. Reads fall
// through memory to the durable tier and promote hits back into memory; writes
// go through to both tiers. Stale, schema-mismatched, or undecodable durable
// rows are treated as misses and purged on read, never surfaced as errors.
//
// Components:
//   - store.Store: the durable tier. SQLite (store/sqlite) is the primary
//     implementation; Redis (store/redis) is provided for deployments that
//     already run a persistent Redis.
//   - codec.Codec[V]: (de)serializes V <-> []byte. The encoded length is the
//     entry's size for every cap and accounting decision.
//   - Versioned: the value-type bound. SchemaVersion() tags every durable row;
//     rows written under a different version are invisible and self-healed.
//
// One engine instance is one mutual-exclusion domain: every operation holds a
// single lock for its full duration, including durable-store I/O. The memory
// tier is always a subset of the durable tier, so Count and TotalSize report
// durable totals.
//
// Eviction order per tier: item count first, then total bytes. The victim is
// always the entry with the smallest (timestamp, key); durable evictions
// cascade into the memory tier.
package tiercache
