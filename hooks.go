package tiercache

// Tier names one of the two storage layers.
type Tier string

const (
	TierMemory Tier = "memory"
	TierDisk   Tier = "disk"
)

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking: the engine calls them on
// hot paths while holding its lock. Wrap with hooks/async to decouple.
type Hooks interface {
	// A durable row was purged during a read.
	// reason ∈ {"expired", "schema_mismatch", "decode_error"}
	EntrySelfHealed(key, reason string)

	// An entry was evicted from a tier to satisfy its caps. Disk evictions
	// cascade: the same key may also be reported for the memory tier.
	EntryEvicted(tier Tier, key string)
}

// NopHooks is the default no-op
type NopHooks struct{}

func (NopHooks) EntrySelfHealed(string, string) {}
func (NopHooks) EntryEvicted(Tier, string)      {}
