package tiercache

import "testing"

func TestMemTierAggregates(t *testing.T) {
	m := newMemTier[string]()

	m.upsert("a", "v1", 10, 1)
	m.upsert("b", "v2", 20, 2)
	if m.len() != 2 || m.size != 30 {
		t.Fatalf("len=%d size=%d, want 2/30", m.len(), m.size)
	}

	// replace must swap the old size out of the aggregate
	m.upsert("a", "v1'", 15, 3)
	if m.len() != 2 || m.size != 35 {
		t.Fatalf("after replace: len=%d size=%d, want 2/35", m.len(), m.size)
	}

	sz, ok := m.remove("b")
	if !ok || sz != 20 || m.size != 15 {
		t.Fatalf("remove: sz=%d ok=%v size=%d", sz, ok, m.size)
	}
	if _, ok := m.remove("b"); ok {
		t.Fatalf("removing an absent key must report false")
	}
}

func TestMemTierVictimOrder(t *testing.T) {
	m := newMemTier[int]()
	m.upsert("young", 1, 1, 30)
	m.upsert("old", 2, 1, 10)
	m.upsert("middle", 3, 1, 20)

	if k, ok := m.victim(); !ok || k != "old" {
		t.Fatalf("victim = %q, want %q", k, "old")
	}

	m.touch("old", 40)
	if k, ok := m.victim(); !ok || k != "middle" {
		t.Fatalf("victim after touch = %q, want %q", k, "middle")
	}
}

func TestMemTierVictimTieBreak(t *testing.T) {
	m := newMemTier[int]()
	m.upsert("zeta", 1, 1, 5)
	m.upsert("alpha", 2, 1, 5)
	m.upsert("mu", 3, 1, 5)

	// equal timestamps resolve to the smallest key, repeatedly
	want := []string{"alpha", "mu", "zeta"}
	for _, w := range want {
		k, ok := m.evictOne()
		if !ok || k != w {
			t.Fatalf("evictOne = %q ok=%v, want %q", k, ok, w)
		}
	}
	if _, ok := m.evictOne(); ok {
		t.Fatalf("evictOne on an empty tier must report false")
	}
}

func TestMemTierReset(t *testing.T) {
	m := newMemTier[int]()
	m.upsert("a", 1, 7, 1)
	m.upsert("b", 2, 9, 2)
	m.reset()
	if m.len() != 0 || m.size != 0 {
		t.Fatalf("reset left len=%d size=%d", m.len(), m.size)
	}
}
