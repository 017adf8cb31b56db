// Package asynchook decorates a tiercache.Hooks so the engine never blocks
// on observers: events are queued and delivered by background workers, and
// dropped when the queue is full.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{SelfHealEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := tiercache.New[User](tiercache.Options[User]{
//	    Store: st,
//	    Hooks: hooks, // or `raw` if you don't want async
//	    ...
//	})
package asynchook

import (
	"sync"

	"github.com/sourcegraph/conc"

	"github.com/unkn0wn-root/tiercache"
)

type Hooks struct {
	inner tiercache.Hooks
	q     chan func()
	wg    conc.WaitGroup
	once  sync.Once
}

var _ tiercache.Hooks = (*Hooks)(nil)

func New(inner tiercache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	for i := 0; i < workers; i++ {
		h.wg.Go(func() {
			for f := range h.q {
				f()
			}
		})
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) EntrySelfHealed(key, reason string) {
	h.try(func() { h.inner.EntrySelfHealed(key, reason) })
}

func (h *Hooks) EntryEvicted(tier tiercache.Tier, key string) {
	h.try(func() { h.inner.EntryEvicted(tier, key) })
}
