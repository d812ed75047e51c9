// Package asynchook moves store.Hooks callbacks off the hot path.
//
// Usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{
//	    SelfHealEvery:    10, // sample: ~every 10th self-heal
//	    BatchRejectEvery: 1,  // log every batch rejection
//	})
//
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	s, _ := store.New[User](store.Options[User]{
//	    Namespace: "app:prod:user",
//	    Provider:  provider,
//	    Codec:     codec.JSON[User]{},
//	    GenStore:  genstore.NewRedisGenStoreWithTTL(rdb, "app:prod:user", 24*time.Hour),
//	    Hooks:     hooks, // or raw for synchronous delivery
//	})
package asynchook

import (
	"sync"
	"sync/atomic"

	"github.com/unkn0wn-root/containers/store"
)

// Hooks queues events for a worker pool. When the queue is full the event
// is dropped and counted. Calls after Close are dropped.
type Hooks struct {
	inner   store.Hooks
	q       chan func()
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Uint64
}

var _ store.Hooks = (*Hooks)(nil)

func New(inner store.Hooks, workers, qlen int) *Hooks {
	if inner == nil {
		inner = store.NopHooks{}
	}
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers.
func (h *Hooks) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	close(h.q)
	h.mu.Unlock()
	h.wg.Wait()
}

// Dropped is the number of events discarded so far.
func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		h.dropped.Add(1)
		return
	}
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) SelfHealRecord(k, r string)       { h.try(func() { h.inner.SelfHealRecord(k, r) }) }
func (h *Hooks) GenBumpError(k string, err error) { h.try(func() { h.inner.GenBumpError(k, err) }) }
func (h *Hooks) LocalGenWithBatch()               { h.try(func() { h.inner.LocalGenWithBatch() }) }
func (h *Hooks) BatchRejected(ns string, n int, r string) {
	h.try(func() { h.inner.BatchRejected(ns, n, r) })
}
func (h *Hooks) ProviderSetRejected(k string, b bool) {
	h.try(func() { h.inner.ProviderSetRejected(k, b) })
}
func (h *Hooks) GenSnapshotError(n int, err error) {
	h.try(func() { h.inner.GenSnapshotError(n, err) })
}
func (h *Hooks) InvalidateOutage(k string, be, de error) {
	h.try(func() { h.inner.InvalidateOutage(k, be, de) })
}
