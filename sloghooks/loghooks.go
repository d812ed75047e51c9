// Package sloghooks reports store.Hooks events through log/slog, with
// sampling for noisy events and storage keys redacted by default.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/containers/store"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery    uint64
	BatchRejectEvery uint64
	// Optional key redactor. Defaults to a SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr    atomic.Uint64
	batchRejectCtr atomic.Uint64
}

var _ store.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

// Keep names the identity redactor, for deployments where keys are not
// sensitive.
func Keep(k string) string { return k }

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

// sample passes every nth call.
func sample(n uint64, ctr *atomic.Uint64) bool {
	if n <= 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) SelfHealRecord(storageKey, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("store.self_heal_record",
		"key", h.redact(storageKey),
		"reason", reason)
}

func (h *Hooks) BatchRejected(ns string, requested int, reason string) {
	if h.l == nil || !sample(h.opts.BatchRejectEvery, &h.batchRejectCtr) {
		return
	}
	h.l.Info("store.batch_rejected",
		"ns", ns,
		"requested", requested,
		"reason", reason)
}

func (h *Hooks) ProviderSetRejected(storageKey string, isBatch bool) {
	if h.l == nil {
		return
	}
	h.l.Warn("store.provider_set_rejected",
		"key", h.redact(storageKey),
		"is_batch", isBatch)
}

func (h *Hooks) GenSnapshotError(count int, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("store.gen_snapshot_error",
		"count", count,
		"err", err)
}

func (h *Hooks) GenBumpError(storageKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("store.gen_bump_error",
		"key", h.redact(storageKey),
		"err", err)
}

func (h *Hooks) InvalidateOutage(key string, bumpErr, delErr error) {
	if h.l == nil {
		return
	}
	h.l.Error("store.invalidate_outage",
		"key", h.redact(key),
		"bump_err", bumpErr,
		"del_err", delErr)
}

func (h *Hooks) LocalGenWithBatch() {
	if h.l == nil {
		return
	}
	h.l.Warn("store.local_gen_with_batch",
		"detail", "batches over in-process generations; other replicas may read stale batches")
}
