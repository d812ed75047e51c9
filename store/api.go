// Package store keeps container-encoded values in a byte Provider with
// generation-checked writes.
//
//	s, _ := store.New[*containers.OrderedMap](store.Options[*containers.OrderedMap]{
//	    Namespace: "scores",
//	    Provider:  p,
//	    Container: dict, // an *containers.OrderedDictionary
//	})
//	obs := s.SnapshotGen("board") // before reading the source of truth
//	_ = s.SetWithGen(ctx, "board", m, obs, 0)
//
// A write whose observed generation is no longer current is skipped, so a
// slow writer can never overwrite a newer Invalidate.
package store

import (
	"context"
	"time"

	"github.com/unkn0wn-root/containers"
	"github.com/unkn0wn-root/containers/codec"
	gen "github.com/unkn0wn-root/containers/genstore"
	pr "github.com/unkn0wn-root/containers/provider"
)

type SetCostFunc func(key string, raw []byte, isBatch bool, batchCount int) int64

// Store keeps typed records in a byte Provider. Writes are generation
// checked (compare-and-swap against a snapshot taken before the source
// read) and reads never return a record older than the latest Invalidate.
type Store[V any] interface {
	Enabled() bool
	Close(context.Context) error

	Get(ctx context.Context, key string) (v V, ok bool, err error)
	SetWithGen(ctx context.Context, key string, value V, observedGen uint64, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error

	// Batches are validated per member on read and dropped if any member
	// is stale. Returned maps are unordered.
	GetBatch(ctx context.Context, keys []string) (values map[string]V, missing []string, err error)
	SetBatchWithGens(ctx context.Context, items map[string]V, observedGens map[string]uint64, ttl time.Duration) error

	SnapshotGen(key string) uint64
	SnapshotGens(keys []string) map[string]uint64
}

// Options configure a Store. Namespace, Provider and one of Codec or
// Container are required.
type Options[V any] struct {
	Namespace string // e.g. "user", "profile", "order"
	Provider  pr.Provider

	// Codec serializes V. When nil, Container is used through
	// codec.Container[V], so V must match the container's decoded value.
	Codec     codec.Codec[V]
	Container containers.Container
	// MaxPayload bounds encoded and decoded payloads (0 = unbounded).
	MaxPayload int

	Logger          Logger        // nil => NopLogger
	Hooks           Hooks         // nil => NopHooks
	DefaultTTL      time.Duration // records; 0 => 10m
	BatchTTL        time.Duration // batches; 0 => 10m
	CleanupInterval time.Duration // 0 => 1h
	GenRetention    time.Duration // 0 => 30d
	Disabled        bool
	ComputeSetCost  SetCostFunc  // default 1
	GenStore        gen.GenStore // nil => LocalGenStore
	DisableBatch    bool
}

func New[V any](opts Options[V]) (Store[V], error) {
	return newStore[V](opts)
}
