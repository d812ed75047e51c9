package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/containers/codec"
	gen "github.com/unkn0wn-root/containers/genstore"
	"github.com/unkn0wn-root/containers/internal/wire"
	pr "github.com/unkn0wn-root/containers/provider"
)

type store[V any] struct {
	ns             string
	provider       pr.Provider
	codec          codec.Codec[V]
	log            Logger
	hooks          Hooks
	enabled        bool
	batchEnabled   bool
	defaultTTL     time.Duration
	batchTTL       time.Duration
	computeSetCost SetCostFunc
	gen            gen.GenStore
}

func newStore[V any](opts Options[V]) (*store[V], error) {
	if opts.Provider == nil {
		return nil, fmt.Errorf("store: provider is required")
	}
	if opts.Namespace == "" {
		return nil, fmt.Errorf("store: namespace is required")
	}
	cd := opts.Codec
	if cd == nil {
		if opts.Container == nil {
			return nil, fmt.Errorf("store: codec or container is required")
		}
		cd = codec.Container[V]{C: opts.Container}
	}
	if opts.MaxPayload > 0 {
		cd = codec.LimitCodec[V]{Inner: cd, MaxEncode: opts.MaxPayload, MaxDecode: opts.MaxPayload}
	}

	s := &store[V]{
		ns:           opts.Namespace,
		provider:     opts.Provider,
		codec:        cd,
		enabled:      !opts.Disabled,
		batchEnabled: !opts.DisableBatch,
	}

	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	s.defaultTTL = coalesce(opts.DefaultTTL, defaultTTL)
	s.batchTTL = coalesce(opts.BatchTTL, defaultTTL)

	if opts.ComputeSetCost != nil {
		s.computeSetCost = opts.ComputeSetCost
	} else {
		s.computeSetCost = func(string, []byte, bool, int) int64 { return 1 }
	}

	if opts.GenStore != nil {
		s.gen = opts.GenStore
	} else {
		s.gen = gen.NewLocalGenStore(
			coalesce(opts.CleanupInterval, defaultSweep),
			coalesce(opts.GenRetention, defaultGenRetention),
		)
		if s.enabled && s.batchEnabled {
			s.hooks.LocalGenWithBatch()
			s.log.Warn("batches enabled with in-process generations", Fields{"ns": s.ns})
		}
	}
	return s, nil
}

func (s *store[V]) Enabled() bool { return s.enabled }

func (s *store[V]) Close(ctx context.Context) error {
	// gen store first, best effort
	if s.gen != nil {
		_ = s.gen.Close(ctx)
	}
	return s.provider.Close(ctx)
}

func (s *store[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	if !s.enabled {
		return zero, false, nil
	}
	k := s.recordKey(key)
	raw, ok, err := s.provider.Get(ctx, k)
	if err != nil || !ok {
		return zero, false, err
	}
	g, payload, err := wire.DecodeRecord(raw)
	if err != nil {
		s.selfHeal(ctx, k, ReasonCorrupt, err)
		return zero, false, nil
	}
	if g != s.snapshotGen(k) {
		s.selfHeal(ctx, k, ReasonGenMismatch, nil)
		return zero, false, nil
	}
	v, err := s.codec.Decode(payload)
	if err != nil {
		s.selfHeal(ctx, k, ReasonValueDecode, err)
		return zero, false, nil
	}
	return v, true, nil
}

func (s *store[V]) selfHeal(ctx context.Context, storageKey, reason string, cause error) {
	_ = s.provider.Del(ctx, storageKey)
	s.hooks.SelfHealRecord(storageKey, reason)
	f := Fields{"key": storageKey, "reason": reason}
	if cause != nil {
		f["err"] = cause
	}
	s.log.Debug("self-healed record", f)
}

func (s *store[V]) SetWithGen(ctx context.Context, key string, value V, observedGen uint64, ttl time.Duration) error {
	if !s.enabled {
		return nil
	}
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	k := s.recordKey(key)
	if s.snapshotGen(k) != observedGen {
		s.log.Debug("SetWithGen skipped (gen mismatch)", Fields{"key": key, "obs": observedGen})
		return nil
	}
	payload, err := s.codec.Encode(value)
	if err != nil {
		return err
	}
	frame, err := wire.EncodeRecord(observedGen, payload)
	if err != nil {
		return err
	}
	ok, err := s.provider.Set(ctx, k, frame, s.computeSetCost(k, frame, false, 1), ttl)
	if err != nil {
		return err
	}
	if !ok {
		s.hooks.ProviderSetRejected(k, false)
		s.log.Debug("SetWithGen rejected by provider", Fields{"key": key})
	}
	return nil
}

// Invalidate bumps the generation and deletes the record. It fails only
// when both steps fail.
func (s *store[V]) Invalidate(ctx context.Context, key string) error {
	if !s.enabled {
		return nil
	}
	k := s.recordKey(key)
	newGen, bumpErr := s.gen.Bump(ctx, k)
	if bumpErr != nil {
		s.hooks.GenBumpError(k, bumpErr)
		s.log.Error("gen bump error", Fields{"key": k, "err": bumpErr})
	}
	delErr := s.provider.Del(ctx, k)
	if bumpErr != nil && delErr != nil {
		s.hooks.InvalidateOutage(key, bumpErr, delErr)
		return errors.Join(bumpErr, delErr)
	}
	s.log.Debug("invalidated record", Fields{"key": key, "newGen": newGen})
	return nil
}

func (s *store[V]) GetBatch(ctx context.Context, keys []string) (map[string]V, []string, error) {
	out := make(map[string]V, len(keys))
	if !s.enabled {
		return out, append([]string(nil), keys...), nil
	}
	if len(keys) == 0 {
		return out, nil, nil
	}

	if s.batchEnabled {
		if vals, missing, ok := s.readBatch(ctx, keys); ok {
			return vals, missing, nil
		}
	}

	var missing []string
	for _, k := range keys {
		v, ok, err := s.Get(ctx, k)
		if err != nil {
			return out, nil, err
		}
		if ok {
			out[k] = v
		} else {
			missing = append(missing, k)
		}
	}
	return out, missing, nil
}

// readBatch serves keys from a batch entry; ok=false means fall back.
func (s *store[V]) readBatch(ctx context.Context, keys []string) (map[string]V, []string, bool) {
	sorted := uniqSorted(keys)
	bk := s.batchKey(sorted)
	raw, ok, err := s.provider.Get(ctx, bk)
	if err != nil || !ok {
		return nil, nil, false
	}
	items, err := wire.DecodeBatch(raw)
	if err != nil {
		_ = s.provider.Del(ctx, bk)
		s.hooks.BatchRejected(s.ns, len(keys), ReasonBatchDecode)
		return nil, nil, false
	}
	valid, err := s.batchValid(ctx, items)
	if err != nil {
		s.hooks.BatchRejected(s.ns, len(keys), ReasonBatchSnapshot)
		return nil, nil, false
	}
	if !valid {
		_ = s.provider.Del(ctx, bk)
		s.hooks.BatchRejected(s.ns, len(keys), ReasonBatchStale)
		return nil, nil, false
	}

	byKey := make(map[string]V, len(items))
	genByKey := make(map[string]uint64, len(items))
	for _, it := range items {
		v, err := s.codec.Decode(it.Payload)
		if err != nil {
			continue
		}
		byKey[it.Key] = v
		genByKey[it.Key] = it.Gen
	}
	out := make(map[string]V, len(keys))
	var missing []string
	for _, k := range keys {
		v, ok := byKey[k]
		if !ok {
			missing = append(missing, k)
			continue
		}
		out[k] = v
		// warm the record; CAS protected
		_ = s.SetWithGen(ctx, k, v, genByKey[k], s.defaultTTL)
	}
	return out, missing, true
}

func (s *store[V]) batchValid(ctx context.Context, items []wire.BatchItem) (bool, error) {
	storage := make([]string, len(items))
	for i, it := range items {
		storage[i] = s.recordKey(it.Key)
	}
	gens, err := s.gen.SnapshotMany(ctx, storage)
	if err != nil {
		s.hooks.GenSnapshotError(len(storage), err)
		return false, err
	}
	for i, it := range items {
		if gens[storage[i]] != it.Gen {
			return false, nil
		}
	}
	return true, nil
}

func (s *store[V]) SetBatchWithGens(ctx context.Context, items map[string]V, observedGens map[string]uint64, ttl time.Duration) error {
	if !s.enabled || len(items) == 0 {
		return nil
	}
	if !s.batchEnabled {
		return s.seedRecords(ctx, items, observedGens)
	}
	if ttl == 0 {
		ttl = s.batchTTL
	}

	keys := make([]string, 0, len(items))
	for k := range items {
		keys = append(keys, k)
	}
	keys = uniqSorted(keys)

	for _, k := range keys {
		obs, ok := observedGens[k]
		if !ok || s.snapshotGen(s.recordKey(k)) != obs {
			s.log.Debug("SetBatchWithGens skipped (gen mismatch)", Fields{"key": k})
			return s.seedRecords(ctx, items, observedGens)
		}
	}

	wireItems := make([]wire.BatchItem, 0, len(items))
	for _, k := range keys {
		payload, err := s.codec.Encode(items[k])
		if err != nil {
			return err
		}
		wireItems = append(wireItems, wire.BatchItem{Key: k, Gen: observedGens[k], Payload: payload})
	}
	frame, err := wire.EncodeBatch(wireItems)
	if err != nil {
		return err
	}

	bk := s.batchKey(keys)
	ok, err := s.provider.Set(ctx, bk, frame, s.computeSetCost(bk, frame, true, len(items)), ttl)
	if err != nil {
		return err
	}
	if !ok {
		s.hooks.ProviderSetRejected(bk, true)
		s.log.Debug("batch Set rejected; seeding records", Fields{"batchKey": bk})
	}
	return s.seedRecords(ctx, items, observedGens)
}

// seedRecords writes every item that has an observed generation,
// best effort.
func (s *store[V]) seedRecords(ctx context.Context, items map[string]V, observedGens map[string]uint64) error {
	for k, v := range items {
		if obs, ok := observedGens[k]; ok {
			_ = s.SetWithGen(ctx, k, v, obs, s.defaultTTL)
		}
	}
	return nil
}

func (s *store[V]) SnapshotGen(key string) uint64 {
	return s.snapshotGen(s.recordKey(key))
}

func (s *store[V]) SnapshotGens(keys []string) map[string]uint64 {
	storage := make([]string, len(keys))
	for i, k := range keys {
		storage[i] = s.recordKey(k)
	}
	out := make(map[string]uint64, len(keys))
	m, err := s.gen.SnapshotMany(context.Background(), storage)
	if err != nil {
		s.hooks.GenSnapshotError(len(keys), err)
		// conservative fallback: one by one
		for _, k := range keys {
			out[k] = s.SnapshotGen(k)
		}
		return out
	}
	for i, k := range keys {
		out[k] = m[storage[i]]
	}
	return out
}

func (s *store[V]) snapshotGen(storageKey string) uint64 {
	g, err := s.gen.Snapshot(context.Background(), storageKey)
	if err != nil {
		// treat as 0 so CAS writes skip and reads self-heal
		s.hooks.GenSnapshotError(1, err)
		s.log.Warn("gen snapshot error", Fields{"key": storageKey, "err": err})
		return 0
	}
	return g
}
