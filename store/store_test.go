package store

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/unkn0wn-root/containers"
	"github.com/unkn0wn-root/containers/codec"
	"github.com/unkn0wn-root/containers/internal/wire"
	pr "github.com/unkn0wn-root/containers/provider"
)

type memEntry struct {
	v   []byte
	exp time.Time // zero => no TTL
}

type memProvider struct {
	m      map[string]memEntry
	reject bool
	delErr error
}

var _ pr.Provider = (*memProvider)(nil)

func newMemProvider() *memProvider { return &memProvider{m: make(map[string]memEntry)} }

func (p *memProvider) Get(_ context.Context, key string) ([]byte, bool, error) {
	e, ok := p.m[key]
	if !ok {
		return nil, false, nil
	}
	if !e.exp.IsZero() && time.Now().After(e.exp) {
		delete(p.m, key)
		return nil, false, nil
	}
	return e.v, true, nil
}

func (p *memProvider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	if p.reject {
		return false, nil
	}
	var exp time.Time
	if ttl > 0 {
		exp = time.Now().Add(ttl)
	}
	p.m[key] = memEntry{v: value, exp: exp}
	return true, nil
}

func (p *memProvider) Del(_ context.Context, key string) error {
	if p.delErr != nil {
		return p.delErr
	}
	delete(p.m, key)
	return nil
}

func (p *memProvider) Close(_ context.Context) error { return nil }

func (p *memProvider) hasPrefix(prefix string) bool {
	for k := range p.m {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

// failingGens errors on every call.
type failingGens struct{ err error }

func (g failingGens) Snapshot(context.Context, string) (uint64, error) { return 0, g.err }
func (g failingGens) SnapshotMany(context.Context, []string) (map[string]uint64, error) {
	return nil, g.err
}
func (g failingGens) Bump(context.Context, string) (uint64, error) { return 0, g.err }
func (g failingGens) Cleanup(time.Duration)                        {}
func (g failingGens) Close(context.Context) error                  { return nil }

type recordingHooks struct {
	NopHooks
	mu        sync.Mutex
	selfHeals []string
	batchRej  []string
	setRej    int
	outages   int
	localGen  int
	snapErrs  int
}

func (h *recordingHooks) SelfHealRecord(_ string, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.selfHeals = append(h.selfHeals, reason)
}

func (h *recordingHooks) BatchRejected(_ string, _ int, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.batchRej = append(h.batchRej, reason)
}

func (h *recordingHooks) ProviderSetRejected(string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.setRej++
}

func (h *recordingHooks) GenSnapshotError(int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapErrs++
}

func (h *recordingHooks) InvalidateOutage(string, error, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.outages++
}

func (h *recordingHooks) LocalGenWithBatch() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.localGen++
}

type user struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestStore(t *testing.T, ns string, mp pr.Provider, optsOpt func(*Options[user])) Store[user] {
	t.Helper()
	opts := Options[user]{
		Namespace: ns,
		Provider:  mp,
		Codec:     codec.JSON[user]{},
	}
	if optsOpt != nil {
		optsOpt(&opts)
	}
	s, err := New[user](opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func mustImpl[V any](t *testing.T, s Store[V]) *store[V] {
	t.Helper()
	impl, ok := s.(*store[V])
	if !ok {
		t.Fatalf("unexpected concrete type for Store")
	}
	return impl
}

func TestNewValidation(t *testing.T) {
	mp := newMemProvider()
	cases := []Options[user]{
		{Namespace: "u", Codec: codec.JSON[user]{}},
		{Provider: mp, Codec: codec.JSON[user]{}},
		{Namespace: "u", Provider: mp},
	}
	for i, o := range cases {
		if _, err := New[user](o); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

// TestRecordCASFlow verifies CAS write, read, invalidation, and stale write skip.
func TestRecordCASFlow(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	s := newTestStore(t, "user", mp, nil)
	defer s.Close(ctx)

	k := "u:1"
	v := user{ID: "1", Name: "Ada"}

	if got, ok, err := s.Get(ctx, k); err != nil || ok {
		t.Fatalf("Get miss expected, got ok=%v err=%v val=%v", ok, err, got)
	}

	obs := s.SnapshotGen(k)
	if obs != 0 {
		t.Fatalf("SnapshotGen expected 0, got %d", obs)
	}
	if err := s.SetWithGen(ctx, k, v, obs, 0); err != nil {
		t.Fatalf("SetWithGen: %v", err)
	}
	if got, ok, err := s.Get(ctx, k); err != nil || !ok || got != v {
		t.Fatalf("Get after set: ok=%v err=%v got=%v", ok, err, got)
	}

	if err := s.Invalidate(ctx, k); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, ok, err := s.Get(ctx, k); err != nil || ok {
		t.Fatalf("Get after invalidate should miss, ok=%v err=%v", ok, err)
	}

	// stale write with the old observed gen is skipped
	if err := s.SetWithGen(ctx, k, v, 0, 0); err != nil {
		t.Fatalf("SetWithGen stale: %v", err)
	}
	if _, ok, _ := s.Get(ctx, k); ok {
		t.Fatalf("stale write should not populate store")
	}

	obs2 := s.SnapshotGen(k)
	if err := s.SetWithGen(ctx, k, v, obs2, 0); err != nil {
		t.Fatalf("SetWithGen (fresh): %v", err)
	}
	if got, ok, err := s.Get(ctx, k); err != nil || !ok || got != v {
		t.Fatalf("Get after fresh set: ok=%v err=%v got=%v", ok, err, got)
	}
}

// TestSelfHeal ensures corrupt frames, stale generations and undecodable
// payloads are deleted and reported.
func TestSelfHeal(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	hooks := &recordingHooks{}
	s := newTestStore(t, "user", mp, func(o *Options[user]) { o.Hooks = hooks })
	defer s.Close(ctx)
	impl := mustImpl(t, s)

	k := "bad"
	storageKey := impl.recordKey(k)

	// corrupt bytes
	_, _ = mp.Set(ctx, storageKey, []byte("not-a-frame"), 1, time.Minute)
	if _, ok, err := s.Get(ctx, k); err != nil || ok {
		t.Fatalf("Get on corrupt should miss, ok=%v err=%v", ok, err)
	}
	if _, ok, _ := mp.Get(ctx, storageKey); ok {
		t.Fatalf("corrupt entry was not deleted")
	}

	// valid frame, then made stale
	payload, err := codec.JSON[user]{}.Encode(user{ID: "x", Name: "X"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	frame, err := wire.EncodeRecord(0, payload)
	if err != nil {
		t.Fatalf("EncodeRecord: %v", err)
	}
	_, _ = mp.Set(ctx, storageKey, frame, 1, time.Minute)
	if _, err := impl.gen.Bump(ctx, storageKey); err != nil {
		t.Fatalf("Bump: %v", err)
	}
	if _, ok, err := s.Get(ctx, k); err != nil || ok {
		t.Fatalf("Get on stale record should miss, ok=%v err=%v", ok, err)
	}

	// current gen, payload that is not JSON
	frame, _ = wire.EncodeRecord(s.SnapshotGen(k), []byte("{"))
	_, _ = mp.Set(ctx, storageKey, frame, 1, time.Minute)
	if _, ok, err := s.Get(ctx, k); err != nil || ok {
		t.Fatalf("Get on undecodable payload should miss, ok=%v err=%v", ok, err)
	}

	want := []string{ReasonCorrupt, ReasonGenMismatch, ReasonValueDecode}
	if strings.Join(hooks.selfHeals, ",") != strings.Join(want, ",") {
		t.Fatalf("self-heal reasons: got %v want %v", hooks.selfHeals, want)
	}
	if hooks.localGen != 1 {
		t.Fatalf("LocalGenWithBatch: got %d calls", hooks.localGen)
	}
}

// TestContainerBackedStore stores ordered maps through an OrderedDictionary.
func TestContainerBackedStore(t *testing.T) {
	ctx := context.Background()
	key, err := containers.NewLengthPrefixedString(containers.WithLengthCodec(containers.MustInteger(1, false)))
	if err != nil {
		t.Fatal(err)
	}
	dict, err := containers.NewOrderedDictionary(key, containers.MustInteger(8, true))
	if err != nil {
		t.Fatal(err)
	}
	s, err := New[*containers.OrderedMap](Options[*containers.OrderedMap]{
		Namespace: "scores",
		Provider:  newMemProvider(),
		Container: dict,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close(ctx)

	in := containers.NewOrderedMap(containers.Pair{Key: "zed", Value: -3}, containers.Pair{Key: "amy", Value: 10})
	if err := s.SetWithGen(ctx, "board", in, s.SnapshotGen("board"), 0); err != nil {
		t.Fatalf("SetWithGen: %v", err)
	}
	got, ok, err := s.Get(ctx, "board")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	want := containers.NewOrderedMap(containers.Pair{Key: "zed", Value: int64(-3)}, containers.Pair{Key: "amy", Value: int64(10)})
	if !got.Equal(want) {
		t.Fatalf("Get: got %v want %v", got.Pairs(), want.Pairs())
	}
}

func TestMaxPayload(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, "user", newMemProvider(), func(o *Options[user]) { o.MaxPayload = 8 })
	defer s.Close(ctx)
	err := s.SetWithGen(ctx, "k", user{ID: "long-id", Name: "long-name"}, 0, 0)
	if !errors.Is(err, codec.ErrTooLarge) {
		t.Fatalf("want ErrTooLarge, got %v", err)
	}
}

func TestProviderRejectAndOutage(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	hooks := &recordingHooks{}
	s := newTestStore(t, "user", mp, func(o *Options[user]) {
		o.Hooks = hooks
		o.GenStore = failingGens{err: errors.New("gens down")}
	})
	defer s.Close(ctx)

	mp.reject = true
	if err := s.SetWithGen(ctx, "k", user{ID: "1"}, 0, 0); err != nil {
		t.Fatalf("SetWithGen: %v", err)
	}
	if hooks.setRej != 1 {
		t.Fatalf("ProviderSetRejected: got %d", hooks.setRej)
	}
	if hooks.snapErrs == 0 {
		t.Fatalf("expected GenSnapshotError")
	}

	mp.delErr = errors.New("provider down")
	if err := s.Invalidate(ctx, "k"); err == nil {
		t.Fatalf("expected error when bump and delete both fail")
	}
	if hooks.outages != 1 {
		t.Fatalf("InvalidateOutage: got %d", hooks.outages)
	}
	if hooks.localGen != 0 {
		t.Fatalf("LocalGenWithBatch fired with an explicit GenStore")
	}
}

func TestDisabled(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	s := newTestStore(t, "user", mp, func(o *Options[user]) { o.Disabled = true })
	defer s.Close(ctx)
	if s.Enabled() {
		t.Fatalf("expected disabled")
	}
	if err := s.SetWithGen(ctx, "k", user{ID: "1"}, 0, 0); err != nil {
		t.Fatalf("SetWithGen: %v", err)
	}
	if len(mp.m) != 0 {
		t.Fatalf("disabled store wrote %d entries", len(mp.m))
	}
	_, missing, _ := s.GetBatch(ctx, []string{"a", "b"})
	if len(missing) != 2 {
		t.Fatalf("disabled GetBatch: missing=%v", missing)
	}
}

// TestBatchHappyAndStale: invalidating one member rejects the batch and
// falls back to records, reporting only that member missing.
func TestBatchHappyAndStale(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	hooks := &recordingHooks{}
	s := newTestStore(t, "user", mp, func(o *Options[user]) { o.Hooks = hooks })
	defer s.Close(ctx)

	keys := []string{"a", "b", "c"}
	items := map[string]user{
		"a": {ID: "a", Name: "A"},
		"b": {ID: "b", Name: "B"},
		"c": {ID: "c", Name: "C"},
	}
	snap := s.SnapshotGens(keys)
	if err := s.SetBatchWithGens(ctx, items, snap, 0); err != nil {
		t.Fatalf("SetBatchWithGens: %v", err)
	}

	got, missing, err := s.GetBatch(ctx, keys)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if len(missing) != 0 || len(got) != len(items) {
		t.Fatalf("GetBatch expected all hit, missing=%v got=%v", missing, got)
	}

	if err := s.Invalidate(ctx, "b"); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	got2, missing2, err := s.GetBatch(ctx, keys)
	if err != nil {
		t.Fatalf("GetBatch after invalidate: %v", err)
	}
	if len(missing2) != 1 || missing2[0] != "b" {
		t.Fatalf("expected only 'b' missing, got %v", missing2)
	}
	if _, ok := got2["a"]; !ok {
		t.Fatalf("expected 'a' present after batch rejection")
	}
	if mp.hasPrefix("batch:user:") {
		t.Fatalf("stale batch should have been deleted")
	}
	if len(hooks.batchRej) != 1 || hooks.batchRej[0] != ReasonBatchStale {
		t.Fatalf("BatchRejected: got %v", hooks.batchRej)
	}
}

func TestBatchDisabled(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	s := newTestStore(t, "user", mp, func(o *Options[user]) { o.DisableBatch = true })
	defer s.Close(ctx)

	keys := []string{"x", "y"}
	items := map[string]user{"x": {ID: "x"}, "y": {ID: "y"}}
	if err := s.SetBatchWithGens(ctx, items, s.SnapshotGens(keys), 0); err != nil {
		t.Fatalf("SetBatchWithGens: %v", err)
	}
	got, missing, err := s.GetBatch(ctx, keys)
	if err != nil || len(missing) != 0 || len(got) != 2 {
		t.Fatalf("GetBatch: got=%v missing=%v err=%v", got, missing, err)
	}
	if mp.hasPrefix("batch:user:") {
		t.Fatalf("batch disabled but a batch key was written")
	}
}

// TestBatchOrderAndDuplicatesHit: the same set in any order, with
// duplicates, maps to one batch key and is served from it.
func TestBatchOrderAndDuplicatesHit(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	s := newTestStore(t, "user", mp, nil)
	defer s.Close(ctx)
	impl := mustImpl(t, s)

	items := map[string]user{
		"u1": {ID: "u1", Name: "A"},
		"u3": {ID: "u3", Name: "B"},
		"u4": {ID: "u4", Name: "C"},
	}
	snap := s.SnapshotGens([]string{"u1", "u3", "u4"})
	if err := s.SetBatchWithGens(ctx, items, snap, 0); err != nil {
		t.Fatalf("SetBatchWithGens: %v", err)
	}
	// drop records so reads must use the batch
	for k := range items {
		_ = mp.Del(ctx, impl.recordKey(k))
	}

	got, missing, err := s.GetBatch(ctx, []string{"u3", "u1", "u3", "u4"})
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if len(missing) != 0 || len(got) != 3 {
		t.Fatalf("expected 3 hits, got %v missing %v", got, missing)
	}
	if !mp.hasPrefix("batch:user:") {
		t.Fatalf("expected batch entry to remain after valid hit")
	}
	// records are warmed from the batch
	if _, ok, _ := s.Get(ctx, "u1"); !ok {
		t.Fatalf("expected u1 record warmed from batch")
	}

	k1 := impl.batchKey(uniqSorted([]string{"u3", "u1", "u4"}))
	k2 := impl.batchKey(uniqSorted([]string{"u1", "u3", "u3", "u4"}))
	if k1 != k2 {
		t.Fatalf("batch keys differ: %q vs %q", k1, k2)
	}
}

func TestBatchCorruptRejected(t *testing.T) {
	ctx := context.Background()
	mp := newMemProvider()
	hooks := &recordingHooks{}
	s := newTestStore(t, "user", mp, func(o *Options[user]) { o.Hooks = hooks })
	defer s.Close(ctx)
	impl := mustImpl(t, s)

	bk := impl.batchKey(uniqSorted([]string{"p", "q"}))
	_, _ = mp.Set(ctx, bk, []byte("garbage"), 1, time.Minute)
	_, missing, err := s.GetBatch(ctx, []string{"p", "q"})
	if err != nil || len(missing) != 2 {
		t.Fatalf("GetBatch: missing=%v err=%v", missing, err)
	}
	if _, ok, _ := mp.Get(ctx, bk); ok {
		t.Fatalf("corrupt batch was not deleted")
	}
	if len(hooks.batchRej) != 1 || hooks.batchRej[0] != ReasonBatchDecode {
		t.Fatalf("BatchRejected: got %v", hooks.batchRej)
	}
}
