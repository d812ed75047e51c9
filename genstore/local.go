package genstore

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/unkn0wn-root/containers"
)

var ErrBadSnapshot = errors.New("genstore: bad snapshot")

// genRow is one generation table entry; its field order is the wire
// order of genTable.
type genRow struct {
	gen     uint64
	touched int64 // unix nanos of the last bump
}

// genTable is the MarshalBinary layout: a 4-byte big-endian count of
// (key, generation, touched) rows in key order.
var genTable = func() *containers.LengthPrefixedArray {
	be := containers.WithByteOrder('!')
	key, err := containers.NewLengthPrefixedString(
		containers.WithLengthCodec(containers.MustInteger(2, false, be)))
	if err != nil {
		panic(err)
	}
	row, err := containers.NewRow(key,
		containers.MustInteger(8, false, be),
		containers.MustInteger(8, true, be))
	if err != nil {
		panic(err)
	}
	arr, err := containers.NewLengthPrefixedArray(row,
		containers.WithCountCodec(containers.MustInteger(4, false, be)))
	if err != nil {
		panic(err)
	}
	return arr
}()

// LocalGenStore keeps generations in-process (default). With a cleanup
// interval and retention it prunes keys not bumped within retention.
// The table can be carried across restarts with MarshalBinary/Restore.
type LocalGenStore struct {
	mu   sync.RWMutex
	rows map[string]genRow
	now  func() time.Time

	stop      chan struct{}
	done      sync.WaitGroup
	closeOnce sync.Once
}

var _ GenStore = (*LocalGenStore)(nil)

func NewLocalGenStore(cleanupInterval, retention time.Duration) *LocalGenStore {
	s := &LocalGenStore{rows: make(map[string]genRow), now: time.Now}
	if cleanupInterval > 0 && retention > 0 {
		s.stop = make(chan struct{})
		s.done.Add(1)
		go s.sweep(cleanupInterval, retention)
	}
	return s
}

func (s *LocalGenStore) sweep(every, retention time.Duration) {
	defer s.done.Done()
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			s.Cleanup(retention)
		case <-s.stop:
			return
		}
	}
}

func (s *LocalGenStore) Snapshot(_ context.Context, storageKey string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows[storageKey].gen, nil
}

// SnapshotMany reads every key under one read lock; missing keys map to 0.
func (s *LocalGenStore) SnapshotMany(_ context.Context, storageKeys []string) (map[string]uint64, error) {
	out := make(map[string]uint64, len(storageKeys))
	s.mu.RLock()
	for _, k := range storageKeys {
		out[k] = s.rows[k].gen
	}
	s.mu.RUnlock()
	return out, nil
}

func (s *LocalGenStore) Bump(_ context.Context, storageKey string) (uint64, error) {
	now := s.now().UnixNano()
	s.mu.Lock()
	r := s.rows[storageKey]
	r.gen++
	r.touched = now
	s.rows[storageKey] = r
	s.mu.Unlock()
	return r.gen, nil
}

// Cleanup drops keys not bumped within retention. A pruned key reads as
// generation 0 again, so retention must exceed the longest record TTL.
func (s *LocalGenStore) Cleanup(retention time.Duration) {
	if retention <= 0 {
		return
	}
	cutoff := s.now().Add(-retention).UnixNano()
	s.mu.Lock()
	for k, r := range s.rows {
		if r.touched != 0 && r.touched < cutoff {
			delete(s.rows, k)
		}
	}
	s.mu.Unlock()
}

// Close stops the cleanup loop. Safe to call more than once.
func (s *LocalGenStore) Close(_ context.Context) error {
	s.closeOnce.Do(func() {
		if s.stop != nil {
			close(s.stop)
			s.done.Wait()
		}
	})
	return nil
}

// MarshalBinary encodes the generation table in key order.
func (s *LocalGenStore) MarshalBinary() ([]byte, error) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.rows))
	for k := range s.rows {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	rows := make([]any, len(keys))
	for i, k := range keys {
		r := s.rows[k]
		rows[i] = []any{k, r.gen, r.touched}
	}
	s.mu.RUnlock()

	res, err := genTable.Encode(rows)
	if err != nil {
		return nil, fmt.Errorf("genstore: marshal: %w", err)
	}
	return res.Data, nil
}

// Restore merges a MarshalBinary table. A key's generation only moves
// forward: the larger of the stored and restored values wins, so records
// written before the snapshot stay invalid.
func (s *LocalGenStore) Restore(b []byte) error {
	res, err := genTable.Decode(b, true)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}
	rows := res.Value.([]any)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range rows {
		f := v.([]any)
		k := f[0].(string)
		in := genRow{gen: f[1].(uint64), touched: f[2].(int64)}
		if cur, ok := s.rows[k]; ok && cur.gen >= in.gen {
			continue
		}
		s.rows[k] = in
	}
	return nil
}
