// Package bigcache is an in-process Provider on allegro/bigcache.
//
// BigCache only has a global LifeWindow, so each value is stored behind an
// 8-byte big-endian deadline (unix nanos, 0 = none) and expired entries are
// dropped on read. Get returns the value without the deadline.
package bigcache

import (
	"context"
	"errors"
	"time"

	bc "github.com/allegro/bigcache/v3"
	"github.com/unkn0wn-root/containers"
	pr "github.com/unkn0wn-root/containers/provider"
)

var deadline = containers.MustInteger(8, true, containers.WithByteOrder('!'))

type Provider struct {
	c   *bc.BigCache
	now func() time.Time
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	LifeWindow         time.Duration // upper bound on any entry's life
	CleanWindow        time.Duration
	MaxEntriesInWindow int
	MaxEntrySize       int
	HardMaxCacheSizeMB int // ~ memory limit; 0 = unlimited
	Shards             int // power of two; 0 = bigcache default
}

func New(cfg Config) (*Provider, error) {
	if cfg.LifeWindow <= 0 {
		return nil, errors.New("bigcache: LifeWindow must be > 0")
	}
	conf := bc.DefaultConfig(cfg.LifeWindow)
	if cfg.CleanWindow > 0 {
		conf.CleanWindow = cfg.CleanWindow
	}
	if cfg.MaxEntriesInWindow > 0 {
		conf.MaxEntriesInWindow = cfg.MaxEntriesInWindow
	}
	if cfg.MaxEntrySize > 0 {
		conf.MaxEntrySize = cfg.MaxEntrySize
	}
	if cfg.HardMaxCacheSizeMB > 0 {
		conf.HardMaxCacheSize = cfg.HardMaxCacheSizeMB
	}
	if cfg.Shards > 0 {
		conf.Shards = cfg.Shards
	}
	c, err := bc.New(context.Background(), conf)
	if err != nil {
		return nil, err
	}
	return &Provider{c: c, now: time.Now}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	b, err := p.c.Get(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	h, err := deadline.Decode(b, false)
	if err != nil {
		// not written by this provider
		_ = p.c.Delete(key)
		return nil, false, nil
	}
	if at := h.Value.(int64); at != 0 && p.now().UnixNano() >= at {
		_ = p.c.Delete(key)
		return nil, false, nil
	}
	return b[h.DataSize:], true, nil
}

// Set stores value until ttl elapses or the LifeWindow evicts it,
// whichever comes first. ttl <= 0 means no per-entry deadline.
func (p *Provider) Set(_ context.Context, key string, value []byte, _ int64, ttl time.Duration) (bool, error) {
	var at int64
	if ttl > 0 {
		at = p.now().Add(ttl).UnixNano()
	}
	h, err := deadline.Encode(at)
	if err != nil {
		return false, err
	}
	buf := make([]byte, 0, h.DataSize+len(value))
	buf = append(append(buf, h.Data...), value...)
	if err := p.c.Set(key, buf); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	err := p.c.Delete(key)
	if errors.Is(err, bc.ErrEntryNotFound) {
		return nil
	}
	return err
}

func (p *Provider) Close(_ context.Context) error {
	return p.c.Close()
}
