// Package ristretto is an in-process, cost-aware Provider on
// dgraph-io/ristretto.
package ristretto

import (
	"context"
	"errors"
	"time"

	rc "github.com/dgraph-io/ristretto"
	pr "github.com/unkn0wn-root/containers/provider"
)

type Provider struct {
	c          *rc.Cache
	syncWrites bool
}

var _ pr.Provider = (*Provider)(nil)

type Config struct {
	MaxCost     int64 // required; in units of SetCostFunc (bytes by default here)
	NumCounters int64 // 0 => 10 * MaxCost, capped at 1e7
	BufferItems int64 // 0 => 64
	Metrics     bool
	// SyncWrites waits for each Set to be applied so an immediate Get sees it.
	SyncWrites bool
}

func New(cfg Config) (*Provider, error) {
	if cfg.MaxCost <= 0 {
		return nil, errors.New("ristretto: MaxCost must be > 0")
	}
	if cfg.NumCounters <= 0 {
		cfg.NumCounters = min(cfg.MaxCost*10, 10_000_000)
	}
	if cfg.BufferItems <= 0 {
		cfg.BufferItems = 64
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Provider{c: c, syncWrites: cfg.SyncWrites}, nil
}

func (p *Provider) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := p.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, ok := v.([]byte)
	if !ok {
		p.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

// Set admits value with the given cost; cost <= 0 falls back to the value
// length. ok=false means ristretto dropped the write.
func (p *Provider) Set(_ context.Context, key string, value []byte, cost int64, ttl time.Duration) (bool, error) {
	if cost <= 0 {
		cost = int64(len(value))
	}
	if ttl < 0 {
		ttl = 0
	}
	ok := p.c.SetWithTTL(key, value, cost, ttl)
	if ok && p.syncWrites {
		p.c.Wait()
	}
	return ok, nil
}

func (p *Provider) Del(_ context.Context, key string) error {
	p.c.Del(key)
	return nil
}

func (p *Provider) Close(_ context.Context) error {
	p.c.Wait()
	p.c.Close()
	return nil
}

// Metrics is nil unless Config.Metrics was set.
func (p *Provider) Metrics() *rc.Metrics { return p.c.Metrics }
