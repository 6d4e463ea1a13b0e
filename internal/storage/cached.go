package storage

import (
	"context"
	"time"

	"github.com/yairfalse/driftwatch/internal/cache"
	"github.com/yairfalse/driftwatch/pkg/types"
)

// CachedStore keeps recently read baselines and latest reports in memory.
// Writes go through to the wrapped store and refresh the cached entry, so
// only changes made by other processes can be stale, for at most ttl.
type CachedStore struct {
	Store
	ttl       time.Duration
	baselines *cache.Memory[*types.Snapshot]
	reports   *cache.Memory[*types.DriftReport]
}

// NewCachedStore wraps store. A non-positive ttl uses the cache default.
func NewCachedStore(store Store, ttl time.Duration) *CachedStore {
	config := cache.DefaultConfig()
	if ttl > 0 {
		config.DefaultTTL = ttl
	}
	return &CachedStore{
		Store:     store,
		ttl:       config.DefaultTTL,
		baselines: cache.NewMemory[*types.Snapshot](config),
		reports:   cache.NewMemory[*types.DriftReport](config),
	}
}

// LoadBaseline serves a copy of the cached baseline when one is live
func (c *CachedStore) LoadBaseline(ctx context.Context, env string) (*types.Snapshot, bool, error) {
	if snapshot, ok := c.baselines.Get(env); ok {
		return snapshot.Clone(), true, nil
	}

	snapshot, found, err := c.Store.LoadBaseline(ctx, env)
	if err != nil || !found {
		return snapshot, found, err
	}
	c.baselines.Set(env, snapshot.Clone(), c.ttl)
	return snapshot, true, nil
}

func (c *CachedStore) SaveBaseline(ctx context.Context, env string, snapshot *types.Snapshot) (string, error) {
	location, err := c.Store.SaveBaseline(ctx, env, snapshot)
	if err != nil {
		c.baselines.Delete(env)
		return "", err
	}
	c.baselines.Set(env, snapshot.Clone(), c.ttl)
	return location, nil
}

func (c *CachedStore) SaveReport(ctx context.Context, env string, report *types.DriftReport) (string, error) {
	location, err := c.Store.SaveReport(ctx, env, report)
	if err != nil {
		return "", err
	}
	c.reports.Set(env, report, c.ttl)
	return location, nil
}

func (c *CachedStore) LatestReport(ctx context.Context, env string) (*types.DriftReport, bool, error) {
	if report, ok := c.reports.Get(env); ok {
		return report, true, nil
	}

	report, found, err := c.Store.LatestReport(ctx, env)
	if err != nil || !found {
		return report, found, err
	}
	c.reports.Set(env, report, c.ttl)
	return report, true, nil
}

// Stats reports hit and miss counters for baselines and reports
func (c *CachedStore) Stats() (baselines, reports cache.Stats) {
	return c.baselines.Stats(), c.reports.Stats()
}
