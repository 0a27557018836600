package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"ash-trivia/internal/cache"
	"ash-trivia/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// SnapshotProvider serves game snapshots through the cache. Concurrent
// misses share one load from the source.
type SnapshotProvider struct {
	source domain.GameSource
	cache  domain.Cache
	ttl    time.Duration
	logger *zap.Logger
	key    string
	group  singleflight.Group
}

// NewSnapshotProvider returns a provider. A nil cache or non-positive ttl
// turns caching off; concurrent loads are still collapsed.
func NewSnapshotProvider(source domain.GameSource, c domain.Cache, ttl time.Duration, logger *zap.Logger) *SnapshotProvider {
	return &SnapshotProvider{
		source: source,
		cache:  c,
		ttl:    ttl,
		logger: logger,
		key:    cache.GameSnapshotKey(),
	}
}

func (p *SnapshotProvider) Snapshot(ctx context.Context) (*domain.GameSnapshot, error) {
	if snap, ok := p.cached(ctx); ok {
		return snap, nil
	}

	v, err, shared := p.group.Do(p.key, func() (interface{}, error) {
		snap, err := p.source.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		p.store(ctx, snap)
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		p.logger.Debug("Game snapshot load shared with a concurrent caller")
	}
	return v.(*domain.GameSnapshot), nil
}

func (p *SnapshotProvider) cached(ctx context.Context) (*domain.GameSnapshot, bool) {
	if p.cache == nil || p.ttl <= 0 {
		return nil, false
	}
	raw, err := p.cache.Get(ctx, p.key)
	if err != nil {
		if !errors.Is(err, domain.ErrCacheMiss) {
			p.logger.Warn("Game snapshot cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var snap domain.GameSnapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		p.logger.Warn("Discarding undecodable cached game snapshot", zap.Error(err))
		return nil, false
	}
	return &snap, true
}

func (p *SnapshotProvider) store(ctx context.Context, snap *domain.GameSnapshot) {
	if p.cache == nil || p.ttl <= 0 {
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		p.logger.Warn("Failed to encode game snapshot for cache", zap.Error(err))
		return
	}
	if err := p.cache.Set(ctx, p.key, string(raw), p.ttl); err != nil {
		p.logger.Warn("Game snapshot cache write failed", zap.Error(err))
	}
}

// Invalidate drops the cached snapshot, e.g. after games were imported.
func (p *SnapshotProvider) Invalidate(ctx context.Context) error {
	if p.cache == nil {
		return nil
	}
	return p.cache.Delete(ctx, p.key)
}

var _ domain.GameSource = (*SnapshotProvider)(nil)
