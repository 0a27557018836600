package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"ash-trivia/internal/cache"
	"ash-trivia/internal/domain"
	"ash-trivia/internal/logger"

	"go.uber.org/zap"
)

// ErrResultsNotCached is returned on a results cache miss.
var ErrResultsNotCached = errors.New("session results not found in cache")

// ResultsCache keeps the summaries of scored sessions so the bot can show
// standings without recomputing them.
type ResultsCache interface {
	Put(ctx context.Context, summary *domain.ResultsSummary) error
	Get(ctx context.Context, sessionID int64) (*domain.ResultsSummary, error)
}

type resultsCacheImpl struct {
	cache domain.Cache
	ttl   time.Duration
}

// NewResultsCache falls back to a no-op implementation when c is nil.
func NewResultsCache(c domain.Cache, ttl time.Duration) ResultsCache {
	if c == nil {
		logger.Get().Warn("ResultsCache initialized with nil cache. Service will be no-op.")
		return noopResultsCache{}
	}
	return &resultsCacheImpl{cache: c, ttl: ttl}
}

func (s *resultsCacheImpl) key(sessionID int64) string {
	return cache.SessionResultsKey(sessionID)
}

func (s *resultsCacheImpl) Put(ctx context.Context, summary *domain.ResultsSummary) error {
	if summary == nil {
		return domain.NewInvalidInputError("cannot cache nil results")
	}
	key := s.key(summary.SessionID)
	data, err := json.Marshal(summary)
	if err != nil {
		return domain.NewInternalError("failed to marshal results for caching", err)
	}
	if err := s.cache.Set(ctx, key, string(data), s.ttl); err != nil {
		return domain.NewInternalError(fmt.Sprintf("failed to cache results for key %s", key), err)
	}
	logger.Get().Debug("Cached session results", zap.String("key", key), zap.Duration("ttl", s.ttl))
	return nil
}

func (s *resultsCacheImpl) Get(ctx context.Context, sessionID int64) (*domain.ResultsSummary, error) {
	key := s.key(sessionID)
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrCacheMiss) {
			return nil, ErrResultsNotCached
		}
		return nil, domain.NewInternalError(fmt.Sprintf("failed to read results for key %s", key), err)
	}
	if data == "" {
		return nil, ErrResultsNotCached
	}
	var summary domain.ResultsSummary
	if err := json.Unmarshal([]byte(data), &summary); err != nil {
		return nil, domain.NewInternalError(fmt.Sprintf("failed to unmarshal results for key %s", key), err)
	}
	return &summary, nil
}

type noopResultsCache struct{}

func (noopResultsCache) Put(context.Context, *domain.ResultsSummary) error { return nil }

func (noopResultsCache) Get(context.Context, int64) (*domain.ResultsSummary, error) {
	return nil, ErrResultsNotCached
}
