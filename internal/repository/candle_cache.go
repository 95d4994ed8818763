package repository

import (
	"context"
	"errors"
	"time"

	"dogebot/internal/domain/models"
	drepo "dogebot/internal/domain/repository"
	"dogebot/pkg/cache"
	"dogebot/pkg/logger"
	"dogebot/pkg/util"
)

// CachedMarketData decorates a MarketData source with a cache for range
// queries. The learner re-fetches the same history for every granularity on
// every pass; caching keeps repeated passes off the exchange API. Cache
// failures degrade to the underlying source.
type CachedMarketData struct {
	source drepo.MarketData
	cache  cache.Service
	ttl    time.Duration
	log    *logger.Logger
}

func NewCachedMarketData(source drepo.MarketData, c cache.Service, ttl time.Duration, log *logger.Logger) *CachedMarketData {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedMarketData{source: source, cache: c, ttl: ttl, log: log}
}

// ClosedCandles passes through uncached: the live loop must always see the
// freshest closed bar.
func (m *CachedMarketData) ClosedCandles(ctx context.Context, count int, g models.Granularity) ([]models.Candle, error) {
	return m.source.ClosedCandles(ctx, count, g)
}

func (m *CachedMarketData) CandlesRange(ctx context.Context, start, end time.Time, g models.Granularity) ([]models.Candle, error) {
	key := rangeKey(start, end, g)

	var cached []models.Candle
	err := m.cache.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		m.log.Warn("candle cache read failed", logger.String("key", key), logger.Error(err))
	}

	candles, err := m.source.CandlesRange(ctx, start, end, g)
	if err != nil {
		return nil, err
	}
	if err := m.cache.Set(ctx, key, candles, m.ttl); err != nil {
		m.log.Warn("candle cache write failed", logger.String("key", key), logger.Error(err))
	}
	return candles, nil
}

// rangeKey truncates the bounds to the granularity window, so requests made
// seconds apart within the same window share an entry.
func rangeKey(start, end time.Time, g models.Granularity) string {
	s, e := util.AlignFromTo(start, end, g.Duration())
	return cache.GenerateKeyWithParams("candles", string(g), s.Unix(), e.Unix())
}
