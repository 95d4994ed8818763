package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"dogebot/internal/domain/models"
	"dogebot/pkg/cache"
)

type countingMarket struct {
	candles []models.Candle
	ranges  int
	closed  int
	err     error
}

func (m *countingMarket) ClosedCandles(ctx context.Context, count int, g models.Granularity) ([]models.Candle, error) {
	m.closed++
	return m.candles, m.err
}

func (m *countingMarket) CandlesRange(ctx context.Context, start, end time.Time, g models.Granularity) ([]models.Candle, error) {
	m.ranges++
	return m.candles, m.err
}

func hourlyBars(n int) []models.Candle {
	candles := make([]models.Candle, n)
	for i := range candles {
		candles[i] = models.Candle{Start: int64(3600 * i), Close: 0.2, Volume: 100}
	}
	return candles
}

func TestCandlesRangeHitsCacheWithinWindow(t *testing.T) {
	source := &countingMarket{candles: hourlyBars(10)}
	cached := NewCachedMarketData(source, cache.NewMemoryCache(), time.Minute, testLogger(t))

	from := time.Unix(0, 0)
	to := time.Unix(10*3600, 0)
	ctx := context.Background()

	first, err := cached.CandlesRange(ctx, from, to, models.GranularityOneHour)
	if err != nil {
		t.Fatalf("first fetch: %v", err)
	}
	// Seconds later, same granularity window: must come from cache.
	second, err := cached.CandlesRange(ctx, from.Add(30*time.Second), to.Add(30*time.Second), models.GranularityOneHour)
	if err != nil {
		t.Fatalf("second fetch: %v", err)
	}
	if source.ranges != 1 {
		t.Fatalf("want one source fetch, got %d", source.ranges)
	}
	if len(first) != 10 || len(second) != 10 {
		t.Fatalf("candles lost in the cache: %d then %d", len(first), len(second))
	}
}

func TestCandlesRangeDistinctWindowsDoNotShare(t *testing.T) {
	source := &countingMarket{candles: hourlyBars(5)}
	cached := NewCachedMarketData(source, cache.NewMemoryCache(), time.Minute, testLogger(t))

	ctx := context.Background()
	if _, err := cached.CandlesRange(ctx, time.Unix(0, 0), time.Unix(5*3600, 0), models.GranularityOneHour); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if _, err := cached.CandlesRange(ctx, time.Unix(0, 0), time.Unix(5*3600, 0), models.GranularitySixHour); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if source.ranges != 2 {
		t.Fatalf("different granularities must not share entries, got %d fetches", source.ranges)
	}
}

func TestClosedCandlesBypassesCache(t *testing.T) {
	source := &countingMarket{candles: hourlyBars(3)}
	cached := NewCachedMarketData(source, cache.NewMemoryCache(), time.Minute, testLogger(t))

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := cached.ClosedCandles(ctx, 3, models.GranularityOneHour); err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
	}
	if source.closed != 3 {
		t.Fatalf("live path must always hit the source, got %d fetches", source.closed)
	}
}

func TestCandlesRangeSourceErrorPropagates(t *testing.T) {
	source := &countingMarket{err: errors.New("exchange down")}
	cached := NewCachedMarketData(source, cache.NewMemoryCache(), time.Minute, testLogger(t))

	if _, err := cached.CandlesRange(context.Background(), time.Unix(0, 0), time.Unix(3600, 0), models.GranularityOneHour); err == nil {
		t.Fatalf("want source error to surface")
	}
}
