package learn

import (
	"context"
	"errors"
	"testing"
	"time"

	"dogebot/internal/backtest"
	"dogebot/internal/domain/models"
	"dogebot/pkg/logger"
)

type fakeMarket struct {
	candles map[models.Granularity][]models.Candle
	err     error
}

func (f *fakeMarket) ClosedCandles(_ context.Context, count int, g models.Granularity) ([]models.Candle, error) {
	c, err := f.CandlesRange(context.Background(), time.Time{}, time.Time{}, g)
	if err != nil {
		return nil, err
	}
	if len(c) > count {
		c = c[len(c)-count:]
	}
	return c, nil
}

func (f *fakeMarket) CandlesRange(_ context.Context, _, _ time.Time, g models.Granularity) ([]models.Candle, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.candles[g], nil
}

type fakeParamStore struct {
	current models.Params
	saved   []models.Params
	saveErr error
}

func (f *fakeParamStore) Load() (models.Params, string) {
	return f.current, "test"
}

func (f *fakeParamStore) Save(p models.Params) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, p)
	f.current = p
	return nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func candleSeries(closes []float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{Start: int64(i) * 21600, Close: c}
	}
	return out
}

// dipAndRecover drifts up, slides into oversold, then recovers past the
// entry price. Any sane (entry, exit) pair buys the dip and sells higher.
func dipAndRecover() []models.Candle {
	closes := make([]float64, 0, 48)
	for i := 0; i < 15; i++ {
		closes = append(closes, 100+float64(i))
	}
	for i := 1; i <= 12; i++ {
		closes = append(closes, 114-2*float64(i))
	}
	for i := 1; i <= 20; i++ {
		closes = append(closes, 90+2*float64(i))
	}
	return candleSeries(closes)
}

func flatSeries(n int) []models.Candle {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100
	}
	return candleSeries(closes)
}

func defaultConfig() Config {
	return Config{
		Period:        14,
		EntryMin:      20,
		EntryMax:      40,
		ExitMin:       45,
		ExitMax:       70,
		MinTrades:     1,
		Granularities: []models.Granularity{models.GranularitySixHour},
	}
}

func TestRunFindsAndSavesWinner(t *testing.T) {
	market := &fakeMarket{candles: map[models.Granularity][]models.Candle{
		models.GranularitySixHour: dipAndRecover(),
	}}
	store := &fakeParamStore{current: models.DefaultParams()}
	l := New(market, store, nil, testLogger(t), defaultConfig())

	out, err := l.Run(context.Background(), 30)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !out.Found {
		t.Fatalf("expected a winner on a dip-and-recover series")
	}
	if out.ReturnPct <= 0 {
		t.Fatalf("winner must be profitable, got %v%%", out.ReturnPct)
	}
	if out.Trades < 1 {
		t.Fatalf("winner must have traded, got %d", out.Trades)
	}
	if out.Params.Entry >= out.Params.Exit {
		t.Fatalf("entry %d must be below exit %d", out.Params.Entry, out.Params.Exit)
	}
	if len(store.saved) != 1 {
		t.Fatalf("want exactly one save, got %d", len(store.saved))
	}
	if store.saved[0] != out.Params {
		t.Fatalf("saved %+v, reported %+v", store.saved[0], out.Params)
	}
	if out.Params.Granularity != models.GranularitySixHour {
		t.Fatalf("winner must carry its granularity, got %s", out.Params.Granularity)
	}
}

func TestRunFlatSeriesKeepsCurrentParams(t *testing.T) {
	market := &fakeMarket{candles: map[models.Granularity][]models.Candle{
		models.GranularitySixHour: flatSeries(60),
	}}
	before := models.Params{Period: 14, Entry: 25, Exit: 55, Granularity: models.GranularitySixHour}
	store := &fakeParamStore{current: before}
	l := New(market, store, nil, testLogger(t), defaultConfig())

	out, err := l.Run(context.Background(), 30)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Found {
		t.Fatalf("flat prices never trade; got winner %+v", out.Params)
	}
	if len(store.saved) != 0 {
		t.Fatalf("no winner must mean no save, got %d saves", len(store.saved))
	}
	if store.current != before {
		t.Fatalf("persisted params changed: %+v", store.current)
	}
}

func TestRunMinTradesGatesWinner(t *testing.T) {
	market := &fakeMarket{candles: map[models.Granularity][]models.Candle{
		models.GranularitySixHour: dipAndRecover(),
	}}
	store := &fakeParamStore{current: models.DefaultParams()}
	cfg := defaultConfig()
	cfg.MinTrades = 50 // far more round trips than one dip can produce
	l := New(market, store, nil, testLogger(t), cfg)

	out, err := l.Run(context.Background(), 30)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Found {
		t.Fatalf("nothing can reach 50 trades here, got %+v", out)
	}
	if len(store.saved) != 0 {
		t.Fatalf("gated winner must not be saved")
	}
}

func TestRunFetchFailureIsNotFatal(t *testing.T) {
	market := &fakeMarket{err: errors.New("exchange down")}
	store := &fakeParamStore{current: models.DefaultParams()}
	l := New(market, store, nil, testLogger(t), defaultConfig())

	out, err := l.Run(context.Background(), 30)
	if err != nil {
		t.Fatalf("fetch failure must degrade, not fail: %v", err)
	}
	if out.Found {
		t.Fatalf("no data, no winner")
	}
}

func TestRunTooLittleHistorySkips(t *testing.T) {
	market := &fakeMarket{candles: map[models.Granularity][]models.Candle{
		models.GranularitySixHour: candleSeries([]float64{100, 101, 102}),
	}}
	store := &fakeParamStore{current: models.DefaultParams()}
	l := New(market, store, nil, testLogger(t), defaultConfig())

	out, err := l.Run(context.Background(), 1)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if out.Found || len(store.saved) != 0 {
		t.Fatalf("short history must not produce a winner")
	}
}

func TestRunSaveErrorPropagates(t *testing.T) {
	market := &fakeMarket{candles: map[models.Granularity][]models.Candle{
		models.GranularitySixHour: dipAndRecover(),
	}}
	store := &fakeParamStore{current: models.DefaultParams(), saveErr: errors.New("disk full")}
	l := New(market, store, nil, testLogger(t), defaultConfig())

	if _, err := l.Run(context.Background(), 30); err == nil {
		t.Fatalf("save failure must surface")
	}
}

func TestBetterPrefersReturnThenTrades(t *testing.T) {
	base := Outcome{Found: true, ReturnPct: 5, Trades: 4}
	if !better(backtest.Result{ReturnPct: 6, Trades: 1}, base) {
		t.Fatalf("higher return must win regardless of trades")
	}
	if better(backtest.Result{ReturnPct: 4, Trades: 100}, base) {
		t.Fatalf("lower return must lose regardless of trades")
	}
	if !better(backtest.Result{ReturnPct: 5, Trades: 5}, base) {
		t.Fatalf("equal return, more trades must win")
	}
	if better(backtest.Result{ReturnPct: 5, Trades: 4}, base) {
		t.Fatalf("exact tie must keep the incumbent")
	}
}
