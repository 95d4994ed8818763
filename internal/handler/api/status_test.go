package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"dogebot/internal/domain/models"
	"dogebot/pkg/logger"
)

type memStatusSink struct {
	last models.Status
	set  bool
}

func (m *memStatusSink) Write(s models.Status) error {
	m.last = s
	m.set = true
	return nil
}

func (m *memStatusSink) Last() (models.Status, bool) { return m.last, m.set }

type memParamStore struct {
	p      models.Params
	source string
}

func (m *memParamStore) Load() (models.Params, string) { return m.p, m.source }
func (m *memParamStore) Save(p models.Params) error    { m.p = p; return nil }

type fakeMarket struct {
	candles []models.Candle
}

func (f *fakeMarket) ClosedCandles(ctx context.Context, count int, g models.Granularity) ([]models.Candle, error) {
	if count < len(f.candles) {
		return f.candles[len(f.candles)-count:], nil
	}
	return f.candles, nil
}

func (f *fakeMarket) CandlesRange(ctx context.Context, start, end time.Time, g models.Granularity) ([]models.Candle, error) {
	return f.candles, nil
}

// dipAndRecover builds a series that rallies, sells off hard, and recovers,
// so an RSI dip-buyer completes at least one profitable round trip.
func dipAndRecover() []models.Candle {
	price := 100.0
	var candles []models.Candle
	step := func(delta float64) {
		price += delta
		candles = append(candles, models.Candle{
			Start: int64(3600 * len(candles)), Open: price, High: price,
			Low: price, Close: price, Volume: 1000,
		})
	}
	for i := 0; i < 15; i++ {
		step(1)
	}
	for i := 0; i < 12; i++ {
		step(-2)
	}
	for i := 0; i < 20; i++ {
		step(1)
	}
	return candles
}

func newTestHandler(t *testing.T, sink *memStatusSink, params *memParamStore) (*StatusHandler, *echo.Echo) {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	h := NewStatusHandler(log, sink, params, &fakeMarket{candles: dipAndRecover()})
	e := echo.New()
	h.RegisterRoutes(e)
	return h, e
}

func doRequest(e *echo.Echo, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestStatusBeforeFirstCycleIs404Payload(t *testing.T) {
	_, e := newTestHandler(t, &memStatusSink{}, &memParamStore{p: models.DefaultParams(), source: "default"})

	rec := doRequest(e, "/api/status")
	var body struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != http.StatusNotFound {
		t.Fatalf("want 404 payload before first cycle, got %d", body.Status)
	}
}

func TestStatusReturnsSnapshot(t *testing.T) {
	rsi := 27.3
	sink := &memStatusSink{}
	sink.Write(models.Status{
		Signal:       models.SignalBuy,
		RSI:          &rsi,
		Price:        0.24,
		TradesMade:   3,
		TimestampUTC: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
	})
	_, e := newTestHandler(t, sink, &memParamStore{p: models.DefaultParams(), source: "default"})

	rec := doRequest(e, "/api/status")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var body struct {
		Data models.Status `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Signal != models.SignalBuy || body.Data.TradesMade != 3 {
		t.Fatalf("snapshot mismatch: %+v", body.Data)
	}
	if body.Data.RSI == nil || *body.Data.RSI != 27.3 {
		t.Fatalf("rsi must round-trip, got %v", body.Data.RSI)
	}
}

func TestParamsReportsSource(t *testing.T) {
	params := &memParamStore{
		p:      models.Params{Period: 14, Entry: 28, Exit: 61, Granularity: models.GranularityOneHour},
		source: "learned",
	}
	_, e := newTestHandler(t, &memStatusSink{}, params)

	rec := doRequest(e, "/api/params")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var body struct {
		Data paramsResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Entry != 28 || body.Data.Exit != 61 || body.Data.Source != "learned" {
		t.Fatalf("params mismatch: %+v", body.Data)
	}
}

func TestHealthAlwaysOK(t *testing.T) {
	_, e := newTestHandler(t, &memStatusSink{}, &memParamStore{p: models.DefaultParams()})

	rec := doRequest(e, "/healthz")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
}

func postJSON(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestBacktestRunsWithDefaults(t *testing.T) {
	_, e := newTestHandler(t, &memStatusSink{}, &memParamStore{p: models.DefaultParams()})

	rec := postJSON(e, "/api/backtest", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Data backtestResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.Candles != 47 {
		t.Fatalf("want all 47 candles simulated, got %d", body.Data.Candles)
	}
	if body.Data.Trades < 1 {
		t.Fatalf("dip and recovery must trade at least once, got %d", body.Data.Trades)
	}
	if body.Data.ReturnPct <= 0 {
		t.Fatalf("buying the dip here must profit, got %.2f%%", body.Data.ReturnPct)
	}
}

func payloadStatus(t *testing.T, rec *httptest.ResponseRecorder) int {
	t.Helper()
	var body struct {
		Status int `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return body.Status
}

func TestBacktestRejectsExitBelowEntry(t *testing.T) {
	_, e := newTestHandler(t, &memStatusSink{}, &memParamStore{p: models.DefaultParams()})

	rec := postJSON(e, "/api/backtest", `{"rsi_entry": 60, "rsi_exit": 40}`)
	if got := payloadStatus(t, rec); got != http.StatusBadRequest {
		t.Fatalf("want 400 payload, got %d: %s", got, rec.Body.String())
	}
}

func TestBacktestRejectsUnknownGranularity(t *testing.T) {
	_, e := newTestHandler(t, &memStatusSink{}, &memParamStore{p: models.DefaultParams()})

	rec := postJSON(e, "/api/backtest", `{"granularity": "FOUR_HOUR"}`)
	if got := payloadStatus(t, rec); got != http.StatusBadRequest {
		t.Fatalf("want 400 payload, got %d", got)
	}
}

func TestCandlesAppliesLimit(t *testing.T) {
	_, e := newTestHandler(t, &memStatusSink{}, &memParamStore{p: models.DefaultParams()})

	rec := doRequest(e, "/api/candles?granularity=ONE_HOUR&limit=5")
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}
	var body struct {
		Data struct {
			Rows  []candleRow `json:"rows"`
			Total int64       `json:"total"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Data.Rows) != 5 || body.Data.Total != 5 {
		t.Fatalf("want 5 newest rows, got %d (total %d)", len(body.Data.Rows), body.Data.Total)
	}
	last := body.Data.Rows[len(body.Data.Rows)-1]
	if last.Start != int64(3600*46) {
		t.Fatalf("rows must keep the newest bars, last start %d", last.Start)
	}
}

func TestCandlesRejectsInvertedRange(t *testing.T) {
	_, e := newTestHandler(t, &memStatusSink{}, &memParamStore{p: models.DefaultParams()})

	rec := doRequest(e, "/api/candles?from=2026-09-01T12:00:00Z&to=2026-09-01T00:00:00Z")
	if got := payloadStatus(t, rec); got != http.StatusBadRequest {
		t.Fatalf("want 400 payload, got %d", got)
	}
}
