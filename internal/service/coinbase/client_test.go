package coinbase

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"dogebot/internal/domain/models"
	"dogebot/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestClosedCandlesSortsAndDropsOpenBar(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	window := models.GranularityOneHour.Seconds()
	// Descending, string-encoded, newest bar still open.
	openStart := now.Unix() - now.Unix()%window
	body := fmt.Sprintf(`{"candles":[
		{"start":"%d","open":"0.25","high":"0.26","low":"0.24","close":"0.255","volume":"100"},
		{"start":"%d","open":"0.24","high":"0.25","low":"0.23","close":"0.245","volume":"200"},
		{"start":"%d","open":"0.23","high":"0.24","low":"0.22","close":"0.235","volume":"300"}
	]}`, openStart, openStart-window, openStart-2*window)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/products/DOGE-USD/candles") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if g := r.URL.Query().Get("granularity"); g != "ONE_HOUR" {
			t.Errorf("want granularity ONE_HOUR, got %q", g)
		}
		io.WriteString(w, body)
	}))
	defer srv.Close()

	c := NewClient(testLogger(t),
		WithBaseURL(srv.URL),
		WithClock(fixedClock(now)),
		WithRetry(1, 0))

	candles, err := c.ClosedCandles(context.Background(), 10, models.GranularityOneHour)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("open bar must be dropped, want 2 candles, got %d", len(candles))
	}
	if candles[0].Start >= candles[1].Start {
		t.Fatalf("candles must be ascending: %d then %d", candles[0].Start, candles[1].Start)
	}
	if candles[1].Close != 0.245 {
		t.Fatalf("string close must decode, got %v", candles[1].Close)
	}
}

func TestCandlesDecodeNumericFields(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	window := models.GranularityOneHour.Seconds()
	start := now.Unix() - 5*window
	body := fmt.Sprintf(`{"candles":[{"start":%d,"open":0.2,"high":0.3,"low":0.1,"close":0.25,"volume":42}]}`, start)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, body)
	}))
	defer srv.Close()

	c := NewClient(testLogger(t),
		WithBaseURL(srv.URL),
		WithClock(fixedClock(now)),
		WithRetry(1, 0))

	candles, err := c.CandlesRange(context.Background(), now.Add(-10*time.Hour), now, models.GranularityOneHour)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(candles) != 1 || candles[0].Close != 0.25 || candles[0].Volume != 42 {
		t.Fatalf("numeric fields must decode, got %+v", candles)
	}
}

func TestCandleFetchRetriesTransientFailures(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	window := models.GranularityOneHour.Seconds()
	start := now.Unix() - 5*window

	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		fmt.Fprintf(w, `{"candles":[{"start":"%d","close":"0.25"}]}`, start)
	}))
	defer srv.Close()

	c := NewClient(testLogger(t),
		WithBaseURL(srv.URL),
		WithClock(fixedClock(now)),
		WithRetry(3, time.Millisecond))

	candles, err := c.CandlesRange(context.Background(), now.Add(-10*time.Hour), now, models.GranularityOneHour)
	if err != nil {
		t.Fatalf("third attempt should have succeeded: %v", err)
	}
	if calls != 3 {
		t.Fatalf("want 3 attempts, got %d", calls)
	}
	if len(candles) != 1 {
		t.Fatalf("want 1 candle, got %d", len(candles))
	}
}

func TestBalancesParsesAccounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"accounts":[
			{"currency":"DOGE","available_balance":{"value":"1250.5","currency":"DOGE"}},
			{"currency":"USD","available_balance":{"value":"17.42","currency":"USD"}},
			{"currency":"BTC","available_balance":{"value":"0.01","currency":"BTC"}}
		]}`)
	}))
	defer srv.Close()

	c := NewClient(testLogger(t), WithBaseURL(srv.URL), WithRetry(1, 0))

	b := c.Balances(context.Background())
	if !b.Base.Equal(decimal.RequireFromString("1250.5")) {
		t.Fatalf("want base 1250.5, got %s", b.Base)
	}
	if !b.Quote.Equal(decimal.RequireFromString("17.42")) {
		t.Fatalf("want quote 17.42, got %s", b.Quote)
	}
}

func TestBalancesFailureReturnsZeros(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(testLogger(t), WithBaseURL(srv.URL), WithRetry(1, 0))

	b := c.Balances(context.Background())
	if !b.Base.IsZero() || !b.Quote.IsZero() {
		t.Fatalf("failure must degrade to zeros, got %+v", b)
	}
}

func TestMarketBuySubmitsQuoteSizedOrder(t *testing.T) {
	var captured orderRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v3/brokerage/orders" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode order: %v", err)
		}
		io.WriteString(w, `{"success":true}`)
	}))
	defer srv.Close()

	c := NewClient(testLogger(t), WithBaseURL(srv.URL))

	if err := c.MarketBuy(context.Background(), decimal.RequireFromString("25.50")); err != nil {
		t.Fatalf("buy: %v", err)
	}
	if captured.Side != "BUY" || captured.ProductID != "DOGE-USD" {
		t.Fatalf("order mismatch: %+v", captured)
	}
	if captured.OrderConfiguration.MarketMarketIOC.QuoteSize != "25.5" {
		t.Fatalf("want quote_size 25.5, got %q", captured.OrderConfiguration.MarketMarketIOC.QuoteSize)
	}
	if captured.OrderConfiguration.MarketMarketIOC.BaseSize != "" {
		t.Fatalf("buy must not set base_size")
	}
	if captured.ClientOrderID == "" {
		t.Fatalf("orders must carry an idempotency key")
	}
}

func TestMarketSellRejectionSurfacesReason(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"success":false,"failure_reason":"INSUFFICIENT_FUND","error_response":{"message":"not enough DOGE"}}`)
	}))
	defer srv.Close()

	c := NewClient(testLogger(t), WithBaseURL(srv.URL))

	err := c.MarketSell(context.Background(), decimal.NewFromInt(100))
	if err == nil {
		t.Fatalf("rejection must surface as error")
	}
	if !strings.Contains(err.Error(), "INSUFFICIENT_FUND") {
		t.Fatalf("error must carry the reason, got %v", err)
	}
}

func TestOrdersAreNeverRetried(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(testLogger(t), WithBaseURL(srv.URL), WithRetry(3, time.Millisecond))

	if err := c.MarketBuy(context.Background(), decimal.NewFromInt(10)); err == nil {
		t.Fatalf("want error")
	}
	if calls != 1 {
		t.Fatalf("orders must never be retried, got %d attempts", calls)
	}
}

func TestAuthHeadersSignRequests(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	var got http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		io.WriteString(w, `{"accounts":[]}`)
	}))
	defer srv.Close()

	c := NewClient(testLogger(t),
		WithBaseURL(srv.URL),
		WithCredentials("key-id", "hunter2"),
		WithClock(fixedClock(now)),
		WithRetry(1, 0))

	c.Balances(context.Background())

	if got.Get("CB-ACCESS-KEY") != "key-id" {
		t.Fatalf("want api key header, got %q", got.Get("CB-ACCESS-KEY"))
	}
	if got.Get("CB-ACCESS-TIMESTAMP") != "1700000000" {
		t.Fatalf("want fixed timestamp, got %q", got.Get("CB-ACCESS-TIMESTAMP"))
	}

	mac := hmac.New(sha256.New, []byte("hunter2"))
	mac.Write([]byte("1700000000" + "GET" + "/api/v3/brokerage/accounts?limit=250"))
	want := hex.EncodeToString(mac.Sum(nil))
	if got.Get("CB-ACCESS-SIGN") != want {
		t.Fatalf("signature mismatch:\nwant %s\ngot  %s", want, got.Get("CB-ACCESS-SIGN"))
	}
}

func TestSplitProduct(t *testing.T) {
	base, quote := splitProduct("DOGE-USD")
	if base != "DOGE" || quote != "USD" {
		t.Fatalf("got %s/%s", base, quote)
	}
}
