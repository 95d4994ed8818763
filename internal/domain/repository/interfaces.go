package repository

import (
	"context"
	"time"

	"dogebot/internal/domain/models"

	"github.com/shopspring/decimal"
)

// MarketData supplies closed candles from the exchange. Implementations must
// return candles sorted ascending by start time and must never include a bar
// whose window has not fully elapsed.
type MarketData interface {
	// ClosedCandles returns up to count most recent closed candles.
	ClosedCandles(ctx context.Context, count int, g models.Granularity) ([]models.Candle, error)
	// CandlesRange returns closed candles within [start, end].
	CandlesRange(ctx context.Context, start, end time.Time, g models.Granularity) ([]models.Candle, error)
}

// BalanceSource supplies the account's available balances. Best-effort: on
// failure it returns zeros rather than propagating, so a transient API error
// degrades to "nothing to trade" instead of crashing the loop.
type BalanceSource interface {
	Balances(ctx context.Context) models.Balances
}

// OrderSubmitter places market orders. Submissions are idempotency-keyed and
// must not be retried internally: a failed order surfaces as an error and the
// caller decides (it never re-submits within the same cycle).
type OrderSubmitter interface {
	MarketBuy(ctx context.Context, quoteUSD decimal.Decimal) error
	MarketSell(ctx context.Context, baseDOGE decimal.Decimal) error
}

// Ticker streams live price updates between candle polls.
type Ticker interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan float64, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
}

// ParamStore persists learned trading parameters. Load validates the record
// and returns the hardcoded defaults when the file is absent or invalid.
type ParamStore interface {
	Load() (models.Params, string)
	Save(p models.Params) error
}

// PortfolioStore persists the portfolio tracking state and the history log.
type PortfolioStore interface {
	Ensure(value float64, now time.Time) (models.PortfolioState, error)
	UpdatePeak(value float64) (models.PortfolioState, error)
	Append(now time.Time, usd, doge, price float64, snap models.PortfolioSnapshot) error
}

// TradeCounter persists the count of real orders placed.
type TradeCounter interface {
	Increment() (int, error)
	Count() int
}

// StatusSink receives the complete status snapshot after every cycle.
type StatusSink interface {
	Write(s models.Status) error
	Last() (models.Status, bool)
}

// Publisher emits order/signal events for external consumers. Optional and
// best-effort; a publish failure never affects the trading decision.
type Publisher interface {
	PublishEvent(ctx context.Context, ev models.OrderEvent) error
	Close() error
}

// Archive stores fetched closed candles for offline research. Optional and
// best-effort.
type Archive interface {
	StoreCandles(ctx context.Context, productID string, g models.Granularity, candles []models.Candle) error
	Close() error
}

// Metrics records operational metrics.
type Metrics interface {
	RecordLastPrice(price float64)
	RecordRSI(rsi float64)
	RecordPortfolioValue(value float64)
	RecordSignal(signal models.Signal)
	RecordOrder(side, result string)
	RecordError(kind string)
	RecordLoopDuration(seconds float64)
	RecordLearnDuration(seconds float64)
}
