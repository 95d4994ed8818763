package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"dogebot/internal/domain/models"
	drepo "dogebot/internal/domain/repository"
	"dogebot/pkg/logger"
)

// Execution gates, applied in order before any order reaches the exchange.
const (
	// MinQuoteUSD is the smallest USD notional worth submitting.
	MinQuoteUSD = 1.0
	// MinBaseUnits is the smallest DOGE position worth selling.
	MinBaseUnits = 1
)

// ExecutorConfig tunes order execution.
type ExecutorConfig struct {
	DryRun    bool
	AllowLive bool
	Cooldown  time.Duration
}

// ExecutionResult reports what the executor did with a signal.
type ExecutionResult struct {
	Submitted bool
	DryRun    bool
	Side      string
	Size      string
	Err       error
}

// Executor turns signals into market orders. It owns the cooldown clock: any
// live submission, successful or not, starts the cooldown, so a failing order
// cannot be hammered at the exchange every cycle.
type Executor struct {
	orders  drepo.OrderSubmitter
	trades  drepo.TradeCounter
	metrics drepo.Metrics
	log     *logger.Logger
	cfg     ExecutorConfig

	lastOrder time.Time
	now       func() time.Time
}

func NewExecutor(orders drepo.OrderSubmitter, trades drepo.TradeCounter, metrics drepo.Metrics, log *logger.Logger, cfg ExecutorConfig) *Executor {
	return &Executor{
		orders:  orders,
		trades:  trades,
		metrics: metrics,
		log:     log,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Execute applies the execution gates to a signal and submits the resulting
// order. Hold signals and gated signals return a zero result.
func (e *Executor) Execute(ctx context.Context, signal models.Signal, balances models.Balances) ExecutionResult {
	if signal == models.SignalHold {
		return ExecutionResult{}
	}

	if wait := e.cooldownRemaining(); wait > 0 {
		e.log.Info("order cooldown active, skipping signal",
			logger.String("signal", string(signal)),
			logger.Duration("remaining", wait))
		return ExecutionResult{}
	}

	switch signal {
	case models.SignalBuy:
		return e.buy(ctx, balances.Quote)
	case models.SignalSell:
		return e.sell(ctx, balances.Base)
	}
	return ExecutionResult{}
}

func (e *Executor) buy(ctx context.Context, quote decimal.Decimal) ExecutionResult {
	// Whole cents only; the exchange rejects sub-cent quote sizes.
	size := quote.RoundDown(2)
	if size.LessThan(decimal.NewFromFloat(MinQuoteUSD)) {
		e.log.Info("buy signal below minimum notional, skipping",
			logger.String("usd", size.String()))
		return ExecutionResult{}
	}
	return e.submit(ctx, "BUY", size, func() error {
		return e.orders.MarketBuy(ctx, size)
	})
}

func (e *Executor) sell(ctx context.Context, base decimal.Decimal) ExecutionResult {
	// Whole units only; fractional DOGE dust stays in the account.
	size := base.RoundDown(0)
	if size.LessThan(decimal.NewFromInt(MinBaseUnits)) {
		e.log.Info("sell signal below minimum size, skipping",
			logger.String("doge", size.String()))
		return ExecutionResult{}
	}
	return e.submit(ctx, "SELL", size, func() error {
		return e.orders.MarketSell(ctx, size)
	})
}

func (e *Executor) submit(ctx context.Context, side string, size decimal.Decimal, place func() error) ExecutionResult {
	res := ExecutionResult{Side: side, Size: size.String()}

	// Dry run logs intent and nothing else. In particular it does not arm
	// the cooldown: every signal keeps reporting what a live bot would do.
	if e.cfg.DryRun {
		res.DryRun = true
		e.log.Info("dry run, order not submitted",
			logger.String("side", side), logger.String("size", size.String()))
		e.recordOrder(side, "dry_run")
		return res
	}
	if !e.cfg.AllowLive {
		e.log.Warn("live trading not enabled, order suppressed",
			logger.String("side", side), logger.String("size", size.String()))
		e.recordOrder(side, "suppressed")
		return res
	}

	// The attempt itself starts the cooldown. A failed submission must not
	// be re-tried on the very next cycle.
	e.lastOrder = e.now()

	if err := place(); err != nil {
		res.Err = err
		e.log.Error("order submission failed",
			logger.String("side", side), logger.String("size", size.String()),
			logger.Error(err))
		e.recordOrder(side, "failed")
		if e.metrics != nil {
			e.metrics.RecordError("order")
		}
		return res
	}

	res.Submitted = true
	count, err := e.trades.Increment()
	if err != nil {
		e.log.Warn("trade counter update failed", logger.Error(err))
		count = e.trades.Count()
	}
	e.log.Info("order submitted",
		logger.String("side", side), logger.String("size", size.String()),
		logger.Int("trades_made", count))
	e.recordOrder(side, "submitted")
	return res
}

func (e *Executor) cooldownRemaining() time.Duration {
	if e.lastOrder.IsZero() || e.cfg.Cooldown <= 0 {
		return 0
	}
	elapsed := e.now().Sub(e.lastOrder)
	if elapsed >= e.cfg.Cooldown {
		return 0
	}
	return e.cfg.Cooldown - elapsed
}

func (e *Executor) recordOrder(side, result string) {
	if e.metrics != nil {
		e.metrics.RecordOrder(side, result)
	}
}
