package usecase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"dogebot/internal/domain/models"
	drepo "dogebot/internal/domain/repository"
	"dogebot/internal/learn"
	"dogebot/internal/strategy"
	"dogebot/pkg/logger"
)

// LoopConfig tunes the trading loop.
type LoopConfig struct {
	ProductID     string
	PollInterval  time.Duration
	LearnInterval time.Duration // 0 disables periodic re-learning
	LearnDays     int
	CandleCount   int // closed bars fetched per cycle
	DryRun        bool
	AllowLive     bool
}

// TradingLoop is the live engine: every poll interval it fetches closed
// candles, computes the RSI signal, executes it, revalues the portfolio, and
// publishes a status snapshot.
type TradingLoop struct {
	market    drepo.MarketData
	balances  drepo.BalanceSource
	params    drepo.ParamStore
	executor  *Executor
	portfolio *PortfolioTracker
	status    drepo.StatusSink
	publisher drepo.Publisher
	archive   drepo.Archive
	metrics   drepo.Metrics
	prices    *PriceCollector
	learner   *learn.Learner
	log       *logger.Logger
	cfg       LoopConfig

	lastLearn time.Time
	now       func() time.Time
}

// NewTradingLoop wires the loop. publisher, archive, prices and learner may
// be nil; the loop degrades to polling and trading only.
func NewTradingLoop(
	market drepo.MarketData,
	balances drepo.BalanceSource,
	params drepo.ParamStore,
	executor *Executor,
	portfolio *PortfolioTracker,
	status drepo.StatusSink,
	publisher drepo.Publisher,
	archive drepo.Archive,
	metrics drepo.Metrics,
	prices *PriceCollector,
	learner *learn.Learner,
	log *logger.Logger,
	cfg LoopConfig,
) *TradingLoop {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Minute
	}
	if cfg.CandleCount <= 0 {
		cfg.CandleCount = 100
	}
	return &TradingLoop{
		market:    market,
		balances:  balances,
		params:    params,
		executor:  executor,
		portfolio: portfolio,
		status:    status,
		publisher: publisher,
		archive:   archive,
		metrics:   metrics,
		prices:    prices,
		learner:   learner,
		log:       log,
		cfg:       cfg,
	}
}

// Run blocks until ctx is cancelled. A learning pass runs at startup before
// the first trading cycle, then again every LearnInterval.
func (l *TradingLoop) Run(ctx context.Context) error {
	if l.now == nil {
		l.now = time.Now
	}

	l.learnPass(ctx)

	for {
		l.Cycle(ctx)

		if l.cfg.LearnInterval > 0 && l.now().Sub(l.lastLearn) >= l.cfg.LearnInterval {
			l.learnPass(ctx)
		}

		if err := sleepInterruptible(ctx, l.cfg.PollInterval); err != nil {
			return err
		}
	}
}

func (l *TradingLoop) learnPass(ctx context.Context) {
	l.lastLearn = l.now()
	if l.learner == nil {
		return
	}
	l.log.Info("learning pass starting", logger.Int("days", l.cfg.LearnDays))
	out, err := l.learner.Run(ctx, l.cfg.LearnDays)
	if err != nil {
		l.log.Error("learning pass failed", logger.Error(err))
		l.recordError("learn")
		return
	}
	if !out.Found {
		l.log.Info("learning pass found no improvement")
	}
}

// Cycle runs one fetch-decide-execute-report iteration. Failures degrade:
// the loop never exits because one cycle went wrong.
func (l *TradingLoop) Cycle(ctx context.Context) {
	started := l.now()
	defer func() {
		if l.metrics != nil {
			l.metrics.RecordLoopDuration(time.Since(started).Seconds())
		}
	}()

	params, source := l.params.Load()

	candles, err := l.market.ClosedCandles(ctx, l.cfg.CandleCount, params.Granularity)
	if err != nil {
		l.log.Error("candle fetch failed, skipping cycle", logger.Error(err))
		l.recordError("candles")
		return
	}
	l.archiveCandles(ctx, params.Granularity, candles)

	balances := l.balances.Balances(ctx)
	inPosition := balances.Base.GreaterThanOrEqual(decimal.NewFromInt(MinBaseUnits))

	signal, rsi, ok := strategy.Signal(candles, params, inPosition)
	if !ok {
		l.log.Warn("not enough usable candles for a signal",
			logger.Int("candles", len(candles)),
			logger.Int("period", params.Period))
	}

	price := l.referencePrice(candles)

	l.log.Info("cycle decision",
		logger.String("signal", string(signal)),
		logger.Float64("rsi", rsi),
		logger.Float64("price", price),
		logger.Bool("in_position", inPosition),
		logger.String("params_source", source))
	if l.metrics != nil {
		l.metrics.RecordSignal(signal)
		if ok {
			l.metrics.RecordRSI(rsi)
		}
	}

	exec := l.executor.Execute(ctx, signal, balances)

	snap, err := l.portfolio.Observe(balances, price, l.now())
	if err != nil {
		l.log.Warn("portfolio tracking failed", logger.Error(err))
		l.recordError("portfolio")
	}
	if l.metrics != nil {
		l.metrics.RecordPortfolioValue(snap.Value)
	}

	l.publishEvent(ctx, signal, exec, price, rsi)
	l.writeStatus(params, signal, rsi, ok, price, balances, inPosition, snap)
}

// referencePrice prefers the live ticker price and falls back to the latest
// closed candle.
func (l *TradingLoop) referencePrice(candles []models.Candle) float64 {
	if l.prices != nil {
		if p := l.prices.LastPrice(); p > 0 {
			return p
		}
	}
	for i := len(candles) - 1; i >= 0; i-- {
		if candles[i].Close > 0 {
			return candles[i].Close
		}
	}
	return 0
}

func (l *TradingLoop) archiveCandles(ctx context.Context, g models.Granularity, candles []models.Candle) {
	if l.archive == nil || len(candles) == 0 {
		return
	}
	if err := l.archive.StoreCandles(ctx, l.cfg.ProductID, g, candles); err != nil {
		l.log.Warn("candle archive failed", logger.Error(err))
		l.recordError("archive")
	}
}

func (l *TradingLoop) publishEvent(ctx context.Context, signal models.Signal, exec ExecutionResult, price, rsi float64) {
	if l.publisher == nil || (signal == models.SignalHold && exec.Side == "") {
		return
	}
	ev := models.OrderEvent{
		ProductID:  l.cfg.ProductID,
		Signal:     signal,
		Side:       exec.Side,
		Size:       exec.Size,
		Price:      price,
		RSI:        rsi,
		DryRun:     exec.DryRun,
		Submitted:  exec.Submitted,
		OccurredAt: l.now().UTC(),
	}
	if exec.Err != nil {
		ev.Error = exec.Err.Error()
	}
	if err := l.publisher.PublishEvent(ctx, ev); err != nil {
		l.log.Warn("event publish failed", logger.Error(err))
		l.recordError("publish")
	}
}

func (l *TradingLoop) writeStatus(
	params models.Params,
	signal models.Signal,
	rsi float64,
	rsiOK bool,
	price float64,
	balances models.Balances,
	inPosition bool,
	snap models.PortfolioSnapshot,
) {
	doge, _ := balances.Base.Float64()
	usd, _ := balances.Quote.Float64()

	status := models.Status{
		Doge:             doge,
		USD:              usd,
		InPosition:       inPosition,
		Signal:           signal,
		Price:            price,
		PortfolioValue:   snap.Value,
		GainUSD:          snap.GainUSD,
		GainPct:          snap.GainPct,
		PeakValue:        snap.Peak,
		DrawdownPct:      snap.DrawdownPct,
		Period:           params.Period,
		Entry:            params.Entry,
		Exit:             params.Exit,
		Granularity:      params.Granularity,
		TradesMade:       l.executor.trades.Count(),
		DryRun:           l.cfg.DryRun,
		AllowLive:        l.cfg.AllowLive,
		NextCheckSeconds: int(l.cfg.PollInterval / time.Second),
		TimestampUTC:     l.now().UTC(),
		RecentErrors:     l.log.RecentProblems(),
	}
	if rsiOK {
		status.RSI = &rsi
	}

	if err := l.status.Write(status); err != nil {
		l.log.Warn("status write failed", logger.Error(err))
		l.recordError("status")
	}
}

func (l *TradingLoop) recordError(kind string) {
	if l.metrics != nil {
		l.metrics.RecordError(kind)
	}
}

// sleepInterruptible waits for d, waking every second so cancellation is
// prompt even with long poll intervals.
func sleepInterruptible(ctx context.Context, d time.Duration) error {
	deadline := time.Now().Add(d)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil
		}
		step := time.Second
		if remaining < step {
			step = remaining
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(step):
		}
	}
}
