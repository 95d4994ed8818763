// Package learn searches historical candles for RSI thresholds that would
// have been profitable and persists the winner for the live loop.
package learn

import (
	"context"
	"fmt"
	"time"

	"dogebot/internal/backtest"
	"dogebot/internal/domain/models"
	drepo "dogebot/internal/domain/repository"
	"dogebot/internal/strategy"
	"dogebot/pkg/logger"
)

// Config bounds the search space. The grid is exhaustive: every integer
// (entry, exit) pair within the bounds with entry < exit, for every
// granularity listed.
type Config struct {
	Period        int
	EntryMin      int
	EntryMax      int
	ExitMin       int
	ExitMax       int
	MinTrades     int
	Granularities []models.Granularity
}

// Outcome is the result of one learning pass.
type Outcome struct {
	Found     bool
	Params    models.Params
	ReturnPct float64
	Trades    int
	Candles   int
}

// Learner runs grid-search backtests over exchange history. Each pass is
// independent and stateless beyond the persisted parameter file.
type Learner struct {
	market  drepo.MarketData
	params  drepo.ParamStore
	metrics drepo.Metrics
	log     *logger.Logger
	cfg     Config
}

// New creates a Learner. metrics may be nil (standalone CLI use).
func New(market drepo.MarketData, params drepo.ParamStore, metrics drepo.Metrics, log *logger.Logger, cfg Config) *Learner {
	if cfg.MinTrades < 1 {
		cfg.MinTrades = 1
	}
	if len(cfg.Granularities) == 0 {
		cfg.Granularities = []models.Granularity{models.GranularitySixHour}
	}
	return &Learner{market: market, params: params, metrics: metrics, log: log, cfg: cfg}
}

// Run fetches up to days of history per granularity, grid-searches every
// valid (entry, exit) pair, and persists the single best combination. When
// nothing in the whole space is both profitable and supported by at least
// MinTrades trades, the previously persisted parameters are left untouched.
//
// The search backtests with zero fee and slippage: the objective is the best
// raw strategy, execution cost is the live engine's concern.
func (l *Learner) Run(ctx context.Context, days int) (Outcome, error) {
	start := time.Now()
	defer func() {
		if l.metrics != nil {
			l.metrics.RecordLearnDuration(time.Since(start).Seconds())
		}
	}()

	if days < 1 {
		days = 1
	}
	end := time.Now()
	from := end.Add(-time.Duration(days) * 24 * time.Hour)

	best := Outcome{}
	for _, g := range l.cfg.Granularities {
		candles, err := l.market.CandlesRange(ctx, from, end, g)
		if err != nil {
			l.log.Warn("history fetch failed, skipping granularity",
				logger.String("granularity", string(g)), logger.Error(err))
			continue
		}
		if len(candles) < l.cfg.Period+2 {
			l.log.Warn("not enough history for granularity",
				logger.String("granularity", string(g)),
				logger.Int("candles", len(candles)),
				logger.Int("need", l.cfg.Period+2))
			continue
		}

		closes := models.Closes(candles)
		rsis := strategy.RSISeries(closes, l.cfg.Period)

		for entry := l.cfg.EntryMin; entry <= l.cfg.EntryMax; entry++ {
			for exit := l.cfg.ExitMin; exit <= l.cfg.ExitMax; exit++ {
				if entry >= exit {
					continue
				}
				p := models.Params{Period: l.cfg.Period, Entry: entry, Exit: exit, Granularity: g}
				res := backtest.RunSeries(closes, rsis, p, backtest.Options{})
				if res.Trades < l.cfg.MinTrades || res.ReturnPct <= 0 {
					continue
				}
				if better(res, best) {
					best = Outcome{
						Found:     true,
						Params:    p,
						ReturnPct: res.ReturnPct,
						Trades:    res.Trades,
						Candles:   len(candles),
					}
				}
			}
		}
	}

	if !best.Found {
		l.diagnose(ctx, from, end)
		l.log.Warn("no profitable combination found, keeping current parameters")
		return best, nil
	}

	if err := l.params.Save(best.Params); err != nil {
		return best, fmt.Errorf("save learned params: %w", err)
	}
	l.log.Info("learned parameters saved",
		logger.Int("entry", best.Params.Entry),
		logger.Int("exit", best.Params.Exit),
		logger.String("granularity", string(best.Params.Granularity)),
		logger.Float64("return_pct", best.ReturnPct),
		logger.Int("trades", best.Trades))
	return best, nil
}

// better prefers higher return; exact ties go to the combination with more
// trades, which has more statistical support.
func better(res backtest.Result, best Outcome) bool {
	if !best.Found {
		return true
	}
	if res.ReturnPct != best.ReturnPct {
		return res.ReturnPct > best.ReturnPct
	}
	return res.Trades > best.Trades
}

// diagnose runs one backtest with whatever parameters are currently active,
// purely so the operator sees how the status quo would have fared.
func (l *Learner) diagnose(ctx context.Context, from, end time.Time) {
	current, source := l.params.Load()
	g := current.Granularity
	if g == "" {
		g = models.GranularitySixHour
	}
	candles, err := l.market.CandlesRange(ctx, from, end, g)
	if err != nil || len(candles) < current.Period+2 {
		return
	}
	res := backtest.Run(candles, current, backtest.Options{})
	l.log.Info("diagnostic backtest with current parameters",
		logger.String("source", source),
		logger.Int("entry", current.Entry),
		logger.Int("exit", current.Exit),
		logger.Float64("return_pct", res.ReturnPct),
		logger.Int("trades", res.Trades))
}
