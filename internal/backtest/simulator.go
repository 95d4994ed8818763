// Package backtest replays a historical candle series through the shared
// decision logic and scores the outcome. Its job is ranking candidate
// parameters, so monetary math is plain float64; exact accounting lives in
// the live execution path.
package backtest

import (
	"math"

	"dogebot/internal/domain/models"
	"dogebot/internal/strategy"
)

// DefaultInitialCash is the simulated starting notional when the caller does
// not supply balances.
const DefaultInitialCash = 1000.0

// Options tune the fill model. Fee and slippage are percentages of notional,
// applied per side; fills happen at the bar close adjusted by slippage.
type Options struct {
	FeePct       float64
	SlippagePct  float64
	InitialCash  float64
	InitialAsset float64
	StartIndex   int
}

// Result is the outcome of one simulation run.
type Result struct {
	ReturnPct  float64
	Trades     int
	FinalCash  float64
	FinalAsset float64
}

// Run simulates the RSI strategy over an ascending candle series. Fewer than
// period+2 candles returns a zero result with the provided balances untouched.
func Run(candles []models.Candle, p models.Params, opts Options) Result {
	closes := models.Closes(candles)
	rsis := strategy.RSISeries(closes, p.Period)
	return RunSeries(closes, rsis, p, opts)
}

// RunSeries is Run with a precomputed oscillator series, so a grid search can
// amortize the series over many (entry, exit) pairs.
func RunSeries(closes, rsis []float64, p models.Params, opts Options) Result {
	cash := opts.InitialCash
	asset := opts.InitialAsset
	if cash == 0 && asset == 0 {
		cash = DefaultInitialCash
	}

	if len(closes) < p.Period+2 || len(rsis) != len(closes) {
		return Result{FinalCash: cash, FinalAsset: asset}
	}

	start := p.Period
	if opts.StartIndex > start {
		start = opts.StartIndex
	}

	// Base value for the return computation: cash plus any starting asset
	// marked at the first usable close.
	initialValue := cash
	if asset > 0 {
		for i := start; i < len(closes); i++ {
			if closes[i] > 0 {
				initialValue += asset * closes[i]
				break
			}
		}
	}

	trades := 0
	lastClose := 0.0
	for i := start; i < len(closes); i++ {
		rsi := rsis[i]
		close := closes[i]
		if math.IsNaN(rsi) || close <= 0 {
			continue
		}
		lastClose = close

		switch strategy.Decide(rsi, p.Entry, p.Exit, asset > 0) {
		case models.SignalBuy:
			price := close * (1 + opts.SlippagePct/100)
			asset = cash * (1 - opts.FeePct/100) / price
			cash = 0
			trades++
		case models.SignalSell:
			price := close * (1 - opts.SlippagePct/100)
			cash = asset * price * (1 - opts.FeePct/100)
			asset = 0
			trades++
		}
	}

	// Mark-to-market a leftover position for scoring only; not a trade.
	finalValue := cash
	if asset > 0 && lastClose > 0 {
		finalValue += asset * lastClose
	}

	returnPct := 0.0
	if initialValue > 0 {
		returnPct = 100 * (finalValue - initialValue) / initialValue
	}
	return Result{
		ReturnPct:  returnPct,
		Trades:     trades,
		FinalCash:  cash,
		FinalAsset: asset,
	}
}
