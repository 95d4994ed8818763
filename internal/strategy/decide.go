package strategy

import "dogebot/internal/domain/models"

// Decide maps an RSI value and the current position state to a signal. Both
// the live loop and the backtest simulator go through this function; the two
// paths must never diverge.
//
// Thresholds are strict: an RSI exactly equal to entry or exit holds.
func Decide(rsi float64, entry, exit int, inPosition bool) models.Signal {
	if !inPosition && rsi < float64(entry) {
		return models.SignalBuy
	}
	if inPosition && rsi > float64(exit) {
		return models.SignalSell
	}
	return models.SignalHold
}

// Signal computes the live decision from a closed-candle series. It degrades
// to hold whenever the series is too short for a trustworthy oscillator value.
func Signal(candles []models.Candle, p models.Params, inPosition bool) (models.Signal, float64, bool) {
	if len(candles) < p.Period+2 {
		return models.SignalHold, 0, false
	}
	closes := make([]float64, 0, len(candles))
	for _, c := range candles {
		if c.Close > 0 {
			closes = append(closes, c.Close)
		}
	}
	if len(closes) < p.Period+2 {
		return models.SignalHold, 0, false
	}
	rsi, ok := RSI(closes, p.Period)
	if !ok {
		return models.SignalHold, 0, false
	}
	return Decide(rsi, p.Entry, p.Exit, inPosition), rsi, true
}
