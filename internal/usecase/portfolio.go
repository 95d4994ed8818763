package usecase

import (
	"time"

	"dogebot/internal/domain/models"
	drepo "dogebot/internal/domain/repository"
	"dogebot/pkg/logger"
)

// PortfolioTracker values the account each cycle and maintains the persisted
// baseline and peak.
type PortfolioTracker struct {
	store drepo.PortfolioStore
	log   *logger.Logger
}

func NewPortfolioTracker(store drepo.PortfolioStore, log *logger.Logger) *PortfolioTracker {
	return &PortfolioTracker{store: store, log: log}
}

// Observe values the balances at the given price and returns the updated
// snapshot. The first ever observation becomes the gain baseline. History
// logging is best-effort.
func (p *PortfolioTracker) Observe(balances models.Balances, price float64, now time.Time) (models.PortfolioSnapshot, error) {
	usd, _ := balances.Quote.Float64()
	doge, _ := balances.Base.Float64()
	value := usd + doge*price

	state, err := p.store.Ensure(value, now)
	if err != nil {
		return models.PortfolioSnapshot{Value: value}, err
	}
	state, err = p.store.UpdatePeak(value)
	if err != nil {
		return models.PortfolioSnapshot{Value: value}, err
	}

	snap := models.PortfolioSnapshot{
		Value: value,
		Peak:  state.Peak,
	}
	if state.Initial > 0 {
		snap.GainUSD = value - state.Initial
		snap.GainPct = 100 * snap.GainUSD / state.Initial
	}
	if state.Peak > 0 {
		snap.DrawdownPct = 100 * (state.Peak - value) / state.Peak
	}

	if err := p.store.Append(now, usd, doge, price, snap); err != nil {
		p.log.Warn("portfolio history append failed", logger.Error(err))
	}
	return snap, nil
}
