package usecase

import (
	"math"
	"testing"
	"time"

	"dogebot/internal/domain/models"
)

type memPortfolioStore struct {
	state     models.PortfolioState
	baselined bool
	appends   int
}

func (m *memPortfolioStore) Ensure(value float64, now time.Time) (models.PortfolioState, error) {
	if !m.baselined {
		m.state = models.PortfolioState{Initial: value, Peak: value, StartedAt: now}
		m.baselined = true
	}
	return m.state, nil
}

func (m *memPortfolioStore) UpdatePeak(value float64) (models.PortfolioState, error) {
	if value > m.state.Peak {
		m.state.Peak = value
	}
	return m.state, nil
}

func (m *memPortfolioStore) Append(time.Time, float64, float64, float64, models.PortfolioSnapshot) error {
	m.appends++
	return nil
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestObserveBaselinesAndTracksGain(t *testing.T) {
	store := &memPortfolioStore{}
	tracker := NewPortfolioTracker(store, testLogger(t))
	now := time.Now()

	// 1000 DOGE at $0.10 plus $50 cash = $150.
	snap, err := tracker.Observe(balances("50", "1000"), 0.10, now)
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if !almostEqual(snap.Value, 150) {
		t.Fatalf("want value 150, got %v", snap.Value)
	}
	if !almostEqual(snap.GainUSD, 0) || !almostEqual(snap.GainPct, 0) {
		t.Fatalf("baseline cycle must show zero gain, got %+v", snap)
	}

	// Price doubles.
	snap, err = tracker.Observe(balances("50", "1000"), 0.25, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if !almostEqual(snap.Value, 300) {
		t.Fatalf("want value 300, got %v", snap.Value)
	}
	if !almostEqual(snap.GainUSD, 150) || !almostEqual(snap.GainPct, 100) {
		t.Fatalf("want +150 (+100%%), got %+v", snap)
	}
	if !almostEqual(snap.Peak, 300) || !almostEqual(snap.DrawdownPct, 0) {
		t.Fatalf("new peak must have zero drawdown, got %+v", snap)
	}
	if store.appends != 2 {
		t.Fatalf("every observation must append history, got %d", store.appends)
	}
}

func TestObserveDrawdownFromPeak(t *testing.T) {
	store := &memPortfolioStore{}
	tracker := NewPortfolioTracker(store, testLogger(t))
	now := time.Now()

	if _, err := tracker.Observe(balances("0", "1000"), 0.20, now); err != nil {
		t.Fatalf("observe: %v", err)
	}
	snap, err := tracker.Observe(balances("0", "1000"), 0.15, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if !almostEqual(snap.Peak, 200) {
		t.Fatalf("peak must hold at 200, got %v", snap.Peak)
	}
	if !almostEqual(snap.DrawdownPct, 25) {
		t.Fatalf("want 25%% drawdown, got %v", snap.DrawdownPct)
	}
	if !almostEqual(snap.GainPct, -25) {
		t.Fatalf("want -25%% gain, got %v", snap.GainPct)
	}
}
