package repository

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"dogebot/internal/domain/models"
	"dogebot/pkg/logger"
)

var portfolioCSVHeader = []string{
	"timestamp_utc", "usd", "doge", "price",
	"portfolio_value", "gain_usd", "gain_pct", "peak_value", "drawdown_pct",
}

// FilePortfolioStore persists the portfolio baseline (initial and peak value)
// as JSON and appends a CSV row per cycle for offline inspection.
type FilePortfolioStore struct {
	statePath string
	csvPath   string
	log       *logger.Logger
	mutex     sync.Mutex
}

func NewFilePortfolioStore(statePath, csvPath string, log *logger.Logger) *FilePortfolioStore {
	return &FilePortfolioStore{statePath: statePath, csvPath: csvPath, log: log}
}

// Ensure returns the persisted state, creating it from the first observed
// value when absent. Initial is fixed forever at first observation.
func (s *FilePortfolioStore) Ensure(value float64, now time.Time) (models.PortfolioState, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	state, err := s.read()
	if err == nil {
		return state, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		s.log.Warn("portfolio state unreadable, re-baselining",
			logger.String("path", s.statePath), logger.Error(err))
	}

	state = models.PortfolioState{Initial: value, Peak: value, StartedAt: now.UTC()}
	if err := writeJSONAtomic(s.statePath, state); err != nil {
		return state, fmt.Errorf("baseline portfolio state: %w", err)
	}
	return state, nil
}

// UpdatePeak raises the persisted peak when the current value exceeds it.
func (s *FilePortfolioStore) UpdatePeak(value float64) (models.PortfolioState, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	state, err := s.read()
	if err != nil {
		return models.PortfolioState{}, fmt.Errorf("read portfolio state: %w", err)
	}
	if value <= state.Peak {
		return state, nil
	}
	state.Peak = value
	if err := writeJSONAtomic(s.statePath, state); err != nil {
		return state, fmt.Errorf("persist portfolio peak: %w", err)
	}
	return state, nil
}

// Append writes one CSV history row, creating the file with a header first.
func (s *FilePortfolioStore) Append(now time.Time, usd, doge, price float64, snap models.PortfolioSnapshot) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, statErr := os.Stat(s.csvPath)
	fresh := errors.Is(statErr, os.ErrNotExist)

	f, err := os.OpenFile(s.csvPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open portfolio log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if fresh {
		if err := w.Write(portfolioCSVHeader); err != nil {
			return fmt.Errorf("write portfolio header: %w", err)
		}
	}
	row := []string{
		now.UTC().Format(time.RFC3339),
		formatFloat(usd),
		formatFloat(doge),
		formatFloat(price),
		formatFloat(snap.Value),
		formatFloat(snap.GainUSD),
		formatFloat(snap.GainPct),
		formatFloat(snap.Peak),
		formatFloat(snap.DrawdownPct),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("write portfolio row: %w", err)
	}
	w.Flush()
	return w.Error()
}

func (s *FilePortfolioStore) read() (models.PortfolioState, error) {
	var state models.PortfolioState
	data, err := os.ReadFile(s.statePath)
	if err != nil {
		return state, err
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return state, err
	}
	if state.Initial <= 0 {
		return state, fmt.Errorf("invalid initial value %v", state.Initial)
	}
	return state, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
