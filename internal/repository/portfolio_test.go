package repository

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dogebot/internal/domain/models"
)

func newPortfolioStore(t *testing.T) *FilePortfolioStore {
	t.Helper()
	dir := t.TempDir()
	return NewFilePortfolioStore(
		filepath.Join(dir, "portfolio.json"),
		filepath.Join(dir, "portfolio.csv"),
		testLogger(t),
	)
}

func TestPortfolioEnsureBaselinesOnce(t *testing.T) {
	store := newPortfolioStore(t)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	state, err := store.Ensure(250, now)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if state.Initial != 250 || state.Peak != 250 {
		t.Fatalf("first observation must baseline, got %+v", state)
	}

	// A later, different value must not re-baseline.
	state, err = store.Ensure(900, now.Add(time.Hour))
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if state.Initial != 250 {
		t.Fatalf("initial is fixed forever, got %v", state.Initial)
	}
}

func TestPortfolioPeakOnlyRises(t *testing.T) {
	store := newPortfolioStore(t)
	if _, err := store.Ensure(100, time.Now()); err != nil {
		t.Fatalf("ensure: %v", err)
	}

	state, err := store.UpdatePeak(140)
	if err != nil {
		t.Fatalf("raise peak: %v", err)
	}
	if state.Peak != 140 {
		t.Fatalf("want peak 140, got %v", state.Peak)
	}

	state, err = store.UpdatePeak(90)
	if err != nil {
		t.Fatalf("lower value: %v", err)
	}
	if state.Peak != 140 {
		t.Fatalf("peak must never fall, got %v", state.Peak)
	}
}

func TestPortfolioAppendWritesHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "portfolio.csv")
	store := NewFilePortfolioStore(filepath.Join(dir, "portfolio.json"), csvPath, testLogger(t))

	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	snap := models.PortfolioSnapshot{Value: 120, GainUSD: 20, GainPct: 20, Peak: 125, DrawdownPct: 4}
	if err := store.Append(now, 0, 500, 0.24, snap); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := store.Append(now.Add(time.Minute), 120, 0, 0.25, snap); err != nil {
		t.Fatalf("append again: %v", err)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("want header plus 2 rows, got %d rows", len(rows))
	}
	if rows[0][0] != "timestamp_utc" {
		t.Fatalf("first row must be the header, got %v", rows[0])
	}
	if rows[1][0] != "2026-09-01T12:00:00Z" {
		t.Fatalf("want RFC3339 timestamp, got %q", rows[1][0])
	}
	if rows[1][2] != "500" {
		t.Fatalf("want doge column 500, got %q", rows[1][2])
	}
}

func TestPortfolioSurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	statePath := filepath.Join(dir, "portfolio.json")
	csvPath := filepath.Join(dir, "portfolio.csv")
	now := time.Now()

	first := NewFilePortfolioStore(statePath, csvPath, testLogger(t))
	if _, err := first.Ensure(100, now); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := first.UpdatePeak(175); err != nil {
		t.Fatalf("peak: %v", err)
	}

	second := NewFilePortfolioStore(statePath, csvPath, testLogger(t))
	state, err := second.Ensure(9999, now)
	if err != nil {
		t.Fatalf("ensure after restart: %v", err)
	}
	if state.Initial != 100 || state.Peak != 175 {
		t.Fatalf("state must survive restart, got %+v", state)
	}
}
