package repository

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dogebot/internal/domain/models"
)

func TestTradeCounterPersistsAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.json")
	log := testLogger(t)

	c := NewFileTradeCounter(path, log)
	if c.Count() != 0 {
		t.Fatalf("fresh counter must start at zero, got %d", c.Count())
	}
	for i := 1; i <= 3; i++ {
		n, err := c.Increment()
		if err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
		if n != i {
			t.Fatalf("want %d, got %d", i, n)
		}
	}

	again := NewFileTradeCounter(path, log)
	if again.Count() != 3 {
		t.Fatalf("count must survive restart, got %d", again.Count())
	}
}

func TestTradeCounterCorruptFileStartsAtZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trades.json")
	if err := os.WriteFile(path, []byte("{broken"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	c := NewFileTradeCounter(path, testLogger(t))
	if c.Count() != 0 {
		t.Fatalf("corrupt file must reset to zero, got %d", c.Count())
	}
}

func TestStatusSinkWritesFileAndRemembersLast(t *testing.T) {
	path := filepath.Join(t.TempDir(), "status.json")
	sink := NewFileStatusSink(path)

	if _, ok := sink.Last(); ok {
		t.Fatalf("fresh sink must have no snapshot")
	}

	rsi := 42.5
	status := models.Status{
		Doge:         1200,
		USD:          3.5,
		InPosition:   true,
		Signal:       models.SignalHold,
		RSI:          &rsi,
		Price:        0.24,
		TradesMade:   7,
		DryRun:       true,
		TimestampUTC: time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := sink.Write(status); err != nil {
		t.Fatalf("write: %v", err)
	}

	last, ok := sink.Last()
	if !ok {
		t.Fatalf("want a snapshot after write")
	}
	if last.Doge != 1200 || !last.InPosition || *last.RSI != 42.5 {
		t.Fatalf("snapshot mismatch: %+v", last)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read status file: %v", err)
	}
	var fromDisk models.Status
	if err := json.Unmarshal(data, &fromDisk); err != nil {
		t.Fatalf("status file must be valid JSON: %v", err)
	}
	if fromDisk.TradesMade != 7 || fromDisk.Price != 0.24 {
		t.Fatalf("file snapshot mismatch: %+v", fromDisk)
	}
}
