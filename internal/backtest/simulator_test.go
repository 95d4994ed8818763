package backtest

import (
	"testing"

	"dogebot/internal/domain/models"
)

func candlesFromCloses(closes []float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{Start: int64(i) * 3600, Close: c}
	}
	return out
}

// vShape drifts up, slides into oversold, then recovers: the entry triggers
// deep in the slide and the exit well above it, one profitable round trip.
func vShape() []models.Candle {
	closes := make([]float64, 0, 48)
	for i := 0; i < 15; i++ {
		closes = append(closes, 100+float64(i))
	}
	for i := 1; i <= 12; i++ {
		closes = append(closes, 114-2*float64(i))
	}
	for i := 1; i <= 20; i++ {
		closes = append(closes, 90+2*float64(i))
	}
	return candlesFromCloses(closes)
}

func TestRunTooFewCandlesIsZero(t *testing.T) {
	p := models.DefaultParams()
	candles := candlesFromCloses([]float64{100, 101, 102})
	res := Run(candles, p, Options{InitialCash: 500, InitialAsset: 3})
	if res.ReturnPct != 0 || res.Trades != 0 {
		t.Fatalf("want zero result, got %+v", res)
	}
	if res.FinalCash != 500 || res.FinalAsset != 3 {
		t.Fatalf("balances must be untouched, got %+v", res)
	}
}

func TestRunFlatSeriesNeverTrades(t *testing.T) {
	p := models.DefaultParams()
	closes := make([]float64, 40)
	for i := range closes {
		closes[i] = 100
	}
	res := Run(candlesFromCloses(closes), p, Options{})
	if res.Trades != 0 {
		t.Fatalf("flat prices pin RSI at 100; want 0 trades, got %d", res.Trades)
	}
	if res.ReturnPct != 0 {
		t.Fatalf("want 0%% return, got %v", res.ReturnPct)
	}
}

func TestRunVShapeProfitableRoundTrip(t *testing.T) {
	p := models.DefaultParams()
	res := Run(vShape(), p, Options{})
	if res.Trades < 2 {
		t.Fatalf("want at least a buy and a sell, got %d trades", res.Trades)
	}
	if res.ReturnPct <= 0 {
		t.Fatalf("buy the dip, sell the recovery: want positive return, got %v%%", res.ReturnPct)
	}
}

func TestRunDeterministic(t *testing.T) {
	p := models.DefaultParams()
	candles := vShape()
	first := Run(candles, p, Options{FeePct: 0.5})
	for i := 0; i < 5; i++ {
		again := Run(candles, p, Options{FeePct: 0.5})
		if again != first {
			t.Fatalf("run %d diverged: %+v vs %+v", i, again, first)
		}
	}
}

func TestRunFeeNeverImprovesReturn(t *testing.T) {
	p := models.DefaultParams()
	candles := vShape()
	free := Run(candles, p, Options{FeePct: 0})
	paid := Run(candles, p, Options{FeePct: 1})
	if free.Trades != paid.Trades {
		t.Fatalf("fees must not change decisions: %d vs %d trades", free.Trades, paid.Trades)
	}
	if free.Trades == 0 {
		t.Fatalf("fixture must trade")
	}
	if paid.ReturnPct > free.ReturnPct {
		t.Fatalf("fee=1%% return %v beat fee=0%% return %v", paid.ReturnPct, free.ReturnPct)
	}
}

func TestRunSlippageNeverImprovesReturn(t *testing.T) {
	p := models.DefaultParams()
	candles := vShape()
	tight := Run(candles, p, Options{SlippagePct: 0})
	loose := Run(candles, p, Options{SlippagePct: 0.5})
	if tight.Trades != loose.Trades {
		t.Fatalf("slippage must not change decisions: %d vs %d trades", tight.Trades, loose.Trades)
	}
	if loose.ReturnPct > tight.ReturnPct {
		t.Fatalf("slippage improved return: %v > %v", loose.ReturnPct, tight.ReturnPct)
	}
}

func TestRunOpenPositionMarkedNotCounted(t *testing.T) {
	p := models.DefaultParams()
	// Flat, then a slide into oversold with no recovery: exactly one buy,
	// still holding at series end.
	closes := make([]float64, 0, 30)
	for i := 0; i < 15; i++ {
		closes = append(closes, 100)
	}
	for i := 1; i <= 12; i++ {
		closes = append(closes, 100-float64(i))
	}
	res := Run(candlesFromCloses(closes), p, Options{})
	if res.Trades != 1 {
		t.Fatalf("want exactly the entry trade, got %d", res.Trades)
	}
	if res.FinalAsset <= 0 {
		t.Fatalf("should still be holding the asset, got %+v", res)
	}
	if res.FinalCash != 0 {
		t.Fatalf("full reinvestment leaves no cash, got %v", res.FinalCash)
	}
	if res.ReturnPct >= 0 {
		t.Fatalf("bought into a slide, mark-to-market must be negative, got %v%%", res.ReturnPct)
	}
}

func TestRunSkipsCorruptBars(t *testing.T) {
	p := models.DefaultParams()
	candles := vShape()
	candles[len(candles)-1].Close = 0 // unusable final bar
	res := Run(candles, p, Options{})
	if res.Trades < 1 {
		t.Fatalf("corrupt bar should be skipped, not fatal: got %d trades", res.Trades)
	}
}
