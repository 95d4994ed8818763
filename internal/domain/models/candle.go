package models

import "time"

// Granularity identifies a candle bar duration using the exchange's naming.
type Granularity string

const (
	GranularityOneMinute     Granularity = "ONE_MINUTE"
	GranularityFiveMinute    Granularity = "FIVE_MINUTE"
	GranularityFifteenMinute Granularity = "FIFTEEN_MINUTE"
	GranularityThirtyMinute  Granularity = "THIRTY_MINUTE"
	GranularityOneHour       Granularity = "ONE_HOUR"
	GranularityTwoHour       Granularity = "TWO_HOUR"
	GranularitySixHour       Granularity = "SIX_HOUR"
	GranularityOneDay        Granularity = "ONE_DAY"
)

var granularitySeconds = map[Granularity]int64{
	GranularityOneMinute:     60,
	GranularityFiveMinute:    5 * 60,
	GranularityFifteenMinute: 15 * 60,
	GranularityThirtyMinute:  30 * 60,
	GranularityOneHour:       3600,
	GranularityTwoHour:       2 * 3600,
	GranularitySixHour:       6 * 3600,
	GranularityOneDay:        24 * 3600,
}

// Seconds returns the bar duration in seconds, or 0 for an unknown granularity.
func (g Granularity) Seconds() int64 {
	return granularitySeconds[g]
}

// Duration returns the bar duration.
func (g Granularity) Duration() time.Duration {
	return time.Duration(g.Seconds()) * time.Second
}

// Valid reports whether the granularity is one the exchange supports.
func (g Granularity) Valid() bool {
	_, ok := granularitySeconds[g]
	return ok
}

// Candle is one fixed-duration OHLCV price bar. Start is epoch seconds.
type Candle struct {
	Start  int64   `json:"start"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

// ClosedBy reports whether the candle's window has fully elapsed at the given
// time. Only closed candles are safe for signal computation; an open candle's
// close price is provisional.
func (c Candle) ClosedBy(now time.Time, g Granularity) bool {
	return c.Start+g.Seconds() <= now.Unix()
}

// Closes extracts the close prices of an ascending candle series.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
