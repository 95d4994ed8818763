package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Signal is a trading decision.
type Signal string

const (
	SignalBuy  Signal = "buy"
	SignalSell Signal = "sell"
	SignalHold Signal = "hold"
)

// Balances holds the available base (DOGE) and quote (USD) balances. Amounts
// are decimal because the execution path sizes real orders from them.
type Balances struct {
	Base  decimal.Decimal
	Quote decimal.Decimal
}

// PortfolioState is the persisted portfolio tracking record. Initial is fixed
// at first observation; Peak is monotonically non-decreasing.
type PortfolioState struct {
	Initial   float64   `json:"initial_portfolio_value_usd"`
	Peak      float64   `json:"peak_portfolio_value_usd"`
	StartedAt time.Time `json:"started_at"`
}

// PortfolioSnapshot is the per-cycle portfolio valuation derived from the
// persisted state and current balances.
type PortfolioSnapshot struct {
	Value       float64
	GainUSD     float64
	GainPct     float64
	Peak        float64
	DrawdownPct float64
}

// OrderEvent describes a decision/execution cycle outcome for downstream
// consumers (event bus, audit).
type OrderEvent struct {
	ProductID  string    `json:"product_id"`
	Signal     Signal    `json:"signal"`
	Side       string    `json:"side,omitempty"`
	Size       string    `json:"size,omitempty"`
	Price      float64   `json:"price"`
	RSI        float64   `json:"rsi"`
	DryRun     bool      `json:"dry_run"`
	Submitted  bool      `json:"submitted"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Status is the self-contained snapshot the bot exposes after every cycle; an
// external display consumes it read-only.
type Status struct {
	Doge             float64     `json:"doge"`
	USD              float64     `json:"usd"`
	InPosition       bool        `json:"in_position"`
	Signal           Signal      `json:"signal"`
	RSI              *float64    `json:"rsi"`
	Price            float64     `json:"price"`
	PortfolioValue   float64     `json:"portfolio_value"`
	GainUSD          float64     `json:"gain_usd"`
	GainPct          float64     `json:"gain_pct"`
	PeakValue        float64     `json:"peak_value"`
	DrawdownPct      float64     `json:"drawdown_pct"`
	Period           int         `json:"rsi_period"`
	Entry            int         `json:"rsi_entry"`
	Exit             int         `json:"rsi_exit"`
	Granularity      Granularity `json:"granularity"`
	TradesMade       int         `json:"trades_made"`
	DryRun           bool        `json:"dry_run"`
	AllowLive        bool        `json:"allow_live"`
	NextCheckSeconds int         `json:"next_check_seconds"`
	TimestampUTC     time.Time   `json:"timestamp_utc"`
	RecentErrors     []string    `json:"recent_errors,omitempty"`
}
