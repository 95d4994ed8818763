package models

import "fmt"

// Params are the RSI trading parameters the bot runs with. A learning pass may
// replace them; a persisted copy may override the defaults at startup.
type Params struct {
	Period      int         `json:"rsi_period"`
	Entry       int         `json:"rsi_entry"`
	Exit        int         `json:"rsi_exit"`
	Granularity Granularity `json:"granularity,omitempty"`
}

// DefaultParams are the hardcoded fallback used when no valid learned
// parameters exist.
func DefaultParams() Params {
	return Params{Period: 14, Entry: 30, Exit: 50, Granularity: GranularitySixHour}
}

// Validate checks the parameter invariants. The persisted file is external
// state and may be stale or hand-edited, so this runs on load as well as
// before save.
func (p Params) Validate() error {
	if p.Period < 2 {
		return fmt.Errorf("period %d: must be at least 2", p.Period)
	}
	if p.Entry < 0 || p.Entry > 100 {
		return fmt.Errorf("entry %d: out of [0,100]", p.Entry)
	}
	if p.Exit < 0 || p.Exit > 100 {
		return fmt.Errorf("exit %d: out of [0,100]", p.Exit)
	}
	if p.Entry >= p.Exit {
		return fmt.Errorf("entry %d >= exit %d", p.Entry, p.Exit)
	}
	if p.Granularity != "" && !p.Granularity.Valid() {
		return fmt.Errorf("granularity %q: unknown", p.Granularity)
	}
	return nil
}
