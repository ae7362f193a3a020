package backtest

import "time"

// PositionSizingEqual is the only sizing policy supported: each fill
// takes cash / remainingFreeSlots at the moment of the fill.
const PositionSizingEqual = "equal"

// Config describes one backtest request. It is validated before any
// simulation work begins.
type Config struct {
	SignalName        string    `json:"signalName"`
	Threshold         float64   `json:"threshold"`
	StartDate         time.Time `json:"startDate"`
	EndDate           time.Time `json:"endDate"`
	InitialCapital    float64   `json:"initialCapital"`
	MaxPositions      int       `json:"maxPositions"`
	HoldingPeriod     int       `json:"holdingPeriod"` // calendar days
	PositionSizing    string    `json:"positionSizing"`
	UseAlphaRanking   bool      `json:"useAlphaRanking"`
	AlphaMinThreshold float64   `json:"alphaMinThreshold"`
}

// Validate checks the configuration and returns a *ConfigError describing
// the first violated constraint, or nil if the config is usable.
func (c *Config) Validate() error {
	if c.SignalName == "" {
		return &ConfigError{Field: "signalName", Reason: "must not be empty"}
	}
	if c.StartDate.After(c.EndDate) {
		return &ConfigError{Field: "startDate", Reason: "must not be after endDate"}
	}
	if c.InitialCapital <= 0 {
		return &ConfigError{Field: "initialCapital", Reason: "must be positive"}
	}
	if c.MaxPositions < 1 {
		return &ConfigError{Field: "maxPositions", Reason: "must be at least 1"}
	}
	if c.HoldingPeriod < 1 {
		return &ConfigError{Field: "holdingPeriod", Reason: "must be at least 1 day"}
	}
	if c.PositionSizing != "" && c.PositionSizing != PositionSizingEqual {
		return &ConfigError{Field: "positionSizing", Reason: "only equal sizing is supported"}
	}
	return nil
}
