// Package domain defines the shared types used across the alphasim
// platform: price bars, normalized signal points, and market constants.
package domain

import "time"

// Market identifies a trading venue / instrument universe.
type Market string

// Supported markets.
const (
	MarketUS Market = "us"
)

// Bar is a single daily OHLCV bar for one symbol.
type Bar struct {
	Symbol     string
	Timestamp  time.Time
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     int64
	TradeCount int64
	VWAP       float64
}

// SignalScope distinguishes how a raw signal value binds to instruments.
type SignalScope string

// Signal scopes. A per-ticker signal is already scoped to a single
// instrument; a sector-wide signal carries one value per date that is
// broadcast to every instrument in the universe.
const (
	ScopePerTicker  SignalScope = "per_ticker"
	ScopeSectorWide SignalScope = "sector_wide"
)

// RawSignal is one row as produced by a signal source, before
// normalization. Ticker is empty for sector-wide rows; the transformer
// broadcasts those across the instrument universe.
type RawSignal struct {
	Scope  SignalScope
	Date   time.Time
	Ticker string
	Value  float64
}

// SignalPoint is a normalized signal: one scalar for one ticker on one
// date. Dates are truncated to UTC midnight; the engine treats them as
// civil dates.
type SignalPoint struct {
	Date   time.Time
	Ticker string
	Value  float64
}

// AlphaScore is an auxiliary ranking score for (date, ticker), consulted
// by the simulator when alpha ranking is enabled.
type AlphaScore struct {
	Date   time.Time
	Ticker string
	Score  float64
}
