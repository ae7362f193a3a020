// Package httpapi exposes the backtest engine and the signal history
// over an HTTP JSON API.
package httpapi

import (
	"fmt"

	"alphasim/internal/backtest"
	"alphasim/internal/util"
)

// BacktestRequest is the JSON request body for POST /api/backtest. Dates
// are YYYY-MM-DD strings.
type BacktestRequest struct {
	SignalName        string  `json:"signalName"`
	Threshold         float64 `json:"threshold"`
	StartDate         string  `json:"startDate"`
	EndDate           string  `json:"endDate"`
	InitialCapital    float64 `json:"initialCapital"`
	MaxPositions      int     `json:"maxPositions"`
	HoldingPeriod     int     `json:"holdingPeriod"`
	PositionSizing    string  `json:"positionSizing,omitempty"`
	UseAlphaRanking   bool    `json:"useAlphaRanking,omitempty"`
	AlphaMinThreshold float64 `json:"alphaMinThreshold,omitempty"`
}

// ToConfig converts the request into a backtest.Config, parsing the
// civil-date strings.
func (r *BacktestRequest) ToConfig() (backtest.Config, error) {
	start, err := util.ParseDate(r.StartDate)
	if err != nil {
		return backtest.Config{}, fmt.Errorf("parsing startDate: %w", err)
	}
	end, err := util.ParseDate(r.EndDate)
	if err != nil {
		return backtest.Config{}, fmt.Errorf("parsing endDate: %w", err)
	}
	return backtest.Config{
		SignalName:        r.SignalName,
		Threshold:         r.Threshold,
		StartDate:         start,
		EndDate:           end,
		InitialCapital:    r.InitialCapital,
		MaxPositions:      r.MaxPositions,
		HoldingPeriod:     r.HoldingPeriod,
		PositionSizing:    r.PositionSizing,
		UseAlphaRanking:   r.UseAlphaRanking,
		AlphaMinThreshold: r.AlphaMinThreshold,
	}, nil
}

// ErrorResponse is the structured JSON error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// SignalRowJSON is one stored raw signal row.
type SignalRowJSON struct {
	Scope  string  `json:"scope"`
	Date   string  `json:"date"`
	Ticker string  `json:"ticker,omitempty"`
	Value  float64 `json:"value"`
}

// SignalsResponse lists stored rows for one signal.
type SignalsResponse struct {
	Name string          `json:"name"`
	Rows []SignalRowJSON `json:"rows"`
}

// SymbolsResponse lists the instrument universe.
type SymbolsResponse struct {
	Symbols []string `json:"symbols"`
}
