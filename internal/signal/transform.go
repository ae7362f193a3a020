// Package signal normalizes heterogeneous raw signal rows into the
// uniform per-date, per-ticker stream consumed by the simulator, and
// defines the Source abstraction for pluggable signal providers.
package signal

import (
	"math"
	"sort"

	"alphasim/internal/domain"
	"alphasim/internal/util"
)

// Normalize converts raw signal rows into normalized SignalPoints.
//
// Per-ticker rows pass through with their own ticker. Sector-wide rows
// carry one value per date and are broadcast to every instrument in the
// universe for that date. Rows whose absolute value is below threshold
// are dropped; no other numeric filtering happens here — sources are
// responsible for discarding absent or invalid values.
//
// The result is sorted by (date, ticker) so downstream consumers see a
// deterministic ordering regardless of source iteration order.
func Normalize(raws []domain.RawSignal, universe []string, threshold float64) []domain.SignalPoint {
	var points []domain.SignalPoint

	for _, r := range raws {
		if math.Abs(r.Value) < threshold {
			continue
		}

		switch r.Scope {
		case domain.ScopePerTicker:
			points = append(points, domain.SignalPoint{
				Date:   util.Midnight(r.Date),
				Ticker: r.Ticker,
				Value:  r.Value,
			})
		case domain.ScopeSectorWide:
			for _, ticker := range universe {
				points = append(points, domain.SignalPoint{
					Date:   util.Midnight(r.Date),
					Ticker: ticker,
					Value:  r.Value,
				})
			}
		default:
			// Unknown scope: drop the row rather than guess a binding.
		}
	}

	sort.Slice(points, func(i, j int) bool {
		if !points[i].Date.Equal(points[j].Date) {
			return points[i].Date.Before(points[j].Date)
		}
		return points[i].Ticker < points[j].Ticker
	})

	return points
}
