package backtest

import (
	"time"

	"alphasim/internal/domain"
	"alphasim/internal/util"
)

// AlphaRanker holds auxiliary (date, ticker) scores used to reorder trade
// candidates ahead of capital allocation, in place of raw signal
// magnitude. A nil *AlphaRanker is valid and ranks nothing.
type AlphaRanker struct {
	scores map[string]map[string]float64 // date key -> ticker -> score
}

// NewAlphaRanker builds an AlphaRanker from a flat score list.
func NewAlphaRanker(scores []domain.AlphaScore) *AlphaRanker {
	r := &AlphaRanker{scores: make(map[string]map[string]float64)}
	for _, s := range scores {
		key := util.FormatDate(s.Date)
		m, ok := r.scores[key]
		if !ok {
			m = make(map[string]float64)
			r.scores[key] = m
		}
		m[s.Ticker] = s.Score
	}
	return r
}

// HasDate reports whether any score exists for the given date. When no
// scores exist for a date the simulator falls back to signal-value
// ranking for that date.
func (r *AlphaRanker) HasDate(date time.Time) bool {
	if r == nil {
		return false
	}
	return len(r.scores[util.FormatDate(date)]) > 0
}

// Score returns the score for (date, ticker). The second return value is
// false when no score is recorded.
func (r *AlphaRanker) Score(date time.Time, ticker string) (float64, bool) {
	if r == nil {
		return 0, false
	}
	m, ok := r.scores[util.FormatDate(date)]
	if !ok {
		return 0, false
	}
	score, ok := m[ticker]
	return score, ok
}
