package backtest

import (
	"context"
	"testing"

	"alphasim/internal/domain"
)

func score(t *testing.T, date, ticker string, s float64) domain.AlphaScore {
	t.Helper()
	return domain.AlphaScore{Date: day(t, date), Ticker: ticker, Score: s}
}

func TestAlphaRankerLookup(t *testing.T) {
	r := NewAlphaRanker([]domain.AlphaScore{
		score(t, "2024-01-02", "X", 0.8),
		score(t, "2024-01-02", "Y", 0.3),
	})

	if !r.HasDate(day(t, "2024-01-02")) {
		t.Error("HasDate = false for a date with scores")
	}
	if r.HasDate(day(t, "2024-01-03")) {
		t.Error("HasDate = true for a date without scores")
	}
	if s, ok := r.Score(day(t, "2024-01-02"), "X"); !ok || s != 0.8 {
		t.Errorf("Score(X) = %v, %v; want 0.8, true", s, ok)
	}
	if _, ok := r.Score(day(t, "2024-01-02"), "Z"); ok {
		t.Error("Score(Z) = ok for a ticker without a score")
	}
}

func TestAlphaRankerNilSafe(t *testing.T) {
	var r *AlphaRanker
	if r.HasDate(day(t, "2024-01-02")) {
		t.Error("nil ranker reports HasDate = true")
	}
	if _, ok := r.Score(day(t, "2024-01-02"), "X"); ok {
		t.Error("nil ranker returned a score")
	}
}

// With alpha ranking enabled, fills follow score order rather than
// signal magnitude, and tickers below the minimum score are dropped.
func TestSimulatorAlphaOverridesSignalOrder(t *testing.T) {
	cfg := baseConfig(t)
	cfg.MaxPositions = 2
	cfg.UseAlphaRanking = true
	cfg.AlphaMinThreshold = 0.5

	book := NewPriceBook()
	for _, ticker := range []string{"X", "Y", "Z"} {
		book.Add(ticker, day(t, "2024-01-02"), 100)
	}

	signals := []domain.SignalPoint{
		point(t, "2024-01-02", "X", 9), // strongest signal, weakest alpha
		point(t, "2024-01-02", "Y", 3),
		point(t, "2024-01-02", "Z", 4),
	}
	alpha := NewAlphaRanker([]domain.AlphaScore{
		score(t, "2024-01-02", "X", 0.2), // below the minimum, dropped
		score(t, "2024-01-02", "Y", 0.9),
		score(t, "2024-01-02", "Z", 0.6),
	})

	sim := NewSimulator(cfg, book, alpha)
	trades, _, _, err := sim.Run(context.Background(), signals)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}
	if trades[0].Ticker != "Y" || trades[1].Ticker != "Z" {
		t.Errorf("fill order = %s, %s; want Y then Z by descending score",
			trades[0].Ticker, trades[1].Ticker)
	}
}

// A candidate with no score on a scored date fails the alpha filter.
func TestSimulatorAlphaDropsUnscoredTicker(t *testing.T) {
	cfg := baseConfig(t)
	cfg.UseAlphaRanking = true

	book := NewPriceBook()
	book.Add("X", day(t, "2024-01-02"), 100)
	book.Add("Y", day(t, "2024-01-02"), 100)

	signals := []domain.SignalPoint{
		point(t, "2024-01-02", "X", 9),
		point(t, "2024-01-02", "Y", 3),
	}
	alpha := NewAlphaRanker([]domain.AlphaScore{
		score(t, "2024-01-02", "Y", 0.7),
	})

	sim := NewSimulator(cfg, book, alpha)
	trades, _, _, err := sim.Run(context.Background(), signals)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(trades) != 1 || trades[0].Ticker != "Y" {
		t.Fatalf("trades = %+v, want only the scored ticker Y", trades)
	}
}

// Scenario C: alpha enabled but no scores for the day falls back to
// signal-value ranking for that day.
func TestSimulatorAlphaFallsBackPerDate(t *testing.T) {
	cfg := baseConfig(t)
	cfg.MaxPositions = 1
	cfg.UseAlphaRanking = true

	book := NewPriceBook()
	book.Add("X", day(t, "2024-01-02"), 100)
	book.Add("Y", day(t, "2024-01-02"), 100)

	signals := []domain.SignalPoint{
		point(t, "2024-01-02", "X", 9),
		point(t, "2024-01-02", "Y", 3),
	}
	// Scores exist, just not for this date.
	alpha := NewAlphaRanker([]domain.AlphaScore{
		score(t, "2024-02-15", "Y", 0.9),
	})

	sim := NewSimulator(cfg, book, alpha)
	trades, _, _, err := sim.Run(context.Background(), signals)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(trades) != 1 || trades[0].Ticker != "X" {
		t.Fatalf("trades = %+v, want signal-ranked X", trades)
	}
}
