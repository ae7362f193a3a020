package backtest

import (
	"context"
	"math"
	"reflect"
	"testing"
	"time"

	"alphasim/internal/domain"
)

func day(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		t.Fatalf("parsing date %q: %v", s, err)
	}
	return d
}

func baseConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		SignalName:     "momentum",
		Threshold:      2,
		StartDate:      day(t, "2024-01-02"),
		EndDate:        day(t, "2024-03-01"),
		InitialCapital: 1_000_000,
		MaxPositions:   2,
		HoldingPeriod:  5,
	}
}

func point(t *testing.T, date, ticker string, value float64) domain.SignalPoint {
	t.Helper()
	return domain.SignalPoint{Date: day(t, date), Ticker: ticker, Value: value}
}

// Scenario A from the engine contract: one signal, one fill sized at
// cash / freeSlots, closed after the holding period at that day's close.
func TestSimulatorSingleFillAndClose(t *testing.T) {
	cfg := baseConfig(t)

	book := NewPriceBook()
	book.Add("X", day(t, "2024-01-02"), 100)
	book.Add("X", day(t, "2024-01-07"), 110)

	signals := []domain.SignalPoint{
		point(t, "2024-01-02", "X", 3),
		// Below threshold; creates the trading day without a candidate.
		point(t, "2024-01-07", "X", 0.5),
	}

	sim := NewSimulator(cfg, book, nil)
	trades, curve, active, err := sim.Run(context.Background(), signals)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2 (BUY then SELL)", len(trades))
	}

	buy := trades[0]
	if buy.Side != SideBuy || buy.Ticker != "X" {
		t.Fatalf("first trade = %+v, want BUY X", buy)
	}
	if buy.Shares != 5000 {
		t.Errorf("BUY shares = %d, want floor(500000/100) = 5000", buy.Shares)
	}
	if buy.CashAfter != 500_000 {
		t.Errorf("cash after BUY = %v, want 500000", buy.CashAfter)
	}

	sell := trades[1]
	if sell.Side != SideSell {
		t.Fatalf("second trade side = %s, want SELL", sell.Side)
	}
	if sell.HoldingDays != 5 {
		t.Errorf("holdingDays = %d, want 5", sell.HoldingDays)
	}
	if want := 5000 * (110.0 - 100.0); sell.PnL != want {
		t.Errorf("pnl = %v, want %v", sell.PnL, want)
	}
	if sell.CloseReason != CloseReasonHoldingPeriod {
		t.Errorf("closeReason = %q, want %q", sell.CloseReason, CloseReasonHoldingPeriod)
	}
	if sell.EntryDate != buy.Date || sell.EntryPrice != 100 {
		t.Errorf("SELL references entry %v @ %v, want %v @ 100", sell.EntryDate, sell.EntryPrice, buy.Date)
	}

	if len(active) != 0 {
		t.Errorf("got %d active positions, want 0", len(active))
	}
	if len(curve) != 2 {
		t.Fatalf("got %d equity points, want 2", len(curve))
	}
	if got, want := curve[1].PortfolioValue, 1_050_000.0; got != want {
		t.Errorf("final portfolio value = %v, want %v", got, want)
	}
}

// Scenario B: two same-day candidates, one free slot. Only the
// higher-ranked fills; the other is dropped, not deferred.
func TestSimulatorDropsLowerRankedCandidate(t *testing.T) {
	cfg := baseConfig(t)
	cfg.MaxPositions = 1

	book := NewPriceBook()
	book.Add("X", day(t, "2024-01-02"), 50)
	book.Add("Y", day(t, "2024-01-02"), 80)
	book.Add("X", day(t, "2024-01-03"), 51)
	book.Add("Y", day(t, "2024-01-03"), 81)

	signals := []domain.SignalPoint{
		point(t, "2024-01-02", "X", 3),
		point(t, "2024-01-02", "Y", 5),
		point(t, "2024-01-03", "Z", 0.1), // next trading day, no candidate
	}

	sim := NewSimulator(cfg, book, nil)
	trades, _, _, err := sim.Run(context.Background(), signals)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(trades) != 1 {
		t.Fatalf("got %d trades, want exactly 1 BUY", len(trades))
	}
	if trades[0].Ticker != "Y" {
		t.Errorf("filled ticker = %q, want higher-ranked Y", trades[0].Ticker)
	}
}

// Cash freed by a close is available to same-day opens.
func TestSimulatorCloseBeforeOpenSameDay(t *testing.T) {
	cfg := baseConfig(t)
	cfg.MaxPositions = 1

	book := NewPriceBook()
	book.Add("X", day(t, "2024-01-02"), 100)
	book.Add("X", day(t, "2024-01-07"), 100)
	book.Add("Y", day(t, "2024-01-07"), 200)

	signals := []domain.SignalPoint{
		point(t, "2024-01-02", "X", 3),
		point(t, "2024-01-07", "Y", 4),
	}

	sim := NewSimulator(cfg, book, nil)
	trades, _, active, err := sim.Run(context.Background(), signals)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// BUY X, SELL X, BUY Y — the Y entry uses cash released by the X close.
	if len(trades) != 3 {
		t.Fatalf("got %d trades, want 3", len(trades))
	}
	if trades[1].Side != SideSell || trades[1].Ticker != "X" {
		t.Fatalf("trade[1] = %+v, want SELL X", trades[1])
	}
	if trades[2].Side != SideBuy || trades[2].Ticker != "Y" {
		t.Fatalf("trade[2] = %+v, want same-day BUY Y", trades[2])
	}
	if trades[2].Shares != 5000 {
		t.Errorf("Y shares = %d, want floor(1000000/200) = 5000", trades[2].Shares)
	}
	if len(active) != 1 || active[0].Ticker != "Y" {
		t.Errorf("active = %+v, want one open Y position", active)
	}
}

// Sequential slot-shrinking allocation: the second same-day fill divides
// the remaining cash by the remaining slots.
func TestSimulatorSequentialAllocation(t *testing.T) {
	cfg := baseConfig(t)
	cfg.MaxPositions = 2

	book := NewPriceBook()
	book.Add("X", day(t, "2024-01-02"), 100)
	book.Add("Y", day(t, "2024-01-02"), 100)

	signals := []domain.SignalPoint{
		point(t, "2024-01-02", "X", 5),
		point(t, "2024-01-02", "Y", 3),
	}

	sim := NewSimulator(cfg, book, nil)
	trades, _, _, err := sim.Run(context.Background(), signals)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2 BUYs", len(trades))
	}
	// First fill: 1000000/2 slots = 500000 -> 5000 shares.
	if trades[0].Ticker != "X" || trades[0].Shares != 5000 {
		t.Errorf("trade[0] = %s x%d, want X x5000", trades[0].Ticker, trades[0].Shares)
	}
	// Second fill: remaining 500000 / 1 slot = 500000 -> 5000 shares.
	if trades[1].Ticker != "Y" || trades[1].Shares != 5000 {
		t.Errorf("trade[1] = %s x%d, want Y x5000", trades[1].Ticker, trades[1].Shares)
	}
	if trades[1].CashAfter != 0 {
		t.Errorf("cash after second fill = %v, want 0", trades[1].CashAfter)
	}
}

// A candidate with no price for the day is skipped for that day only;
// the run continues.
func TestSimulatorSkipsCandidateWithoutPrice(t *testing.T) {
	cfg := baseConfig(t)

	book := NewPriceBook()
	book.Add("Y", day(t, "2024-01-02"), 100)
	// X has no prices at all.

	signals := []domain.SignalPoint{
		point(t, "2024-01-02", "X", 9),
		point(t, "2024-01-02", "Y", 3),
	}

	sim := NewSimulator(cfg, book, nil)
	trades, _, _, err := sim.Run(context.Background(), signals)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(trades) != 1 || trades[0].Ticker != "Y" {
		t.Fatalf("trades = %+v, want a single BUY of Y", trades)
	}
}

// An open position missing a day's price is marked at its entry price
// and, at maturity, fills the SELL at the entry price.
func TestSimulatorMarksMissingPriceAtEntry(t *testing.T) {
	cfg := baseConfig(t)

	book := NewPriceBook()
	book.Add("X", day(t, "2024-01-02"), 100)
	// No price on the close day.

	signals := []domain.SignalPoint{
		point(t, "2024-01-02", "X", 3),
		point(t, "2024-01-10", "X", 0.5),
	}

	sim := NewSimulator(cfg, book, nil)
	trades, curve, _, err := sim.Run(context.Background(), signals)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(trades) != 2 {
		t.Fatalf("got %d trades, want 2", len(trades))
	}
	sell := trades[1]
	if sell.Price != 100 || sell.PnL != 0 {
		t.Errorf("SELL price=%v pnl=%v, want entry-price fill with zero pnl", sell.Price, sell.PnL)
	}
	if got := curve[len(curve)-1].PortfolioValue; got != 1_000_000 {
		t.Errorf("final portfolio value = %v, want unchanged 1000000", got)
	}
}

// With no free slots the simulator never buys and the curve stays flat.
func TestSimulatorNoFreeSlots(t *testing.T) {
	cfg := baseConfig(t)
	cfg.MaxPositions = 0 // below the validated minimum, exercised directly

	book := NewPriceBook()
	book.Add("X", day(t, "2024-01-02"), 100)
	book.Add("X", day(t, "2024-01-03"), 120)

	signals := []domain.SignalPoint{
		point(t, "2024-01-02", "X", 3),
		point(t, "2024-01-03", "X", 4),
	}

	sim := NewSimulator(cfg, book, nil)
	trades, curve, _, err := sim.Run(context.Background(), signals)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(trades) != 0 {
		t.Fatalf("got %d trades, want 0", len(trades))
	}
	for _, p := range curve {
		if p.PortfolioValue != cfg.InitialCapital || p.CashBalance != cfg.InitialCapital {
			t.Errorf("equity point %v moved despite no trades", p)
		}
	}
}

// Threshold above every signal magnitude: empty ledger, flat curve.
func TestSimulatorThresholdFiltersEverything(t *testing.T) {
	cfg := baseConfig(t)
	cfg.Threshold = 100

	book := NewPriceBook()
	book.Add("X", day(t, "2024-01-02"), 100)

	signals := []domain.SignalPoint{
		point(t, "2024-01-02", "X", 3),
	}

	sim := NewSimulator(cfg, book, nil)
	trades, curve, _, err := sim.Run(context.Background(), signals)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(trades) != 0 {
		t.Fatalf("got %d trades, want 0", len(trades))
	}
	if got := curve[len(curve)-1].PortfolioValue; got != cfg.InitialCapital {
		t.Errorf("final value = %v, want initial capital", got)
	}
}

// The equity identity holds on every day: cash + marked positions equals
// the reported portfolio value, and caps never overflow.
func TestSimulatorInvariants(t *testing.T) {
	cfg := baseConfig(t)
	cfg.MaxPositions = 3
	cfg.HoldingPeriod = 3

	book := NewPriceBook()
	dates := []string{"2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05", "2024-01-08", "2024-01-09"}
	prices := map[string][]float64{
		"A": {100, 102, 99, 105, 103, 108},
		"B": {50, 51, 53, 49, 50, 52},
		"C": {200, 198, 205, 210, 202, 207},
		"D": {75, 76, 74, 77, 78, 80},
	}
	for ticker, ps := range prices {
		for i, d := range dates {
			book.Add(ticker, day(t, d), ps[i])
		}
	}

	var signals []domain.SignalPoint
	values := map[string]float64{"A": 4, "B": 3, "C": 5, "D": 2.5}
	for _, d := range dates {
		for ticker, v := range values {
			signals = append(signals, point(t, d, ticker, v))
		}
	}

	sim := NewSimulator(cfg, book, nil)
	trades, curve, active, err := sim.Run(context.Background(), signals)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(curve) != len(dates) {
		t.Fatalf("got %d equity points, want %d", len(curve), len(dates))
	}
	// Replay the trade ledger day by day and recompute cash and the
	// open-position market value independently of the reported curve.
	type lot struct {
		shares     int64
		entryPrice float64
	}
	cash := cfg.InitialCapital
	open := make(map[string]lot)
	for _, p := range curve {
		if p.NumPositions > cfg.MaxPositions {
			t.Errorf("%s: %d open positions exceeds max %d",
				p.Date.Format("2006-01-02"), p.NumPositions, cfg.MaxPositions)
		}

		for _, tr := range trades {
			if !tr.Date.Equal(p.Date) {
				continue
			}
			switch tr.Side {
			case SideBuy:
				cash -= tr.Value
				open[tr.Ticker] = lot{shares: tr.Shares, entryPrice: tr.Price}
			case SideSell:
				cash += tr.Value
				delete(open, tr.Ticker)
			}
		}

		invested := 0.0
		for ticker, l := range open {
			mark, ok := book.Resolve(ticker, p.Date)
			if !ok {
				mark = l.entryPrice
			}
			invested += float64(l.shares) * mark
		}

		if math.Abs(cash-p.CashBalance) > 1e-6 {
			t.Errorf("%s: replayed cash %v, reported %v", p.Date.Format("2006-01-02"), cash, p.CashBalance)
		}
		if math.Abs(cash+invested-p.PortfolioValue) > 1e-6 {
			t.Errorf("%s: replayed equity %v, reported %v",
				p.Date.Format("2006-01-02"), cash+invested, p.PortfolioValue)
		}
		if len(open) != p.NumPositions {
			t.Errorf("%s: replayed %d open positions, reported %d",
				p.Date.Format("2006-01-02"), len(open), p.NumPositions)
		}
		wantUtil := 0.0
		if p.PortfolioValue > 0 {
			wantUtil = invested / p.PortfolioValue * 100
		}
		if math.Abs(p.UtilizationPct-wantUtil) > 1e-6 {
			t.Errorf("%s: utilization %v, want %v", p.Date.Format("2006-01-02"), p.UtilizationPct, wantUtil)
		}
	}

	// Every SELL has a matching prior BUY and a full holding period.
	for i, tr := range trades {
		if tr.Side != SideSell {
			continue
		}
		if tr.HoldingDays < cfg.HoldingPeriod {
			t.Errorf("SELL %s held %d days, want >= %d", tr.Ticker, tr.HoldingDays, cfg.HoldingPeriod)
		}
		found := false
		for j := 0; j < i; j++ {
			b := trades[j]
			if b.Side == SideBuy && b.Ticker == tr.Ticker && b.Date.Equal(tr.EntryDate) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("SELL %s on %s has no matching BUY with entry %s",
				tr.Ticker, tr.Date.Format("2006-01-02"), tr.EntryDate.Format("2006-01-02"))
		}
	}

	// No ticker may appear twice among active positions.
	seen := make(map[string]bool)
	for _, pos := range active {
		if seen[pos.Ticker] {
			t.Errorf("ticker %s has more than one open position", pos.Ticker)
		}
		seen[pos.Ticker] = true
	}
}

// Identical inputs must produce identical ledgers and curves.
func TestSimulatorDeterminism(t *testing.T) {
	cfg := baseConfig(t)
	cfg.MaxPositions = 3
	cfg.HoldingPeriod = 2

	book := NewPriceBook()
	for i, d := range []string{"2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"} {
		book.Add("A", day(t, d), 100+float64(i))
		book.Add("B", day(t, d), 50+float64(i))
		book.Add("C", day(t, d), 75+float64(i))
	}

	var signals []domain.SignalPoint
	for _, d := range []string{"2024-01-02", "2024-01-03", "2024-01-04", "2024-01-05"} {
		signals = append(signals,
			point(t, d, "A", 3), point(t, d, "B", 3), point(t, d, "C", 3))
	}

	run := func() ([]Trade, []EquityPoint) {
		sim := NewSimulator(cfg, book, nil)
		trades, curve, _, err := sim.Run(context.Background(), signals)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		return trades, curve
	}

	trades1, curve1 := run()
	trades2, curve2 := run()

	if !reflect.DeepEqual(trades1, trades2) {
		t.Error("trade ledgers differ between identical runs")
	}
	if !reflect.DeepEqual(curve1, curve2) {
		t.Error("equity curves differ between identical runs")
	}
}

// Equal signal values rank by ticker so same-value candidates fill in a
// stable order.
func TestSimulatorTieBreakByTicker(t *testing.T) {
	cfg := baseConfig(t)
	cfg.MaxPositions = 1

	book := NewPriceBook()
	book.Add("B", day(t, "2024-01-02"), 10)
	book.Add("A", day(t, "2024-01-02"), 10)

	signals := []domain.SignalPoint{
		point(t, "2024-01-02", "B", 3),
		point(t, "2024-01-02", "A", 3),
	}

	sim := NewSimulator(cfg, book, nil)
	trades, _, _, err := sim.Run(context.Background(), signals)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(trades) != 1 || trades[0].Ticker != "A" {
		t.Fatalf("trades = %+v, want single BUY of A", trades)
	}
}

// Cancellation between days aborts the run with the context's error.
func TestSimulatorCancellation(t *testing.T) {
	cfg := baseConfig(t)

	book := NewPriceBook()
	book.Add("X", day(t, "2024-01-02"), 100)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sim := NewSimulator(cfg, book, nil)
	_, _, _, err := sim.Run(ctx, []domain.SignalPoint{point(t, "2024-01-02", "X", 3)})
	if err == nil {
		t.Fatal("Run returned nil error on cancelled context")
	}
}
