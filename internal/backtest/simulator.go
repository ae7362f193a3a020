package backtest

import (
	"context"
	"log/slog"
	"math"
	"sort"
	"time"

	"alphasim/internal/domain"
	"alphasim/internal/util"
)

// Simulator replays normalized signal points through the day-by-day
// portfolio state machine. It owns no shared state: every run threads an
// explicit state value through a per-day step, so a single day's
// transition is independently testable and identical inputs always
// produce identical output.
type Simulator struct {
	cfg    Config
	prices *PriceBook
	alpha  *AlphaRanker // nil when alpha ranking is disabled
	log    *slog.Logger
}

// NewSimulator creates a Simulator for the given config, price book, and
// optional alpha ranker.
func NewSimulator(cfg Config, prices *PriceBook, alpha *AlphaRanker) *Simulator {
	return &Simulator{
		cfg:    cfg,
		prices: prices,
		alpha:  alpha,
		log:    slog.Default().With("component", "simulator"),
	}
}

// state is the run-local mutable simulation state threaded through the
// per-day step.
type state struct {
	cash   float64
	open   map[string]*Position
	trades []Trade
	curve  []EquityPoint
}

// Run executes the simulation over every signal date within the config
// range, in strictly increasing date order. It checks ctx once per
// simulated day so long backtests can be cancelled without corrupting
// partial state.
func (s *Simulator) Run(ctx context.Context, signals []domain.SignalPoint) (trades []Trade, curve []EquityPoint, active []Position, err error) {
	byDate := make(map[string][]domain.SignalPoint)
	for _, sp := range signals {
		if sp.Date.Before(s.cfg.StartDate) || sp.Date.After(s.cfg.EndDate) {
			continue
		}
		key := util.FormatDate(sp.Date)
		byDate[key] = append(byDate[key], sp)
	}

	days := make([]string, 0, len(byDate))
	for key := range byDate {
		days = append(days, key)
	}
	sort.Strings(days)

	st := &state{
		cash: s.cfg.InitialCapital,
		open: make(map[string]*Position),
	}

	for _, key := range days {
		if err := ctx.Err(); err != nil {
			return nil, nil, nil, err
		}
		day, perr := util.ParseDate(key)
		if perr != nil {
			return nil, nil, nil, perr
		}
		s.step(st, day, byDate[key])
	}

	s.log.Debug("run complete",
		"days", len(days),
		"trades", len(st.trades),
		"open", len(st.open),
	)

	return st.trades, st.curve, s.activePositions(st), nil
}

// step advances the state by one trading day: close matured positions,
// open new candidates, snapshot equity. Closes run before opens so cash
// freed same-day is eligible for same-day entries; that ordering is a
// contract, not an accident.
func (s *Simulator) step(st *state, day time.Time, candidates []domain.SignalPoint) {
	s.closeMatured(st, day)
	s.openCandidates(st, day, candidates)
	s.snapshot(st, day)
}

// closeMatured sells every open position whose holding period has
// elapsed, in ticker order for determinism. A position with no price for
// the day fills at its own entry price (continuity over staleness).
func (s *Simulator) closeMatured(st *state, day time.Time) {
	tickers := make([]string, 0, len(st.open))
	for t := range st.open {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	for _, ticker := range tickers {
		pos := st.open[ticker]
		held := util.DaysBetween(pos.EntryDate, day)
		if held < s.cfg.HoldingPeriod {
			continue
		}

		price, ok := s.prices.Resolve(ticker, day)
		if !ok {
			price = pos.EntryPrice
		}

		sellValue := float64(pos.Shares) * price
		pnl := sellValue - pos.EntryValue
		returnPct := pnl / pos.EntryValue * 100

		cashBefore := st.cash
		pvBefore := st.cash + s.markValue(st, day)

		st.cash += sellValue
		delete(st.open, ticker)

		st.trades = append(st.trades, Trade{
			Side:                 SideSell,
			Date:                 day,
			Ticker:               ticker,
			Price:                price,
			Shares:               pos.Shares,
			Value:                sellValue,
			SignalValue:          pos.SignalValue,
			CashBefore:           cashBefore,
			CashAfter:            st.cash,
			PortfolioValueBefore: pvBefore,
			PortfolioValueAfter:  st.cash + s.markValue(st, day),
			EntryDate:            pos.EntryDate,
			EntryPrice:           pos.EntryPrice,
			HoldingDays:          held,
			PnL:                  pnl,
			ReturnPct:            returnPct,
			CloseReason:          CloseReasonHoldingPeriod,
		})
	}
}

// openCandidates ranks today's eligible signals and fills the top free
// slots in rank order. Position size is recomputed before every fill as
// cash / remainingFreeSlots — slots and cash shrink after each fill
// within the same day. This sequential allocation is order-sensitive on
// purpose; do not replace it with a simultaneous pre-split.
func (s *Simulator) openCandidates(st *state, day time.Time, candidates []domain.SignalPoint) {
	free := s.cfg.MaxPositions - len(st.open)
	if free <= 0 {
		return
	}

	eligible := make([]domain.SignalPoint, 0, len(candidates))
	for _, c := range candidates {
		if math.Abs(c.Value) < s.cfg.Threshold {
			continue
		}
		if _, alreadyOpen := st.open[c.Ticker]; alreadyOpen {
			continue
		}
		eligible = append(eligible, c)
	}

	ranked := s.rank(day, eligible)
	if len(ranked) > free {
		// Lower-ranked candidates are dropped, never deferred.
		ranked = ranked[:free]
	}

	for _, c := range ranked {
		slots := s.cfg.MaxPositions - len(st.open)
		if slots <= 0 {
			return
		}

		price, ok := s.prices.Resolve(c.Ticker, day)
		if !ok {
			// No entry price today: skip this day's attempt only.
			continue
		}

		size := st.cash / float64(slots)
		shares := int64(math.Floor(size / price))
		cost := float64(shares) * price
		if shares <= 0 || cost > st.cash {
			continue
		}

		cashBefore := st.cash
		pvBefore := st.cash + s.markValue(st, day)

		st.cash -= cost
		st.open[c.Ticker] = &Position{
			Ticker:      c.Ticker,
			EntryDate:   day,
			EntryPrice:  price,
			Shares:      shares,
			EntryValue:  cost,
			SignalValue: c.Value,
		}

		st.trades = append(st.trades, Trade{
			Side:                 SideBuy,
			Date:                 day,
			Ticker:               c.Ticker,
			Price:                price,
			Shares:               shares,
			Value:                cost,
			SignalValue:          c.Value,
			CashBefore:           cashBefore,
			CashAfter:            st.cash,
			PortfolioValueBefore: pvBefore,
			PortfolioValueAfter:  st.cash + s.markValue(st, day),
		})
	}
}

// rank orders candidates best-first. Default: descending signal value.
// With alpha ranking enabled and scores present for the day, candidates
// missing a score or scoring below the configured minimum are dropped
// and the rest are ordered descending by score. Days without any alpha
// score fall back to the signal-value ordering. Ties break on ticker so
// runs are replayable.
func (s *Simulator) rank(day time.Time, candidates []domain.SignalPoint) []domain.SignalPoint {
	if s.cfg.UseAlphaRanking && s.alpha.HasDate(day) {
		type scored struct {
			point domain.SignalPoint
			score float64
		}
		kept := make([]scored, 0, len(candidates))
		for _, c := range candidates {
			score, ok := s.alpha.Score(day, c.Ticker)
			if !ok || score < s.cfg.AlphaMinThreshold {
				continue
			}
			kept = append(kept, scored{point: c, score: score})
		}
		sort.SliceStable(kept, func(i, j int) bool {
			if kept[i].score != kept[j].score {
				return kept[i].score > kept[j].score
			}
			return kept[i].point.Ticker < kept[j].point.Ticker
		})
		out := make([]domain.SignalPoint, len(kept))
		for i, k := range kept {
			out[i] = k.point
		}
		return out
	}

	ranked := make([]domain.SignalPoint, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Value != ranked[j].Value {
			return ranked[i].Value > ranked[j].Value
		}
		return ranked[i].Ticker < ranked[j].Ticker
	})
	return ranked
}

// snapshot appends the end-of-day equity point.
func (s *Simulator) snapshot(st *state, day time.Time) {
	pv := st.cash + s.markValue(st, day)

	cumReturn := (pv - s.cfg.InitialCapital) / s.cfg.InitialCapital * 100
	utilization := 0.0
	if pv > 0 {
		utilization = (pv - st.cash) / pv * 100
	}

	st.curve = append(st.curve, EquityPoint{
		Date:                day,
		PortfolioValue:      pv,
		CumulativeReturnPct: cumReturn,
		NumPositions:        len(st.open),
		CashBalance:         st.cash,
		UtilizationPct:      utilization,
	})
}

// markValue sums the market value of all open positions at day's close,
// falling back to each position's entry price when the day has no price.
func (s *Simulator) markValue(st *state, day time.Time) float64 {
	total := 0.0
	for _, pos := range st.open {
		price, ok := s.prices.Resolve(pos.Ticker, day)
		if !ok {
			price = pos.EntryPrice
		}
		total += float64(pos.Shares) * price
	}
	return total
}

// activePositions returns positions still open at the end of the run,
// sorted by ticker. They are reported as-is, never force-liquidated.
func (s *Simulator) activePositions(st *state) []Position {
	out := make([]Position, 0, len(st.open))
	for _, pos := range st.open {
		out = append(out, *pos)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Ticker < out[j].Ticker
	})
	return out
}
