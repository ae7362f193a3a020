// Package engine coordinates a backtest run end to end: it loads signal
// history, normalizes it, prefetches prices, and drives the simulator.
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"alphasim/internal/backtest"
	"alphasim/internal/domain"
	"alphasim/internal/signal"
	"alphasim/internal/store"
)

// Engine wires the simulator to its collaborators: signal sources, a
// bar store, and an optional alpha-score store.
type Engine struct {
	signals    store.SignalStore
	bars       store.BarStore
	alpha      store.AlphaStore
	sources    *signal.Registry
	market     domain.Market
	maxWorkers int
	log        *slog.Logger
}

// NewEngine creates an Engine wired with the given stores. sources may
// be nil, in which case every signal name is served from stored
// history; a registered source takes precedence over the store for its
// name. maxWorkers bounds the parallelism of the price prefetch; the
// simulation itself is strictly sequential.
func NewEngine(signals store.SignalStore, bars store.BarStore, alpha store.AlphaStore, sources *signal.Registry, maxWorkers int) *Engine {
	return &Engine{
		signals:    signals,
		bars:       bars,
		alpha:      alpha,
		sources:    sources,
		market:     domain.MarketUS,
		maxWorkers: maxWorkers,
		log:        slog.Default().With("component", "engine"),
	}
}

// source resolves the Source serving a signal name. Registered sources
// win; any other name falls back to the persisted signal history.
func (e *Engine) source(name string) signal.Source {
	if e.sources != nil {
		if src, ok := e.sources.Get(name); ok {
			return src
		}
	}
	return signal.NewStoreSource(name, e.signals)
}

// Run executes one backtest and returns the full result. Configuration
// errors and total signal unavailability abort the run with a typed
// error; per-day price gaps are absorbed inside the simulation. A run
// that legitimately produces zero trades still returns a valid result
// with neutral statistics.
func (e *Engine) Run(ctx context.Context, cfg backtest.Config) (*backtest.Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// 1. Load raw signal history through the source serving this name.
	raws, err := e.source(cfg.SignalName).Fetch(ctx, cfg.StartDate, cfg.EndDate)
	if err != nil {
		return nil, fmt.Errorf("reading signal values: %w", err)
	}
	if len(raws) == 0 {
		return nil, &backtest.DataUnavailableError{
			SignalName: cfg.SignalName,
			Hint:       "populate historical signal data first",
		}
	}

	// 2. Normalize. Sector-wide rows broadcast across the stored universe.
	universe, err := e.bars.ListSymbols(ctx, string(e.market))
	if err != nil {
		return nil, fmt.Errorf("listing universe: %w", err)
	}
	points := signal.Normalize(raws, universe, cfg.Threshold)

	// 3. Prefetch prices for every ticker the signals touch. This is the
	// synchronous barrier: the simulation loop never does IO.
	tickers := distinctTickers(points)
	book, err := backtest.LoadPriceBook(ctx, e.bars, e.market, tickers, cfg.StartDate, cfg.EndDate, e.maxWorkers)
	if err != nil {
		return nil, fmt.Errorf("prefetching prices: %w", err)
	}

	// 4. Load alpha scores only when the overlay is enabled.
	var ranker *backtest.AlphaRanker
	if cfg.UseAlphaRanking && e.alpha != nil {
		scores, err := e.alpha.ReadAlphaScores(ctx, cfg.StartDate, cfg.EndDate)
		if err != nil {
			return nil, fmt.Errorf("reading alpha scores: %w", err)
		}
		ranker = backtest.NewAlphaRanker(scores)
	}

	// 5. Simulate.
	sim := backtest.NewSimulator(cfg, book, ranker)
	trades, curve, active, err := sim.Run(ctx, points)
	if err != nil {
		return nil, err
	}

	// 6. Aggregate.
	stats, tradeMetrics := backtest.ComputeMetrics(trades, curve, cfg.InitialCapital)

	e.log.Info("backtest complete",
		"signal", cfg.SignalName,
		"trades", len(trades),
		"days", len(curve),
		"finalValue", stats.FinalValue,
	)

	return &backtest.Result{
		Config:          cfg,
		Stats:           stats,
		TradeMetrics:    tradeMetrics,
		Trades:          trades,
		ActivePositions: active,
		EquityCurve:     curve,
	}, nil
}

// distinctTickers returns the unique tickers mentioned by the signal
// points, in first-seen order (LoadPriceBook does not care about order).
func distinctTickers(points []domain.SignalPoint) []string {
	seen := make(map[string]struct{}, len(points))
	var out []string
	for _, p := range points {
		if _, ok := seen[p.Ticker]; ok {
			continue
		}
		seen[p.Ticker] = struct{}{}
		out = append(out, p.Ticker)
	}
	return out
}
