package backtest

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"alphasim/internal/domain"
	"alphasim/internal/store"
	"alphasim/internal/util"
)

// PriceBook maps (ticker, date) to a daily close price. It is built in
// full before the simulation loop starts; the simulator never fetches
// prices mid-run.
//
// Keys are UTC civil dates. Timestamps are converted to UTC before the
// date is taken, so a bar stamped 2024-01-02T05:00Z keys to 2024-01-02
// regardless of the host time zone.
type PriceBook struct {
	prices map[string]map[string]float64 // ticker -> UTC date key -> close
}

// NewPriceBook creates an empty PriceBook.
func NewPriceBook() *PriceBook {
	return &PriceBook{prices: make(map[string]map[string]float64)}
}

// Add records the close price for (ticker, date).
func (b *PriceBook) Add(ticker string, date time.Time, close float64) {
	m, ok := b.prices[ticker]
	if !ok {
		m = make(map[string]float64)
		b.prices[ticker] = m
	}
	m[util.FormatDate(date.UTC())] = close
}

// Resolve returns the close price for (ticker, date). The second return
// value is false when no price is recorded for that day.
func (b *PriceBook) Resolve(ticker string, date time.Time) (float64, bool) {
	m, ok := b.prices[ticker]
	if !ok {
		return 0, false
	}
	price, ok := m[util.FormatDate(date.UTC())]
	return price, ok
}

// Tickers returns the sorted set of tickers with at least one price.
func (b *PriceBook) Tickers() []string {
	out := make([]string, 0, len(b.prices))
	for t := range b.prices {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// LoadPriceBook prefetches close prices for every ticker over [start, end]
// from the bar store, fanning reads out over maxWorkers goroutines. It
// returns only after every fetch has completed — the simulation loop must
// never block on price IO.
//
// A ticker with no bar data at all simply ends up absent from the book;
// candidates for it are skipped day by day rather than failing the run.
func LoadPriceBook(
	ctx context.Context,
	bars store.BarStore,
	market domain.Market,
	tickers []string,
	start, end time.Time,
	maxWorkers int,
) (*PriceBook, error) {
	book := NewPriceBook()
	if len(tickers) == 0 {
		return book, nil
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	log := slog.Default().With("component", "pricebook")

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	tickerCh := make(chan string, len(tickers))
	for _, t := range tickers {
		tickerCh <- t
	}
	close(tickerCh)

	workers := maxWorkers
	if workers > len(tickers) {
		workers = len(tickers)
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ticker := range tickerCh {
				if ctx.Err() != nil {
					return
				}
				rows, err := bars.ReadBars(ctx, ticker, string(market), start, end)
				if err != nil {
					// Missing history disqualifies the ticker, not the run.
					log.Warn("reading bars", "ticker", ticker, "err", err)
					continue
				}
				mu.Lock()
				for _, bar := range rows {
					book.Add(ticker, bar.Timestamp, bar.Close)
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return book, nil
}
