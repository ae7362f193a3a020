package us

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"alphasim/internal/domain"
	"alphasim/internal/gather"
	"alphasim/internal/store"
	"alphasim/internal/util"
)

// Compile-time interface check.
var _ gather.Gatherer = (*DailyBarGatherer)(nil)

// DailyBarGatherer gathers daily bar data for a configured list of US
// equities via the Alpaca market-data API and writes it to a bar store.
// Runs are idempotent: the Parquet store merges on write.
type DailyBarGatherer struct {
	client     *marketdata.Client
	store      store.BarStore
	symbols    []string
	batchSize  int // symbols per API call
	maxWorkers int // concurrent goroutines
	startDate  string
	apiKey     string
	apiSecret  string
	baseURL    string // live trading API, used for the calendar
	limiter    *util.RateLimiter
	log        *slog.Logger
}

// NewDailyBarGatherer creates a DailyBarGatherer configured with the given
// Alpaca credentials, target store, symbol list, and batch parameters.
func NewDailyBarGatherer(
	apiKey, apiSecret, dataURL, baseURL string,
	s store.BarStore,
	symbols []string,
	batchSize, maxWorkers, rateLimitPerMin int,
	startDate string,
) *DailyBarGatherer {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}

	return &DailyBarGatherer{
		client:     marketdata.NewClient(opts),
		store:      s,
		symbols:    symbols,
		batchSize:  batchSize,
		maxWorkers: maxWorkers,
		startDate:  startDate,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		baseURL:    baseURL,
		limiter:    util.NewRateLimiter(rateLimitPerMin),
		log:        slog.Default().With("gatherer", "us-daily"),
	}
}

// Name returns the gatherer identifier.
func (g *DailyBarGatherer) Name() string { return "us-daily" }

// Run fetches daily bars for the configured symbols from the Alpaca API
// and writes them to the bar store, batching symbols per request and
// fanning batches out over workers.
func (g *DailyBarGatherer) Run(ctx context.Context) error {
	start, err := time.Parse("2006-01-02", g.startDate)
	if err != nil {
		return fmt.Errorf("parsing start date %q: %w", g.startDate, err)
	}

	endDate, err := LatestFinishedTradingDay(g.apiKey, g.apiSecret, g.baseURL)
	if err != nil {
		return fmt.Errorf("determining end date: %w", err)
	}

	if len(g.symbols) == 0 {
		g.log.Info("no symbols configured, nothing to do")
		return nil
	}

	batchSize := g.batchSize
	if batchSize < 1 {
		batchSize = 1
	}
	var batches [][]string
	for i := 0; i < len(g.symbols); i += batchSize {
		end := min(i+batchSize, len(g.symbols))
		batches = append(batches, g.symbols[i:end])
	}

	g.log.Info("starting us-daily",
		"endDate", endDate.Format("2006-01-02"),
		"symbols", len(g.symbols),
		"batches", len(batches),
	)

	batchCh := make(chan int, len(batches))
	for i := range batches {
		batchCh <- i
	}
	close(batchCh)

	var (
		wg        sync.WaitGroup
		totalBars atomic.Int64
		runStart  = time.Now()
	)

	workers := min(g.maxWorkers, len(batches))
	if workers < 1 {
		workers = 1
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batchIdx := range batchCh {
				if ctx.Err() != nil {
					return
				}

				if err := g.limiter.Wait(ctx); err != nil {
					return
				}

				batch := batches[batchIdx]
				var bars []domain.Bar
				err := util.Retry(ctx, 3, 2*time.Second, func() error {
					var ferr error
					bars, ferr = g.fetchMultiBars(ctx, batch, start, endDate)
					return ferr
				})
				if err != nil {
					g.log.Error("batch fetch failed",
						"batch", fmt.Sprintf("%d/%d", batchIdx+1, len(batches)),
						"err", err,
					)
					continue
				}

				if len(bars) > 0 {
					if err := g.store.WriteBars(ctx, bars); err != nil {
						g.log.Error("writing bars failed", "err", err)
						continue
					}
				}

				totalBars.Add(int64(len(bars)))
				g.log.Info("batch done",
					"batch", fmt.Sprintf("%d/%d", batchIdx+1, len(batches)),
					"bars", len(bars),
					"elapsed", time.Since(runStart).Round(time.Second),
				)
			}
		}()
	}

	wg.Wait()

	if ctx.Err() != nil {
		return ctx.Err()
	}

	g.log.Info("complete",
		"bars", totalBars.Load(),
		"elapsed", time.Since(runStart).Round(time.Second),
	)
	return nil
}

// fetchMultiBars fetches daily bars for multiple symbols in a single API call.
func (g *DailyBarGatherer) fetchMultiBars(ctx context.Context, symbols []string, start, end time.Time) ([]domain.Bar, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	multiBars, err := g.client.GetMultiBars(symbols, marketdata.GetBarsRequest{
		TimeFrame: marketdata.OneDay,
		Start:     start,
		End:       end,
		Feed:      "sip",
	})
	if err != nil {
		return nil, fmt.Errorf("GetMultiBars: %w", err)
	}

	var bars []domain.Bar
	for symbol, alpacaBars := range multiBars {
		for _, ab := range alpacaBars {
			bars = append(bars, domain.Bar{
				Symbol:     strings.ToUpper(symbol),
				Timestamp:  ab.Timestamp,
				Open:       ab.Open,
				High:       ab.High,
				Low:        ab.Low,
				Close:      ab.Close,
				Volume:     int64(ab.Volume),
				TradeCount: int64(ab.TradeCount),
				VWAP:       ab.VWAP,
			})
		}
	}
	return bars, nil
}
