package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"alphasim/internal/backtest"
	"alphasim/internal/config"
	"alphasim/internal/engine"
	"alphasim/internal/store"
	"alphasim/internal/util"
)

func main() {
	var (
		signalName = flag.String("signal", "", "signal name to backtest (required)")
		threshold  = flag.Float64("threshold", 2.0, "minimum absolute signal value")
		startDate  = flag.String("start", "", "start date YYYY-MM-DD (required)")
		endDate    = flag.String("end", "", "end date YYYY-MM-DD (required)")
		capital    = flag.Float64("capital", 0, "initial capital (default from config)")
		maxPos     = flag.Int("max-positions", 0, "maximum concurrent positions (default from config)")
		holding    = flag.Int("holding", 0, "holding period in days (default from config)")
		useAlpha   = flag.Bool("alpha", false, "enable alpha ranking overlay")
		alphaMin   = flag.Float64("alpha-min", 0, "minimum alpha score for candidates")
	)
	flag.Parse()

	if *signalName == "" || *startDate == "" || *endDate == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfgPath := "config/alphasim.yaml"
	if p := os.Getenv("ALPHASIM_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.NewLogger(cfg.Logging.Level)
	util.SetDefault(logger)

	start, err := util.ParseDate(*startDate)
	if err != nil {
		log.Fatalf("invalid start date: %v", err)
	}
	end, err := util.ParseDate(*endDate)
	if err != nil {
		log.Fatalf("invalid end date: %v", err)
	}

	btCfg := backtest.Config{
		SignalName:        *signalName,
		Threshold:         *threshold,
		StartDate:         start,
		EndDate:           end,
		InitialCapital:    cfg.Backtest.InitialCapital,
		MaxPositions:      cfg.Backtest.MaxPositions,
		HoldingPeriod:     cfg.Backtest.HoldingPeriod,
		UseAlphaRanking:   *useAlpha,
		AlphaMinThreshold: cfg.Backtest.AlphaMinThreshold,
	}
	if *capital > 0 {
		btCfg.InitialCapital = *capital
	}
	if *maxPos > 0 {
		btCfg.MaxPositions = *maxPos
	}
	if *holding > 0 {
		btCfg.HoldingPeriod = *holding
	}
	if *alphaMin != 0 {
		btCfg.AlphaMinThreshold = *alphaMin
	}

	barStore := store.NewParquetStore(cfg.Storage.DataDir)
	sqlStore, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open signal store: %v", err)
	}
	defer sqlStore.Close()

	eng := engine.NewEngine(sqlStore, barStore, sqlStore, nil, cfg.Gather.MaxWorkers)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	result, err := eng.Run(ctx, btCfg)
	if err != nil {
		log.Fatalf("backtest failed: %v", err)
	}

	printReport(result)
}

// printReport writes a plain-text summary of the run to stdout.
func printReport(r *backtest.Result) {
	fmt.Printf("Backtest: %s  %s .. %s\n",
		r.Config.SignalName,
		util.FormatDate(r.Config.StartDate),
		util.FormatDate(r.Config.EndDate),
	)
	fmt.Printf("Initial capital:    %14.2f\n", r.Stats.InitialCapital)
	fmt.Printf("Final value:        %14.2f\n", r.Stats.FinalValue)
	fmt.Printf("Total return:       %13.2f%%\n", r.Stats.TotalReturnPct)
	fmt.Printf("Annualized return:  %13.2f%%\n", r.Stats.AnnualizedReturnPct)
	fmt.Printf("Sharpe ratio:       %14.2f\n", r.Stats.SharpeRatio)
	fmt.Printf("Max drawdown:       %13.2f%%\n", r.Stats.MaxDrawdownPct)
	fmt.Println()
	fmt.Printf("Completed trades:   %6d  (win %d / loss %d, %.1f%%)\n",
		r.TradeMetrics.TotalTrades,
		r.TradeMetrics.WinningTrades,
		r.TradeMetrics.LosingTrades,
		r.TradeMetrics.WinRatePct,
	)
	fmt.Printf("Profit factor:      %8.2f\n", r.TradeMetrics.ProfitFactor)
	fmt.Printf("Avg trade size:     %10.2f\n", r.TradeMetrics.AvgTradeSize)
	fmt.Printf("Avg holding days:   %8.1f\n", r.TradeMetrics.AvgHoldingDays)
	fmt.Printf("Avg utilization:    %7.1f%%\n", r.TradeMetrics.AvgCashUtilizationPct)
	fmt.Printf("Active positions:   %6d\n", len(r.ActivePositions))

	for _, pos := range r.ActivePositions {
		fmt.Printf("  %-6s  %6d sh @ %.2f  entered %s\n",
			pos.Ticker, pos.Shares, pos.EntryPrice, util.FormatDate(pos.EntryDate))
	}
}
