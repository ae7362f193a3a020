package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"alphasim/internal/config"
	"alphasim/internal/gather/us"
	"alphasim/internal/store"
	"alphasim/internal/util"
)

func main() {
	symbolsPath := flag.String("symbols", "", "path to symbols file (default from config)")
	flag.Parse()

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

	path := cfg.Gather.SymbolsCSV
	if *symbolsPath != "" {
		path = *symbolsPath
	}
	if path == "" {
		log.Fatal("no symbols file configured (set gather.symbols_csv or -symbols)")
	}

	symbols, err := us.ReadSymbolsCSV(path)
	if err != nil {
		log.Fatalf("failed to read symbols: %v", err)
	}

	barStore := store.NewParquetStore(cfg.Storage.DataDir)

	gatherer := us.NewDailyBarGatherer(
		cfg.Alpaca.APIKey,
		cfg.Alpaca.APISecret,
		cfg.Alpaca.DataURL,
		cfg.Alpaca.BaseURL,
		barStore,
		symbols,
		cfg.Gather.BatchSize,
		cfg.Gather.MaxWorkers,
		cfg.Gather.RateLimitPerMin,
		cfg.Gather.StartDate,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting alphasim-gather", "symbols", len(symbols))
	if err := gatherer.Run(ctx); err != nil {
		log.Fatalf("gather error: %v", err)
	}
}
