package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"alphasim/internal/config"
	"alphasim/internal/domain"
	"alphasim/internal/store"
	"alphasim/internal/util"
)

// alphasim-import loads signal history and alpha scores from CSV files
// into the SQLite store.
//
// Signal CSV columns: date,scope,ticker,value — ticker is empty for
// sector_wide rows. Alpha CSV columns: date,ticker,score.
func main() {
	var (
		signalName = flag.String("signal", "", "signal name to import rows under")
		signalCSV  = flag.String("signal-csv", "", "path to a signal values CSV")
		alphaCSV   = flag.String("alpha-csv", "", "path to an alpha scores CSV")
	)
	flag.Parse()

	if *signalCSV == "" && *alphaCSV == "" {
		flag.Usage()
		os.Exit(1)
	}
	if *signalCSV != "" && *signalName == "" {
		log.Fatal("-signal is required with -signal-csv")
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

	sqlStore, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer sqlStore.Close()

	ctx := context.Background()

	if *signalCSV != "" {
		rows, err := readSignalCSV(*signalCSV)
		if err != nil {
			log.Fatalf("reading %s: %v", *signalCSV, err)
		}
		if err := sqlStore.SaveSignalValues(ctx, *signalName, rows); err != nil {
			log.Fatalf("saving signal values: %v", err)
		}
		logger.Info("imported signal values", "signal", *signalName, "rows", len(rows))
	}

	if *alphaCSV != "" {
		scores, err := readAlphaCSV(*alphaCSV)
		if err != nil {
			log.Fatalf("reading %s: %v", *alphaCSV, err)
		}
		if err := sqlStore.SaveAlphaScores(ctx, scores); err != nil {
			log.Fatalf("saving alpha scores: %v", err)
		}
		logger.Info("imported alpha scores", "rows", len(scores))
	}
}

func readSignalCSV(path string) ([]domain.RawSignal, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	var rows []domain.RawSignal
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 && rec[0] == "date" {
			continue // header
		}
		if len(rec) < 4 {
			return nil, fmt.Errorf("line %d: want 4 columns, got %d", line, len(rec))
		}

		date, err := util.ParseDate(rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		scope := domain.SignalScope(rec[1])
		if scope != domain.ScopePerTicker && scope != domain.ScopeSectorWide {
			return nil, fmt.Errorf("line %d: unknown scope %q", line, rec[1])
		}
		value, err := strconv.ParseFloat(rec[3], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		rows = append(rows, domain.RawSignal{
			Scope:  scope,
			Date:   date,
			Ticker: rec[2],
			Value:  value,
		})
	}
	return rows, nil
}

func readAlphaCSV(path string) ([]domain.AlphaScore, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	var scores []domain.AlphaScore
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if line == 1 && rec[0] == "date" {
			continue // header
		}
		if len(rec) < 3 {
			return nil, fmt.Errorf("line %d: want 3 columns, got %d", line, len(rec))
		}

		date, err := util.ParseDate(rec[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		score, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		scores = append(scores, domain.AlphaScore{
			Date:   date,
			Ticker: rec[1],
			Score:  score,
		})
	}
	return scores, nil
}
