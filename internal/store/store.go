// Package store defines storage interfaces for persisting and retrieving
// price bars, historical signal values, and alpha scores.
package store

import (
	"context"
	"time"

	"alphasim/internal/domain"
)

// BarStore persists and retrieves OHLCV bar data.
type BarStore interface {
	// WriteBars persists a batch of bars to storage.
	WriteBars(ctx context.Context, bars []domain.Bar) error

	// ReadBars returns bars for the given symbol and market within [start, end].
	ReadBars(ctx context.Context, symbol string, market string, start, end time.Time) ([]domain.Bar, error)

	// ListSymbols returns all distinct symbols available in the given market.
	ListSymbols(ctx context.Context, market string) ([]string, error)
}

// SignalStore persists and retrieves historical signal values.
type SignalStore interface {
	// SaveSignalValues persists a batch of raw rows for the named signal.
	SaveSignalValues(ctx context.Context, name string, rows []domain.RawSignal) error

	// ReadSignalValues returns all rows for the named signal with dates in
	// [start, end].
	ReadSignalValues(ctx context.Context, name string, start, end time.Time) ([]domain.RawSignal, error)

	// ListSignalNames returns all distinct signal names present in storage.
	ListSignalNames(ctx context.Context) ([]string, error)
}

// AlphaStore persists and retrieves auxiliary ranking scores.
type AlphaStore interface {
	// SaveAlphaScores persists a batch of alpha scores.
	SaveAlphaScores(ctx context.Context, scores []domain.AlphaScore) error

	// ReadAlphaScores returns all scores with dates in [start, end].
	ReadAlphaScores(ctx context.Context, start, end time.Time) ([]domain.AlphaScore, error)
}
