package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"alphasim/internal/domain"
	"alphasim/internal/util"
)

// Compile-time interface checks.
var _ SignalStore = (*SQLiteStore)(nil)
var _ AlphaStore = (*SQLiteStore)(nil)

// SQLiteStore implements SignalStore and AlphaStore backed by a SQLite
// database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, runs the
// schema migration, and returns a ready-to-use SQLiteStore.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// migrate creates the tables if they do not exist yet.
func (s *SQLiteStore) migrate() error {
	const schema = `
CREATE TABLE IF NOT EXISTS signal_values (
	signal_name TEXT NOT NULL,
	scope       TEXT NOT NULL,
	ticker      TEXT NOT NULL DEFAULT '',
	date        TEXT NOT NULL,
	value       REAL NOT NULL,
	PRIMARY KEY (signal_name, scope, ticker, date)
);
CREATE INDEX IF NOT EXISTS idx_signal_values_name_date
	ON signal_values (signal_name, date);

CREATE TABLE IF NOT EXISTS alpha_scores (
	date   TEXT NOT NULL,
	ticker TEXT NOT NULL,
	score  REAL NOT NULL,
	PRIMARY KEY (date, ticker)
);
`
	_, err := s.db.Exec(schema)
	return err
}

// ---------------------------------------------------------------------------
// SignalStore implementation
// ---------------------------------------------------------------------------

// SaveSignalValues inserts or replaces a batch of raw rows for the named
// signal inside a single transaction.
func (s *SQLiteStore) SaveSignalValues(ctx context.Context, name string, rows []domain.RawSignal) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR REPLACE INTO signal_values (signal_name, scope, ticker, date, value)
VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx,
			name, string(r.Scope), r.Ticker, util.FormatDate(r.Date), r.Value,
		); err != nil {
			return fmt.Errorf("inserting signal row %s/%s: %w", name, r.Ticker, err)
		}
	}

	return tx.Commit()
}

// ReadSignalValues returns all rows for the named signal with dates in
// [start, end], ordered by date then ticker.
func (s *SQLiteStore) ReadSignalValues(ctx context.Context, name string, start, end time.Time) ([]domain.RawSignal, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT scope, ticker, date, value
FROM signal_values
WHERE signal_name = ? AND date >= ? AND date <= ?
ORDER BY date, ticker`,
		name, util.FormatDate(start), util.FormatDate(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RawSignal
	for rows.Next() {
		var (
			scope, ticker, date string
			value               float64
		)
		if err := rows.Scan(&scope, &ticker, &date, &value); err != nil {
			return nil, err
		}
		d, err := util.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("parsing stored date %q: %w", date, err)
		}
		out = append(out, domain.RawSignal{
			Scope:  domain.SignalScope(scope),
			Date:   d,
			Ticker: ticker,
			Value:  value,
		})
	}
	return out, rows.Err()
}

// ListSignalNames returns all distinct signal names present in storage.
func (s *SQLiteStore) ListSignalNames(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT signal_name FROM signal_values ORDER BY signal_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// ---------------------------------------------------------------------------
// AlphaStore implementation
// ---------------------------------------------------------------------------

// SaveAlphaScores inserts or replaces a batch of alpha scores inside a
// single transaction.
func (s *SQLiteStore) SaveAlphaScores(ctx context.Context, scores []domain.AlphaScore) error {
	if len(scores) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
INSERT OR REPLACE INTO alpha_scores (date, ticker, score)
VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, sc := range scores {
		if _, err := stmt.ExecContext(ctx,
			util.FormatDate(sc.Date), sc.Ticker, sc.Score,
		); err != nil {
			return fmt.Errorf("inserting alpha score %s/%s: %w", util.FormatDate(sc.Date), sc.Ticker, err)
		}
	}

	return tx.Commit()
}

// ReadAlphaScores returns all scores with dates in [start, end], ordered by
// date then ticker.
func (s *SQLiteStore) ReadAlphaScores(ctx context.Context, start, end time.Time) ([]domain.AlphaScore, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT date, ticker, score
FROM alpha_scores
WHERE date >= ? AND date <= ?
ORDER BY date, ticker`,
		util.FormatDate(start), util.FormatDate(end))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AlphaScore
	for rows.Next() {
		var (
			date, ticker string
			score        float64
		)
		if err := rows.Scan(&date, &ticker, &score); err != nil {
			return nil, err
		}
		d, err := util.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("parsing stored date %q: %w", date, err)
		}
		out = append(out, domain.AlphaScore{Date: d, Ticker: ticker, Score: score})
	}
	return out, rows.Err()
}
