// Package cache implements the persistent TTL-aware candle store keyed by
// (ticker, period, interval). It is the last resort of the provider chain:
// entries past TTL are still readable, labeled stale.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"PatternScout/internal/model"
)

// Entry is one cached series with its fetch timestamp. Stale is set on
// reads that fall outside the store's TTL.
type Entry struct {
	Ticker    string
	Period    model.Period
	Interval  model.Interval
	FetchedAt time.Time
	Series    model.Series
	Stale     bool
}

// Store persists candle series in a local SQLite database.
type Store struct {
	db  *sql.DB
	mu  sync.Mutex
	ttl time.Duration
}

// NewStore opens (or creates) the SQLite database and runs migrations.
func NewStore(dbPath string, ttl time.Duration) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode so status pollers and scan workers can read while a fetch writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &Store{db: db, ttl: ttl}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] candle store opened: %s (ttl %s)", dbPath, ttl)
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS candles (
			ticker     TEXT NOT NULL,
			period     TEXT NOT NULL,
			interval   TEXT NOT NULL,
			fetched_at INTEGER NOT NULL,
			series     TEXT NOT NULL,
			PRIMARY KEY (ticker, period, interval)
		)`,
		`CREATE TABLE IF NOT EXISTS scan_runs (
			run_id           TEXT PRIMARY KEY,
			timestamp        INTEGER NOT NULL,
			tickers_scanned  INTEGER,
			results_found    INTEGER,
			benchmark_return REAL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_scan_runs_ts ON scan_runs(timestamp)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// Put stores a series, overwriting any previous entry for the same key.
func (s *Store) Put(ticker string, period model.Period, interval model.Interval, series model.Series) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("encode series: %w", err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO candles
		(ticker, period, interval, fetched_at, series) VALUES (?,?,?,?,?)`,
		ticker, string(period), string(interval), time.Now().Unix(), string(blob))
	if err != nil {
		return fmt.Errorf("put %s/%s/%s: %w", ticker, period, interval, err)
	}
	return nil
}

// Get returns the cached entry for a key regardless of age, with Stale set
// when the entry is past TTL. Returns (nil, nil) when no entry exists.
func (s *Store) Get(ticker string, period model.Period, interval model.Interval) (*Entry, error) {
	var fetchedAt int64
	var blob string
	err := s.db.QueryRow(`SELECT fetched_at, series FROM candles
		WHERE ticker = ? AND period = ? AND interval = ?`,
		ticker, string(period), string(interval)).Scan(&fetchedAt, &blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s/%s: %w", ticker, period, interval, err)
	}

	var series model.Series
	if err := json.Unmarshal([]byte(blob), &series); err != nil {
		return nil, fmt.Errorf("decode series %s: %w", ticker, err)
	}

	entry := &Entry{
		Ticker:    ticker,
		Period:    period,
		Interval:  interval,
		FetchedAt: time.Unix(fetchedAt, 0),
		Series:    series,
	}
	entry.Stale = time.Since(entry.FetchedAt) > s.ttl
	return entry, nil
}

// GetFresh returns the entry only when it is within TTL, else (nil, nil).
func (s *Store) GetFresh(ticker string, period model.Period, interval model.Interval) (*Entry, error) {
	entry, err := s.Get(ticker, period, interval)
	if err != nil || entry == nil {
		return entry, err
	}
	if entry.Stale {
		return nil, nil
	}
	return entry, nil
}

// RecordRun appends one row of scan-run history.
func (s *Store) RecordRun(runID string, tickersScanned, resultsFound int, benchmarkReturn float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT OR REPLACE INTO scan_runs
		(run_id, timestamp, tickers_scanned, results_found, benchmark_return)
		VALUES (?,?,?,?,?)`,
		runID, time.Now().Unix(), tickersScanned, resultsFound, benchmarkReturn)
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	log.Println("[INFO] closing candle store")
	return s.db.Close()
}
