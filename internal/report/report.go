// Package report persists one record per scan run: a timestamped JSON file
// with the full ranked results, plus a summary row in the candle store's
// run history.
package report

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"PatternScout/internal/cache"
	"PatternScout/internal/model"
)

// Run is the on-disk report for one scan.
type Run struct {
	RunID           string             `json:"run_id"`
	Timestamp       time.Time          `json:"timestamp"`
	UniverseSize    int                `json:"universe_size"`
	TickersScanned  int                `json:"tickers_scanned"`
	BenchmarkReturn float64            `json:"benchmark_return"`
	Results         []model.ScanResult `json:"results"`
}

// Writer writes run reports. store may be nil to skip history rows.
type Writer struct {
	Dir   string
	Store *cache.Store
}

// NewWriter creates a report writer targeting dir.
func NewWriter(dir string, store *cache.Store) *Writer {
	return &Writer{Dir: dir, Store: store}
}

// Write persists one run report and returns its run ID.
func (w *Writer) Write(universeSize, scanned int, benchmarkReturn float64, results []model.ScanResult) (string, error) {
	run := Run{
		RunID:           uuid.NewString(),
		Timestamp:       time.Now(),
		UniverseSize:    universeSize,
		TickersScanned:  scanned,
		BenchmarkReturn: benchmarkReturn,
		Results:         results,
	}

	if w.Dir != "" {
		if err := os.MkdirAll(w.Dir, 0o755); err != nil {
			return run.RunID, fmt.Errorf("report dir: %w", err)
		}
		name := fmt.Sprintf("scan_%s_%s.json", run.Timestamp.Format("20060102_150405"), run.RunID[:8])
		path := filepath.Join(w.Dir, name)

		data, err := json.MarshalIndent(run, "", "  ")
		if err != nil {
			return run.RunID, fmt.Errorf("encode report: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return run.RunID, fmt.Errorf("write report: %w", err)
		}
	}

	if w.Store != nil {
		if err := w.Store.RecordRun(run.RunID, scanned, len(results), benchmarkReturn); err != nil {
			log.Printf("[WARN] run history row not recorded: %v", err)
		}
	}

	log.Printf("[INFO] run %s: %d/%d tickers, %d matches, benchmark %+.1f%%",
		run.RunID[:8], scanned, universeSize, len(results), benchmarkReturn*100)
	return run.RunID, nil
}
