// Package scheduler wires the scan pipeline to a cron trigger and offers a
// manual trigger for run-on-start and operator use.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"

	"PatternScout/internal/model"
	"PatternScout/internal/recommend"
	"PatternScout/internal/report"
	"PatternScout/internal/scanner"
	"PatternScout/internal/universe"

	"github.com/robfig/cron/v3"
)

// Scheduler manages the periodic scan task.
type Scheduler struct {
	Cron      *cron.Cron
	Universe  *universe.Source
	Scanner   *scanner.Scanner
	Recommend *recommend.Engine
	Report    *report.Writer
	Ctx       context.Context
}

// NewScheduler creates a Scheduler bound to ctx; a cancelled ctx stops any
// in-flight scan at the next batch boundary.
func NewScheduler(ctx context.Context, src *universe.Source, sc *scanner.Scanner, eng *recommend.Engine, rep *report.Writer) *Scheduler {
	return &Scheduler{
		Cron:      cron.New(cron.WithSeconds()),
		Universe:  src,
		Scanner:   sc,
		Recommend: eng,
		Report:    rep,
		Ctx:       ctx,
	}
}

// Register registers the periodic scan.
func (s *Scheduler) Register(scanCron string) error {
	if _, err := s.Cron.AddFunc(scanCron, s.scanTask); err != nil {
		return fmt.Errorf("register scan task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunNow executes a scan immediately (manual trigger / RUN_ON_START). A
// scan already in flight makes this a no-op.
func (s *Scheduler) RunNow() {
	s.scanTask()
}

func (s *Scheduler) scanTask() {
	tickers := s.Universe.Tickers(s.Ctx)
	if len(tickers) == 0 {
		log.Println("[WARN] empty universe, scan skipped")
		return
	}

	// The scanner flips the snapshot's in-progress flag itself, so a
	// trigger losing the single-flight race cannot clear it mid-run.
	results, err := s.Scanner.Scan(s.Ctx, tickers)
	if err != nil {
		if errors.Is(err, scanner.ErrAlreadyRunning) {
			return
		}
		log.Printf("[ERROR] scan failed: %v", err)
		return
	}

	set := s.Recommend.Apply(results)
	logShortlist(set)

	status := s.Scanner.Status()
	if _, err := s.Report.Write(len(tickers), status.Processed, s.Scanner.BenchmarkLastReturn(), results); err != nil {
		log.Printf("[WARN] report not written: %v", err)
	}
}

func logShortlist(set model.RecommendationSet) {
	for _, cat := range []model.Category{
		model.CategoryAggressive, model.CategoryBalanced,
		model.CategoryConservative, model.CategorySpeculative,
	} {
		for _, r := range set.Categories[cat] {
			log.Printf("[INFO] %s: %s %s score %.1f (%s)", cat, r.Ticker, r.Grade, r.Score, r.Detector)
		}
	}
}
