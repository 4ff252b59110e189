// Package recommend maintains the sticky per-category shortlist. Incumbents
// survive as long as they keep matching their category; open slots are
// filled from the newest run's best scores. The hysteresis keeps the list
// from reshuffling on scoring noise run to run.
package recommend

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"PatternScout/internal/detector"
	"PatternScout/internal/model"
)

// Engine owns the recommendation set and its persistence.
type Engine struct {
	mu           sync.Mutex
	set          model.RecommendationSet
	snapshotFile string
	categoryOf   map[string]model.Category // detector name -> category
}

// NewEngine creates an engine persisting to snapshotFile. An existing
// snapshot is loaded so incumbents survive a restart.
func NewEngine(snapshotFile string) *Engine {
	e := &Engine{
		snapshotFile: snapshotFile,
		set: model.RecommendationSet{
			Categories: make(map[model.Category][]model.ScanResult),
		},
		categoryOf: make(map[string]model.Category),
	}
	for _, d := range detector.All() {
		e.categoryOf[d.Name()] = d.Category()
	}
	if err := e.load(); err != nil {
		log.Printf("[WARN] recommendation snapshot not loaded: %v", err)
	}
	return e
}

// Current returns a deep copy of the recommendation set.
func (e *Engine) Current() model.RecommendationSet {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set.Clone()
}

// SetScanning flips the in-progress flag readers see while a run is live.
func (e *Engine) SetScanning(v bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.set.ScanInProgress = v
}

// Apply folds one run's results into the sticky shortlist and persists the
// new set atomically. Per category: incumbents that still match stay, in
// their prior relative order, regardless of score; remaining slots are
// filled by score from new candidates.
func (e *Engine) Apply(results []model.ScanResult) model.RecommendationSet {
	byCategory := e.groupByCategory(results)

	e.mu.Lock()
	next := model.RecommendationSet{
		Categories: make(map[model.Category][]model.ScanResult),
		LastScan:   time.Now(),
	}
	for _, cat := range []model.Category{
		model.CategoryAggressive, model.CategoryBalanced,
		model.CategoryConservative, model.CategorySpeculative,
	} {
		next.Categories[cat] = stickySelect(e.set.Categories[cat], byCategory[cat])
	}
	e.set = next
	snapshot := e.set.Clone()
	e.mu.Unlock()

	if err := e.persist(snapshot); err != nil {
		log.Printf("[ERROR] persist recommendations: %v", err)
	}
	return snapshot
}

// groupByCategory buckets results by their detector's category, best result
// per (category, ticker), sorted by score descending.
func (e *Engine) groupByCategory(results []model.ScanResult) map[model.Category][]model.ScanResult {
	best := make(map[model.Category]map[string]model.ScanResult)
	for _, r := range results {
		cat, ok := e.categoryOf[r.Detector]
		if !ok {
			continue
		}
		if best[cat] == nil {
			best[cat] = make(map[string]model.ScanResult)
		}
		if prev, exists := best[cat][r.Ticker]; !exists || r.Score > prev.Score {
			best[cat][r.Ticker] = r
		}
	}

	out := make(map[model.Category][]model.ScanResult, len(best))
	for cat, byTicker := range best {
		list := make([]model.ScanResult, 0, len(byTicker))
		for _, r := range byTicker {
			list = append(list, r)
		}
		sort.SliceStable(list, func(i, j int) bool { return list[i].Score > list[j].Score })
		out[cat] = list
	}
	return out
}

// stickySelect keeps matching incumbents in prior order, then fills the
// remaining slots from candidates by score.
func stickySelect(incumbents, candidates []model.ScanResult) []model.ScanResult {
	fresh := make(map[string]model.ScanResult, len(candidates))
	for _, c := range candidates {
		fresh[c.Ticker] = c
	}

	kept := make([]model.ScanResult, 0, model.MaxPerCategory)
	retained := make(map[string]bool)
	for _, inc := range incumbents {
		if r, ok := fresh[inc.Ticker]; ok && len(kept) < model.MaxPerCategory {
			kept = append(kept, r) // fresh levels and score, prior position
			retained[inc.Ticker] = true
		}
	}
	for _, c := range candidates {
		if len(kept) >= model.MaxPerCategory {
			break
		}
		if retained[c.Ticker] {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// persist writes the snapshot via a temp file and rename so readers never
// see a torn file.
func (e *Engine) persist(set model.RecommendationSet) error {
	if e.snapshotFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(e.snapshotFile), 0o755); err != nil {
		return fmt.Errorf("snapshot dir: %w", err)
	}
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	tmp := e.snapshotFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := os.Rename(tmp, e.snapshotFile); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

func (e *Engine) load() error {
	if e.snapshotFile == "" {
		return nil
	}
	data, err := os.ReadFile(e.snapshotFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var set model.RecommendationSet
	if err := json.Unmarshal(data, &set); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if set.Categories == nil {
		set.Categories = make(map[model.Category][]model.ScanResult)
	}
	set.ScanInProgress = false
	e.mu.Lock()
	e.set = set
	e.mu.Unlock()
	log.Printf("[INFO] loaded recommendation snapshot: %s", e.snapshotFile)
	return nil
}
