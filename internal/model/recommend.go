package model

import "time"

// Category is a risk-profile bucket for recommendations.
type Category string

const (
	CategoryAggressive   Category = "Aggressive"
	CategoryBalanced     Category = "Balanced"
	CategoryConservative Category = "Conservative"
	CategorySpeculative  Category = "Speculative"
)

// MaxPerCategory caps each category's sticky shortlist.
const MaxPerCategory = 3

// RecommendationSet is the persisted shortlist per category. Readers always
// see a complete set: the engine swaps the whole value under its lock and
// hands out deep copies.
type RecommendationSet struct {
	Categories     map[Category][]ScanResult `json:"categories"`
	LastScan       time.Time                 `json:"lastScanTimestamp"`
	ScanInProgress bool                      `json:"isScanning"`
}

// Clone returns a deep copy safe to hand to readers.
func (r RecommendationSet) Clone() RecommendationSet {
	out := RecommendationSet{
		Categories:     make(map[Category][]ScanResult, len(r.Categories)),
		LastScan:       r.LastScan,
		ScanInProgress: r.ScanInProgress,
	}
	for cat, list := range r.Categories {
		cp := make([]ScanResult, len(list))
		copy(cp, list)
		out.Categories[cat] = cp
	}
	return out
}
