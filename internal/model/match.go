package model

import "time"

// Levels holds the trade levels a detector derives from a match.
type Levels struct {
	Entry   float64 `json:"entry"`
	Stop    float64 `json:"stop"`
	Target  float64 `json:"target"`
	Target2 float64 `json:"target2,omitempty"`
	Target3 float64 `json:"target3,omitempty"`
}

// Match is a structured pattern hit for one ticker. Metrics carries the
// detector's measured quantities (returns, ratios, slopes) keyed by name;
// Rationale is an ordered, human-readable explanation.
type Match struct {
	Ticker    string             `json:"ticker"`
	Detector  string             `json:"detector"`
	MatchedAt time.Time          `json:"matched_at"`
	Metrics   map[string]float64 `json:"metrics"`
	Levels    Levels             `json:"levels"`
	Rationale []string           `json:"rationale"`
}

// Grade is the letter quality bucket derived from a score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

// ScanResult pairs a detector match with its score for one run.
type ScanResult struct {
	Ticker      string  `json:"ticker"`
	Detector    string  `json:"detector"`
	Score       float64 `json:"score"`
	Grade       Grade   `json:"grade"`
	RelStrength float64 `json:"rel_strength,omitempty"`
	Match       *Match  `json:"match"`
}
