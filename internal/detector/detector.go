// Package detector implements the stateless pattern predicates. Each
// detector is a pure function over a normalized daily series: it returns
// nil for no match, or a structured match with derived levels and a
// rationale. No detector touches the network or the cache.
package detector

import "PatternScout/internal/model"

// Detector inspects one ticker's daily series for a single pattern.
type Detector interface {
	Name() string
	Category() model.Category
	Detect(daily model.Series) *model.Match
}

// All returns the full detector battery in evaluation order.
func All() []Detector {
	return []Detector{
		&Rally{},
		&WeeklyRSIReversal{},
		&VCP{},
		&BullFlag{},
		&ElliottABC{},
	}
}
