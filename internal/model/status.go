package model

// ScanStatus is a read-only snapshot of the orchestrator's progress,
// safe to poll while a run is in flight. Results always holds the most
// recent completed run, never a partial one.
type ScanStatus struct {
	TotalTickers int          `json:"total_tickers"`
	Processed    int          `json:"processed"`
	Running      bool         `json:"is_running"`
	LastTicker   string       `json:"last_ticker"`
	Results      []ScanResult `json:"results"`
}
