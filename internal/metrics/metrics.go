// Package metrics exposes Prometheus instrumentation for the scan pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the scanner. A nil *Metrics is
// valid and drops every observation, so library code never nil-checks.
type Metrics struct {
	registry *prometheus.Registry

	FetchesTotal   *prometheus.CounterVec // labels: provider, outcome
	CacheHitsTotal *prometheus.CounterVec // labels: outcome (hit|miss)
	TickersScanned prometheus.Counter
	TickersSkipped prometheus.Counter
	MatchesTotal   *prometheus.CounterVec // labels: detector
	ScanDuration   prometheus.Histogram
	ScanRunning    prometheus.Gauge
}

// New creates a Metrics instance with its own registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		FetchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "patternscout_fetches_total",
			Help: "Provider fetch attempts by provider and outcome.",
		}, []string{"provider", "outcome"}),
		CacheHitsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "patternscout_cache_lookups_total",
			Help: "Cache-first lookups by outcome.",
		}, []string{"outcome"}),
		TickersScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "patternscout_tickers_scanned_total",
			Help: "Tickers fully processed across all runs.",
		}),
		TickersSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "patternscout_tickers_skipped_total",
			Help: "Tickers skipped due to errors or timeouts.",
		}),
		MatchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "patternscout_matches_total",
			Help: "Detector matches by detector name.",
		}, []string{"detector"}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "patternscout_scan_duration_seconds",
			Help:    "Wall time of full universe scans.",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10),
		}),
		ScanRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "patternscout_scan_running",
			Help: "1 while a scan is in flight.",
		}),
	}
	reg.MustRegister(
		m.FetchesTotal, m.CacheHitsTotal, m.TickersScanned, m.TickersSkipped,
		m.MatchesTotal, m.ScanDuration, m.ScanRunning,
	)
	return m
}

// Handler returns the /metrics HTTP handler for this instance's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// FetchDone records one provider fetch outcome.
func (m *Metrics) FetchDone(provider, outcome string) {
	if m == nil {
		return
	}
	m.FetchesTotal.WithLabelValues(provider, outcome).Inc()
}

// CacheLookup records a cache-first lookup outcome.
func (m *Metrics) CacheLookup(outcome string) {
	if m == nil {
		return
	}
	m.CacheHitsTotal.WithLabelValues(outcome).Inc()
}

// TickerDone records one processed ticker; skipped marks error/timeout paths.
func (m *Metrics) TickerDone(skipped bool) {
	if m == nil {
		return
	}
	if skipped {
		m.TickersSkipped.Inc()
	} else {
		m.TickersScanned.Inc()
	}
}

// MatchFound records one detector match.
func (m *Metrics) MatchFound(detector string) {
	if m == nil {
		return
	}
	m.MatchesTotal.WithLabelValues(detector).Inc()
}

// ScanStarted flips the running gauge on.
func (m *Metrics) ScanStarted() {
	if m == nil {
		return
	}
	m.ScanRunning.Set(1)
}

// ScanFinished records the run duration and clears the running gauge.
func (m *Metrics) ScanFinished(seconds float64) {
	if m == nil {
		return
	}
	m.ScanRunning.Set(0)
	m.ScanDuration.Observe(seconds)
}
