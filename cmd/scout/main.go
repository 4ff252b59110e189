package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"PatternScout/internal/cache"
	"PatternScout/internal/config"
	"PatternScout/internal/metrics"
	"PatternScout/internal/provider"
	"PatternScout/internal/recommend"
	"PatternScout/internal/report"
	"PatternScout/internal/scanner"
	"PatternScout/internal/scheduler"
	"PatternScout/internal/universe"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] PatternScout starting...")

	// .env is optional; real env always wins.
	if err := godotenv.Load(); err == nil {
		log.Println("[INFO] loaded .env")
	}

	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Candle store
	store, err := cache.NewStore(cfg.Cache.SQLitePath, cfg.CacheTTL())
	if err != nil {
		log.Fatalf("[FATAL] open candle store: %v", err)
	}
	defer store.Close()

	// Instrumentation
	m := metrics.New()
	metricsSrv := &http.Server{Addr: cfg.Metrics.Addr, Handler: m.Handler()}
	go func() {
		log.Printf("[INFO] metrics listening on %s", cfg.Metrics.Addr)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[WARN] metrics server: %v", err)
		}
	}()

	// Provider chain: Yahoo primary, Stooq secondary, store as last resort.
	primary := provider.NewYahooProvider(cfg.Proxy)
	var secondary provider.Provider
	var limiter *provider.RateLimiter
	if cfg.Provider.SecondaryPerMin > 0 {
		secondary = provider.NewStooqProvider(cfg.Provider.SecondaryBaseURL, cfg.Proxy)
		limiter = provider.NewRateLimiter(cfg.Provider.SecondaryPerMin)
	}
	retry := provider.RetryPolicy{
		MaxRetries: cfg.Provider.Retries,
		Pause:      cfg.RetryPause(),
		Retryable:  provider.IsTransient,
	}
	chain := provider.NewChain(primary, secondary, store, retry, cfg.PrimaryTimeout(), limiter, m)
	log.Printf("[INFO] data sources: primary=%s secondary=%v", primary.Name(), secondary != nil)

	// Universe
	src := universe.NewSource(cfg.Universe.DirectoryURL, cfg.Universe.OverrideFile,
		cfg.Universe.MaxTickers, nil)

	// Recommendations and reports
	eng := recommend.NewEngine(cfg.Output.SnapshotFile)
	rep := report.NewWriter(cfg.Output.ReportDir, store)

	// Scanner
	sc := scanner.New(chain, store, nil, m, scanner.Options{
		BatchSize:     cfg.Scan.BatchSize,
		Workers:       cfg.Scan.Workers,
		TickerTimeout: cfg.TickerTimeout(),
		BatchPause:    cfg.BatchPause(),
		Benchmark:     cfg.Scan.Benchmark,
		OnStateChange: eng.SetScanning,
	})

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.NewScheduler(ctx, src, sc, eng, rep)
	if err := sched.Register(cfg.Scan.Cron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, scanning now")
		go sched.RunNow()
	}

	log.Println("[INFO] PatternScout is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	metricsSrv.Close()
	log.Println("[INFO] PatternScout stopped")
}
