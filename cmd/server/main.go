// Package main provides the unified covered-call service:
// - Whale feed (continuous): websocket/kafka activity, detection, archive
// - Scanner (scheduled): eligible positions to scored opportunities
// - Monitor (scheduled): 21-50-7 pass over open covered calls
// - HTTP API: ledger CRUD, opportunities, alerts, flows, stats, reports
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"covered-call-lab/internal/domain"
	"covered-call-lab/internal/growth"
	"covered-call-lab/internal/ledger"
	"covered-call-lab/internal/marketdata"
	"covered-call-lab/internal/monitor"
	"covered-call-lab/internal/observability"
	"covered-call-lab/internal/reporting"
	"covered-call-lab/internal/scanner"
	"covered-call-lab/internal/storage"
	chstore "covered-call-lab/internal/storage/clickhouse"
	"covered-call-lab/internal/storage/memory"
	"covered-call-lab/internal/storage/migrations"
	pgstore "covered-call-lab/internal/storage/postgres"
	"covered-call-lab/internal/tracker"
	"covered-call-lab/internal/whale"
)

// avgVolumeWindow is the trailing archive window used to resolve a
// symbol's baseline option volume for the whale gate.
const avgVolumeWindow = 30 * 24 * time.Hour

// Server holds all components of the unified service.
type Server struct {
	// Configuration
	dataFile        string
	feedWS          string
	kafkaBrokers    []string
	kafkaTopic      string
	kafkaGroup      string
	scanInterval    time.Duration
	monitorInterval time.Duration

	// Stores
	stores *allStores

	// Components
	source    marketdata.Source
	ledger    *ledger.Manager
	scanner   *scanner.Scanner
	detector  *whale.Detector
	engine    *monitor.Engine
	tracker   *tracker.Tracker
	generator *reporting.Generator
	deduper   *monitor.Deduper
	logger    *log.Logger

	// State
	mu            sync.Mutex
	started       time.Time
	lastScan      time.Time
	lastMonitor   time.Time
	opportunities []*domain.Opportunity
	report        *monitor.Report
	scanRuns      int
	monitorRuns   int
}

// allStores holds all storage implementations.
type allStores struct {
	positions storage.PositionStore
	decisions storage.DecisionStore
	trades    storage.OpenTradeStore
	flows     storage.WhaleFlowStore
	archive   storage.ActivityArchiveStore
}

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	redisAddr := flag.String("redis-addr", os.Getenv("REDIS_ADDR"), "Redis address for the shared quote cache (empty = in-process cache)")
	dataFile := flag.String("data-file", "", "Market data fixture file (JSON quotes/chains/records)")
	feedWS := flag.String("feed-ws", os.Getenv("FEED_WS_ENDPOINT"), "WebSocket endpoint for the options activity feed")
	kafkaBrokers := flag.String("kafka-brokers", os.Getenv("KAFKA_BROKERS"), "Comma-separated kafka brokers for the activity topic")
	kafkaTopic := flag.String("kafka-topic", "options-activity", "Kafka topic carrying raw activity records")
	kafkaGroup := flag.String("kafka-group", "covered-call-lab", "Kafka consumer group")
	cacheTTL := flag.Duration("cache-ttl", marketdata.DefaultCacheTTL, "Quote/chain cache TTL")
	scanInterval := flag.Duration("scan-interval", 15*time.Minute, "Opportunity scan interval")
	monitorInterval := flag.Duration("monitor-interval", 5*time.Minute, "Position monitor interval")
	listenAddr := flag.String("listen", ":8080", "HTTP API listen address")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	// Market data: fixture source behind the TTL cache and normalizer.
	var base marketdata.Source
	if *dataFile != "" {
		base, err = marketdata.LoadStubFile(*dataFile)
		if err != nil {
			logger.Fatalf("Failed to load data file: %v", err)
		}
	} else {
		logger.Println("No --data-file given; scans will find no market data")
		base = marketdata.NewStubSource(nil, nil, nil)
	}

	var backend marketdata.CacheBackend
	if *redisAddr != "" {
		backend = marketdata.NewRedisCache(&redis.Options{Addr: *redisAddr})
	}
	source := marketdata.NewNormalizer(marketdata.NewCachedSource(base, backend, *cacheTTL))

	// Whale gate falls back to the archive for baseline volume.
	var avgVolume whale.AvgVolumeFn
	if stores.archive != nil {
		archive := stores.archive
		avgVolume = func(ctx context.Context, symbol string) (float64, error) {
			return archive.AverageVolume(ctx, symbol, avgVolumeWindow)
		}
	}

	tr := tracker.New(stores.decisions, stores.trades, stores.flows)

	server := &Server{
		dataFile:        *dataFile,
		feedWS:          *feedWS,
		kafkaBrokers:    splitList(*kafkaBrokers),
		kafkaTopic:      *kafkaTopic,
		kafkaGroup:      *kafkaGroup,
		scanInterval:    *scanInterval,
		monitorInterval: *monitorInterval,
		stores:          stores,
		source:          source,
		ledger:          ledger.NewManager(stores.positions),
		scanner:         scanner.New(scanner.Config{}, growth.NewClassifier(growth.DefaultConfig())),
		detector:        whale.NewDetector(whale.DefaultConfig(), avgVolume),
		engine:          monitor.NewEngine(monitor.DefaultConfig()),
		tracker:         tr,
		generator:       reporting.NewGenerator(tr, stores.trades),
		deduper:         monitor.NewDeduper(),
		logger:          logger,
		started:         time.Now(),
	}

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start HTTP API
	go server.startHTTPServer(ctx, *listenAddr)

	// Run the unified server
	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// splitList splits a comma-separated flag into trimmed entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// createStores creates all required stores and runs migrations.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool) (*allStores, func(), error) {
	if useMemory {
		stores := &allStores{
			positions: memory.NewPositionStore(),
			decisions: memory.NewDecisionStore(),
			trades:    memory.NewOpenTradeStore(),
			flows:     memory.NewWhaleFlowStore(),
			archive:   memory.NewActivityArchiveStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrate postgres: %w", err)
	}

	stores := &allStores{
		positions: pgstore.NewPositionStore(pool),
		decisions: pgstore.NewDecisionStore(pool),
		trades:    pgstore.NewOpenTradeStore(pool),
		flows:     pgstore.NewWhaleFlowStore(pool),
	}

	cleanup := func() { pool.Close() }

	// ClickHouse archive is optional; without it the whale gate skips
	// the baseline-volume fallback.
	if clickhouseDSN != "" {
		chConn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("migrate clickhouse: %w", err)
		}
		stores.archive = chstore.NewActivityArchiveStore(chConn)
		cleanup = func() {
			chConn.Close()
			pool.Close()
		}
	}

	return stores, cleanup, nil
}

// Run starts the unified server with all components.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting unified server...")

	errCh := make(chan error, 3)

	// Start the activity feed when configured
	if s.feedWS != "" {
		go func() {
			if err := s.runWSFeed(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("ws feed: %w", err)
			}
		}()
	}
	if len(s.kafkaBrokers) > 0 {
		go func() {
			if err := s.runKafkaFeed(ctx); err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("kafka feed: %w", err)
			}
		}()
	}

	// Start schedulers
	go func() {
		if err := s.runScanScheduler(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("scan scheduler: %w", err)
		}
	}()
	go func() {
		if err := s.runMonitorScheduler(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("monitor scheduler: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// runWSFeed streams activity records over websocket into detection.
func (s *Server) runWSFeed(ctx context.Context) error {
	s.logger.Printf("Connecting to activity feed %s", s.feedWS)

	feed, err := marketdata.NewWSFeed(ctx, s.feedWS, nil)
	if err != nil {
		return fmt.Errorf("connect feed: %w", err)
	}

	go func() {
		<-ctx.Done()
		feed.Close()
	}()

	for rec := range feed.Records() {
		s.handleRecords(ctx, []*domain.RawActivityRecord{rec})
	}
	return ctx.Err()
}

// runKafkaFeed consumes activity records from the broker.
func (s *Server) runKafkaFeed(ctx context.Context) error {
	feed := marketdata.NewKafkaFeed(s.kafkaBrokers, s.kafkaTopic, s.kafkaGroup)
	defer feed.Close()

	return feed.Run(ctx, func(ctx context.Context, rec *domain.RawActivityRecord) error {
		s.handleRecords(ctx, []*domain.RawActivityRecord{rec})
		return nil
	})
}

// handleRecords archives a feed batch and stores detected whale flows.
func (s *Server) handleRecords(ctx context.Context, records []*domain.RawActivityRecord) {
	start := time.Now()

	if s.stores.archive != nil {
		if err := s.stores.archive.InsertBulk(ctx, records); err != nil {
			s.logger.Printf("Archive insert failed: %v", err)
		}
	}

	flows, recErrs := s.detector.Detect(ctx, records)
	for _, re := range recErrs {
		observability.RecordFlowError(re.Reason)
		s.logger.Printf("Bad activity record %d (%s): %s", re.Index, re.Symbol, re.Reason)
	}

	stored := 0
	for _, f := range flows {
		err := s.stores.flows.Insert(ctx, f)
		if errors.Is(err, storage.ErrDuplicateKey) {
			continue // feed replay
		}
		if err != nil {
			s.logger.Printf("Store flow %s: %v", f.ID, err)
			continue
		}
		stored++
		s.logger.Printf("Whale flow: %s %s %.0f strike %.2f premium $%.0f score %.1f",
			f.Symbol, f.OptionType, float64(f.Contracts), f.Strike, f.TotalPremium, f.WhaleScore)
	}

	observability.RecordFlowBatch(len(records), stored)
	observability.DefaultMetrics.FeedMessageLatency.Observe(time.Since(start).Seconds())
}

// runScanScheduler runs opportunity scans on schedule.
func (s *Server) runScanScheduler(ctx context.Context) error {
	s.logger.Printf("Starting scan scheduler (interval: %v)...", s.scanInterval)

	s.runScan(ctx)

	ticker := time.NewTicker(s.scanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runScan(ctx)
		}
	}
}

// runScan executes one opportunity scan over eligible positions.
func (s *Server) runScan(ctx context.Context) {
	start := time.Now()

	positions, err := s.ledger.EligiblePositions(ctx, 0)
	if err != nil {
		s.logger.Printf("Scan: list positions: %v", err)
		return
	}

	quotes := make(map[string]*domain.Quote)
	chains := make(map[string]domain.OptionChain)
	for _, p := range positions {
		q, err := s.source.GetQuote(ctx, p.Symbol)
		if err != nil {
			observability.RecordSymbolSkipped("quote_unavailable")
			continue
		}
		chain, err := s.source.GetOptionChain(ctx, p.Symbol)
		if err != nil {
			observability.RecordSymbolSkipped("chain_unavailable")
			continue
		}
		quotes[p.Symbol] = q
		chains[p.Symbol] = chain
	}

	opportunities := s.scanner.Scan(positions, quotes, chains)

	s.mu.Lock()
	s.opportunities = opportunities
	s.lastScan = time.Now()
	s.scanRuns++
	s.mu.Unlock()

	observability.RecordScan(time.Since(start).Seconds(), len(opportunities))
	observability.DefaultMetrics.LastSuccessfulScan.SetToCurrentTime()

	s.logger.Printf("Scan completed in %v: %d eligible symbols, %d opportunities",
		time.Since(start), len(positions), len(opportunities))
}

// runMonitorScheduler runs 21-50-7 passes on schedule.
func (s *Server) runMonitorScheduler(ctx context.Context) error {
	s.logger.Printf("Starting monitor scheduler (interval: %v)...", s.monitorInterval)

	s.runMonitor(ctx)

	ticker := time.NewTicker(s.monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runMonitor(ctx)
		}
	}
}

// runMonitor executes one pass over open trades.
func (s *Server) runMonitor(ctx context.Context) {
	trades, err := s.stores.trades.GetActive(ctx)
	if err != nil {
		s.logger.Printf("Monitor: list trades: %v", err)
		return
	}

	prices := make(map[string]float64)
	for _, t := range trades {
		if _, ok := prices[t.Symbol]; ok {
			continue
		}
		q, err := s.source.GetQuote(ctx, t.Symbol)
		if err != nil {
			observability.RecordSymbolSkipped("quote_unavailable")
			continue
		}
		prices[t.Symbol] = q.Price
	}

	// Per-contract deltas are not available from the quote snapshot;
	// assignment risk falls back to moneyness.
	report := s.engine.EvaluateAll(trades, prices, map[string]float64{})
	summary := monitor.Summarize(report)

	s.mu.Lock()
	s.report = report
	s.lastMonitor = time.Now()
	s.monitorRuns++
	s.mu.Unlock()

	for _, a := range report.CloseNow {
		observability.RecordAlert(string(a.Action))
		if s.deduper.ShouldShow(a) {
			s.logger.Printf("ALERT [%s] %s %.2f exp %s: %s (profit %.0f%%, capturable $%.0f)",
				a.Priority, a.Symbol, a.Strike, a.Expiration.Format("2006-01-02"),
				a.Reason, a.ProfitPct*100, a.CapturableProfit)
		}
	}

	observability.RecordMonitorPass(summary.OpenTrades, summary.CapturableProfit)
	observability.DefaultMetrics.LastSuccessfulMonitor.SetToCurrentTime()
}

// loadEnvFile loads environment variables from .env file if it exists.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
