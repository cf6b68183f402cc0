// Package main runs the backtest HTTP API server.
// Bars are served from ClickHouse, run history from PostgreSQL; requests
// carry the signal list inline.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"trading-signal-lab/internal/backtest"
	"trading-signal-lab/internal/config"
	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/observability"
	"trading-signal-lab/internal/reporting"
	sigsource "trading-signal-lab/internal/signal"
	"trading-signal-lab/internal/storage"
	chstore "trading-signal-lab/internal/storage/clickhouse"
	"trading-signal-lab/internal/storage/memory"
	"trading-signal-lab/internal/storage/migrations"
	pgstore "trading-signal-lab/internal/storage/postgres"
)

// Server wires the orchestrator and stores behind the HTTP API.
type Server struct {
	cfg       *config.Config
	orch      *backtest.Orchestrator
	barStore  storage.BarStore
	generator *reporting.Generator
	logger    *log.Logger

	mu        sync.Mutex
	started   time.Time
	runsTotal int
	lastRun   time.Time
}

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	addr := flag.String("addr", "", "HTTP listen address (overrides config)")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	migrate := flag.Bool("migrate", false, "Apply database migrations on startup")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags)

	engineCfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			logger.Fatalf("load config: %v", err)
		}
		engineCfg = loaded
	}
	if *postgresDSN == "" {
		*postgresDSN = engineCfg.Storage.PostgresDSN
	}
	if *clickhouseDSN == "" {
		*clickhouseDSN = engineCfg.Storage.ClickHouseDSN
	}
	if *addr == "" {
		*addr = engineCfg.Server.Addr
	}
	if !*useMemory && (*postgresDSN == "" || *clickhouseDSN == "") {
		logger.Fatal("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Create stores
	barStore, runStore, tradeStore, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, *migrate)
	if err != nil {
		logger.Fatalf("create stores: %v", err)
	}
	defer cleanup()

	srv := &Server{
		cfg:      engineCfg,
		barStore: barStore,
		orch: backtest.New(backtest.Options{
			RunStore:   runStore,
			TradeStore: tradeStore,
			Logger:     logger,
		}),
		generator: reporting.NewGenerator(runStore, tradeStore),
		logger:    logger,
		started:   time.Now(),
	}

	httpServer := &http.Server{
		Addr:    *addr,
		Handler: srv.routes(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}
	}()

	logger.Printf("Starting HTTP server on %s", *addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("HTTP server error: %v", err)
	}
}

// createStores builds the storage backends and a combined cleanup func.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory, migrate bool) (storage.BarStore, storage.BacktestRunStore, storage.TradeStore, func(), error) {
	if useMemory {
		return memory.NewBarStore(), memory.NewBacktestRunStore(), memory.NewTradeStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, nil, err
		}
	}

	var conn *chstore.Conn
	if migrate {
		conn, err = migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	} else {
		conn, err = chstore.NewConn(ctx, clickhouseDSN)
	}
	if err != nil {
		pool.Close()
		return nil, nil, nil, nil, err
	}

	cleanup := func() {
		conn.Close()
		pool.Close()
	}
	return chstore.NewBarStore(conn), pgstore.NewBacktestRunStore(pool), pgstore.NewTradeStore(pool), cleanup, nil
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Status endpoint
	mux.HandleFunc("/status", s.handleStatus)

	mux.HandleFunc("/api/backtest", s.handleBacktest)
	mux.HandleFunc("/api/backtest/", s.handleBacktestByID)

	return mux
}

// StatusResponse is the JSON response for /status endpoint.
type StatusResponse struct {
	Status    string    `json:"status"`
	Uptime    string    `json:"uptime"`
	RunsTotal int       `json:"runs_total"`
	LastRun   time.Time `json:"last_run,omitempty"`
}

// handleStatus returns server status as JSON.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:    "running",
		Uptime:    time.Since(s.started).String(),
		RunsTotal: s.runsTotal,
		LastRun:   s.lastRun,
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// SignalRequest is one externally generated entry signal.
type SignalRequest struct {
	TimestampMs int64   `json:"timestamp_ms"`
	Direction   string  `json:"direction"`
	Confidence  float64 `json:"confidence"`
	StopLoss    float64 `json:"stop_loss"`
	TakeProfit  float64 `json:"take_profit"`
}

// BacktestRequest is the POST /api/backtest body.
type BacktestRequest struct {
	Symbol     string          `json:"symbol"`
	StrategyID string          `json:"strategy_id"`
	StartTime  int64           `json:"start_time,omitempty"`
	EndTime    int64           `json:"end_time,omitempty"`
	Signals    []SignalRequest `json:"signals"`
	Persist    bool            `json:"persist,omitempty"`
}

// handleBacktest runs a full backtest synchronously and returns the
// results as JSON.
func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	source, err := buildSource(req.Signals)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	var bars []*domain.Bar
	if req.StartTime != 0 || req.EndTime != 0 {
		bars, err = s.barStore.GetByTimeRange(ctx, req.Symbol, req.StartTime, req.EndTime)
	} else {
		bars, err = s.barStore.GetBySymbol(ctx, req.Symbol)
	}
	if err != nil {
		s.logger.Printf("load bars for %s: %v", req.Symbol, err)
		http.Error(w, "load bars: "+err.Error(), http.StatusInternalServerError)
		return
	}

	runCfg := s.cfg.Engine.RunConfig(req.Symbol, req.StrategyID)
	runCfg.StartTime = req.StartTime
	runCfg.EndTime = req.EndTime

	orch := s.orch
	if !req.Persist {
		// A throwaway orchestrator without stores skips persistence.
		orch = backtest.New(backtest.Options{Logger: s.logger})
	}

	results, err := orch.Run(ctx, bars, source, runCfg)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidConfig) || errors.Is(err, domain.ErrUnorderedBars) {
			status = http.StatusBadRequest
		}
		http.Error(w, err.Error(), status)
		return
	}

	s.mu.Lock()
	s.runsTotal++
	s.lastRun = time.Now()
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, results)
}

// handleBacktestByID serves a stored run. ?format=markdown renders the
// report, default is JSON.
func (s *Server) handleBacktestByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	runID := strings.TrimPrefix(r.URL.Path, "/api/backtest/")
	if runID == "" {
		http.Error(w, "run id is required", http.StatusBadRequest)
		return
	}

	report, err := s.generator.Generate(r.Context(), runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.Error(w, "run not found", http.StatusNotFound)
			return
		}
		s.logger.Printf("generate report for %s: %v", runID, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	if r.URL.Query().Get("format") == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(reporting.RenderMarkdown(report)))
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// buildSource converts request signals into a timestamp-keyed source.
func buildSource(signals []SignalRequest) (sigsource.Source, error) {
	byTime := make(map[int64]*domain.Signal, len(signals))
	for _, sr := range signals {
		var direction domain.Direction
		switch strings.ToUpper(sr.Direction) {
		case string(domain.DirectionLong):
			direction = domain.DirectionLong
		case string(domain.DirectionShort):
			direction = domain.DirectionShort
		default:
			return nil, errors.New("invalid signal direction: " + sr.Direction)
		}
		if _, ok := byTime[sr.TimestampMs]; ok {
			return nil, errors.New("duplicate signal timestamp")
		}
		byTime[sr.TimestampMs] = &domain.Signal{
			Direction:  direction,
			Confidence: sr.Confidence,
			StopLoss:   sr.StopLoss,
			TakeProfit: sr.TakeProfit,
		}
	}
	return sigsource.NewTimestampSource(byTime), nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
