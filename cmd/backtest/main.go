// Package main runs one backtest from the command line.
// Bars come from a CSV file or ClickHouse; signals come from a CSV file.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"trading-signal-lab/internal/backtest"
	"trading-signal-lab/internal/config"
	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/marketdata"
	"trading-signal-lab/internal/reporting"
	sigsource "trading-signal-lab/internal/signal"
	"trading-signal-lab/internal/storage"
	chstore "trading-signal-lab/internal/storage/clickhouse"
	pgstore "trading-signal-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	symbol := flag.String("symbol", "", "Symbol to backtest (required)")
	strategyID := flag.String("strategy", "", "Strategy ID (required)")

	barsCSV := flag.String("bars-csv", "", "Path to OHLCV bar CSV file")
	signalsCSV := flag.String("signals-csv", "", "Path to signal CSV file (required)")

	startTime := flag.Int64("start", 0, "Window start (Unix ms, 0 = unbounded)")
	endTime := flag.Int64("end", 0, "Window end (Unix ms, 0 = unbounded)")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (or POSTGRES_DSN env)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (or CLICKHOUSE_DSN env)")
	persistResult := flag.Bool("persist", false, "Persist the run summary and trades to PostgreSQL")

	// Output
	outputJSON := flag.Bool("json", false, "Output full results as JSON")
	verbose := flag.Bool("verbose", false, "Verbose output")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	if *symbol == "" {
		logger.Fatal("--symbol is required")
	}
	if *strategyID == "" {
		logger.Fatal("--strategy is required")
	}
	if *signalsCSV == "" {
		logger.Fatal("--signals-csv is required")
	}

	if *postgresDSN == "" {
		*postgresDSN = os.Getenv("POSTGRES_DSN")
	}
	if *clickhouseDSN == "" {
		*clickhouseDSN = os.Getenv("CLICKHOUSE_DSN")
	}

	// Engine config: file when given, defaults otherwise.
	engineCfg := config.Default()
	if *configPath != "" {
		loaded, err := config.LoadConfig(*configPath)
		if err != nil {
			logger.Fatalf("load config: %v", err)
		}
		engineCfg = loaded
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, cancelling run...", sig)
		cancel()
	}()

	// Load bars
	bars, err := loadBars(ctx, *barsCSV, *clickhouseDSN, *symbol, *startTime, *endTime)
	if err != nil {
		logger.Fatalf("load bars: %v", err)
	}
	if *verbose {
		logger.Printf("loaded %d bars for %s", len(bars), *symbol)
	}

	// Load signals
	source, err := sigsource.LoadSignalsCSV(*signalsCSV)
	if err != nil {
		logger.Fatalf("load signals: %v", err)
	}

	// Optional persistence
	var runStore storage.BacktestRunStore
	var tradeStore storage.TradeStore
	if *persistResult {
		if *postgresDSN == "" {
			logger.Fatal("--persist requires --postgres-dsn or POSTGRES_DSN")
		}
		pool, err := pgstore.NewPool(ctx, *postgresDSN)
		if err != nil {
			logger.Fatalf("connect to postgres: %v", err)
		}
		defer pool.Close()
		runStore = pgstore.NewBacktestRunStore(pool)
		tradeStore = pgstore.NewTradeStore(pool)
	}

	var orchLogger *log.Logger
	if *verbose {
		orchLogger = logger
	}
	orch := backtest.New(backtest.Options{
		RunStore:   runStore,
		TradeStore: tradeStore,
		Logger:     orchLogger,
	})

	runCfg := engineCfg.Engine.RunConfig(*symbol, *strategyID)
	runCfg.StartTime = *startTime
	runCfg.EndTime = *endTime

	results, err := orch.Run(ctx, bars, source, runCfg)
	if err != nil {
		logger.Fatalf("backtest failed: %v", err)
	}

	if *outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			logger.Fatalf("encode results: %v", err)
		}
		return
	}

	fmt.Print(reporting.RenderMarkdown(reporting.BuildReport(results)))
}

// loadBars reads the bar series from CSV when a path is given, otherwise
// from ClickHouse.
func loadBars(ctx context.Context, csvPath, chDSN, symbol string, start, end int64) ([]*domain.Bar, error) {
	if csvPath != "" {
		return marketdata.LoadBarsCSV(csvPath)
	}

	if chDSN == "" {
		return nil, fmt.Errorf("either --bars-csv or --clickhouse-dsn is required")
	}

	conn, err := chstore.NewConn(ctx, chDSN)
	if err != nil {
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	defer conn.Close()

	barStore := chstore.NewBarStore(conn)
	if start != 0 || end != 0 {
		return barStore.GetByTimeRange(ctx, symbol, start, end)
	}
	return barStore.GetBySymbol(ctx, symbol)
}
