// Package main regenerates reports for persisted backtest runs.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"trading-signal-lab/internal/reporting"
	pgstore "trading-signal-lab/internal/storage/postgres"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags
	runID := flag.String("run-id", "", "Run ID to report on")
	symbol := flag.String("symbol", "", "List stored runs for a symbol instead")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	outputDir := flag.String("output-dir", "", "Write markdown + CSV files here instead of stdout")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn or POSTGRES_DSN is required")
	}
	if *runID == "" && *symbol == "" {
		logger.Fatal("either --run-id or --symbol is required")
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	runStore := pgstore.NewBacktestRunStore(pool)
	tradeStore := pgstore.NewTradeStore(pool)

	if *symbol != "" {
		runs, err := runStore.ListBySymbol(ctx, *symbol)
		if err != nil {
			logger.Fatalf("list runs: %v", err)
		}
		if len(runs) == 0 {
			fmt.Printf("no stored runs for %s\n", *symbol)
			return
		}
		fmt.Printf("%-44s %-12s %10s %8s %8s\n", "RUN", "STRATEGY", "RETURN%", "TRADES", "SHARPE")
		for _, run := range runs {
			fmt.Printf("%-44s %-12s %10.2f %8d %8.2f\n",
				run.RunID, run.StrategyID, run.TotalReturnPct, run.TotalTrades, run.SharpeRatio)
		}
		return
	}

	report, err := reporting.NewGenerator(runStore, tradeStore).Generate(ctx, *runID)
	if err != nil {
		logger.Fatalf("generate report: %v", err)
	}

	markdown := reporting.RenderMarkdown(report)

	if *outputDir == "" {
		fmt.Print(markdown)
		return
	}

	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		logger.Fatalf("create output dir: %v", err)
	}

	files := map[string]string{
		fmt.Sprintf("%s.md", *runID):         markdown,
		fmt.Sprintf("%s_trades.csv", *runID): reporting.RenderTradesCSV(report),
	}
	for name, content := range files {
		path := filepath.Join(*outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			logger.Fatalf("write %s: %v", path, err)
		}
		logger.Printf("wrote %s", path)
	}
}
