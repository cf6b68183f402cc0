// Package main ingests OHLCV bars into the bar store, either backfilling
// from a CSV file or streaming from the bridge WebSocket feed.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/marketdata"
	"trading-signal-lab/internal/observability"
	"trading-signal-lab/internal/storage"
	chstore "trading-signal-lab/internal/storage/clickhouse"
	"trading-signal-lab/internal/storage/memory"
	"trading-signal-lab/internal/storage/migrations"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	// Parse flags (env vars as defaults)
	csvPath := flag.String("csv", "", "Backfill from a CSV bar file instead of streaming")
	symbol := flag.String("symbol", "", "Symbol for CSV backfill (required with --csv)")
	symbols := flag.String("symbols", "", "Comma-separated symbols to stream from the bridge")
	wsURL := flag.String("ws-url", os.Getenv("BRIDGE_WS_URL"), "Bridge WebSocket URL")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (dry runs)")
	migrate := flag.Bool("migrate", false, "Apply ClickHouse migrations before ingesting")
	flushInterval := flag.Duration("flush-interval", 10*time.Second, "Streaming batch flush interval")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[ingest] ", log.LstdFlags)

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

	// Create bar store
	var barStore storage.BarStore = memory.NewBarStore()
	if !*useMemory {
		if *clickhouseDSN == "" {
			logger.Fatal("--clickhouse-dsn is required (use --use-memory for dry runs)")
		}
		var conn *chstore.Conn
		var err error
		if *migrate {
			conn, err = migrations.RunClickhouseMigrations(ctx, *clickhouseDSN)
		} else {
			conn, err = chstore.NewConn(ctx, *clickhouseDSN)
		}
		if err != nil {
			logger.Fatalf("connect to clickhouse: %v", err)
		}
		defer conn.Close()
		barStore = chstore.NewBarStore(conn)
	}

	if *csvPath != "" {
		if *symbol == "" {
			logger.Fatal("--symbol is required with --csv")
		}
		if err := backfillCSV(ctx, barStore, *csvPath, *symbol, logger); err != nil {
			logger.Fatalf("backfill: %v", err)
		}
		return
	}

	if *wsURL == "" {
		logger.Fatal("--ws-url or BRIDGE_WS_URL is required when not backfilling")
	}
	symbolList := splitSymbols(*symbols)
	if len(symbolList) == 0 {
		logger.Fatal("--symbols is required when streaming")
	}

	if err := streamBridge(ctx, barStore, *wsURL, symbolList, *flushInterval, logger); err != nil {
		logger.Fatalf("stream: %v", err)
	}
}

// backfillCSV loads a whole bar file and bulk-inserts it.
func backfillCSV(ctx context.Context, barStore storage.BarStore, path, symbol string, logger *log.Logger) error {
	bars, err := marketdata.LoadBarsCSV(path)
	if err != nil {
		observability.RecordIngestionError("csv")
		return err
	}
	if err := domain.ValidateBars(bars); err != nil {
		observability.RecordIngestionError("csv")
		return err
	}

	if err := barStore.InsertBulk(ctx, symbol, bars); err != nil {
		observability.RecordIngestionError("csv")
		return err
	}

	observability.RecordBarsIngested(symbol, len(bars))
	observability.MarkIngestionSuccess()
	logger.Printf("backfilled %d bars for %s from %s", len(bars), symbol, path)
	return nil
}

// streamBridge subscribes to the bridge feed and flushes batched bars per
// symbol on an interval. Runs until the context is cancelled.
func streamBridge(ctx context.Context, barStore storage.BarStore, wsURL string, symbols []string, flushInterval time.Duration, logger *log.Logger) error {
	client, err := marketdata.NewWSClient(ctx, wsURL, nil)
	if err != nil {
		observability.RecordIngestionError("bridge")
		return err
	}
	defer client.Close()

	notifications := make([]<-chan marketdata.BarNotification, 0, len(symbols))
	for _, sym := range symbols {
		ch, err := client.SubscribeBars(ctx, sym)
		if err != nil {
			observability.RecordIngestionError("bridge")
			return err
		}
		notifications = append(notifications, ch)
		logger.Printf("subscribed to %s", sym)
	}

	merged := make(chan marketdata.BarNotification, 1024)
	for _, ch := range notifications {
		go func(ch <-chan marketdata.BarNotification) {
			for n := range ch {
				select {
				case merged <- n:
				case <-ctx.Done():
					return
				}
			}
		}(ch)
	}

	pending := make(map[string][]*domain.Bar)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flush(context.Background(), barStore, pending, logger)
			return nil
		case n := <-merged:
			bar := n.Bar
			pending[n.Symbol] = append(pending[n.Symbol], &bar)
		case <-ticker.C:
			flush(ctx, barStore, pending, logger)
		}
	}
}

// flush bulk-inserts and clears all pending batches. Duplicate bars from
// bridge reconnect replays are skipped, not fatal.
func flush(ctx context.Context, barStore storage.BarStore, pending map[string][]*domain.Bar, logger *log.Logger) {
	for symbol, bars := range pending {
		if len(bars) == 0 {
			continue
		}
		err := barStore.InsertBulk(ctx, symbol, bars)
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			logger.Printf("skipping duplicate batch for %s (%d bars)", symbol, len(bars))
		case err != nil:
			observability.RecordIngestionError("bridge")
			logger.Printf("insert %d bars for %s: %v", len(bars), symbol, err)
			continue // keep the batch for the next flush
		default:
			observability.RecordBarsIngested(symbol, len(bars))
			observability.MarkIngestionSuccess()
			logger.Printf("ingested %d bars for %s", len(bars), symbol)
		}
		delete(pending, symbol)
	}
}

func splitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
