package storage

import (
	"context"

	"trading-signal-lab/internal/domain"
)

// BarStore provides access to historical OHLCV bars.
type BarStore interface {
	// InsertBulk adds multiple bars for a symbol. Fails entire batch on
	// duplicate (symbol, timestamp_ms).
	InsertBulk(ctx context.Context, symbol string, bars []*domain.Bar) error

	// GetBySymbol retrieves all bars for a symbol, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.Bar, error)

	// GetByTimeRange retrieves bars for a symbol within [start, end]
	// (inclusive, Unix ms), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.Bar, error)
}

// BacktestRunStore provides access to backtest run summaries.
type BacktestRunStore interface {
	// Insert adds a new run summary. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, run *domain.BacktestRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.BacktestRun, error)

	// ListBySymbol retrieves all runs for a symbol, newest first.
	ListBySymbol(ctx context.Context, symbol string) ([]*domain.BacktestRun, error)
}

// TradeStore provides access to simulated trades.
type TradeStore interface {
	// InsertBulk adds all trades of a run atomically. Fails entire batch
	// on any duplicate trade_id.
	InsertBulk(ctx context.Context, runID string, trades []*domain.Trade) error

	// GetByRunID retrieves all trades for a run, ordered by exit time ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.Trade, error)
}
