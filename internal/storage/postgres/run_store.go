package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/observability"
	"trading-signal-lab/internal/storage"
)

// BacktestRunStore implements storage.BacktestRunStore using PostgreSQL.
type BacktestRunStore struct {
	pool *Pool
}

// NewBacktestRunStore creates a new BacktestRunStore.
func NewBacktestRunStore(pool *Pool) *BacktestRunStore {
	return &BacktestRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BacktestRunStore = (*BacktestRunStore)(nil)

const backtestRunColumns = `
	run_id, symbol, strategy_id, start_time, end_time,
	initial_capital, final_capital, total_trades, win_rate,
	total_return_pct, sharpe_ratio, max_drawdown, created_at
`

// Insert adds a new run summary. Returns ErrDuplicateKey if run_id exists.
func (s *BacktestRunStore) Insert(ctx context.Context, run *domain.BacktestRun) error {
	query := `
		INSERT INTO backtest_runs (` + backtestRunColumns + `
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13
		)
	`

	start := time.Now()
	_, err := s.pool.Exec(ctx, query,
		run.RunID, run.Symbol, run.StrategyID, run.StartTime, run.EndTime,
		run.InitialCapital, run.FinalCapital, run.TotalTrades, run.WinRate,
		run.TotalReturnPct, run.SharpeRatio, run.MaxDrawdown, run.CreatedAt,
	)
	observability.RecordDBQuery("postgres", "insert_backtest_run", time.Since(start).Seconds(), err)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert backtest run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *BacktestRunStore) GetByID(ctx context.Context, runID string) (*domain.BacktestRun, error) {
	query := `
		SELECT ` + backtestRunColumns + `
		FROM backtest_runs
		WHERE run_id = $1
	`

	start := time.Now()
	row := s.pool.QueryRow(ctx, query, runID)
	run, err := scanBacktestRun(row)
	observability.RecordDBQuery("postgres", "get_backtest_run", time.Since(start).Seconds(), err)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get backtest run by id: %w", err)
	}
	return run, nil
}

// ListBySymbol retrieves all runs for a symbol, newest first.
func (s *BacktestRunStore) ListBySymbol(ctx context.Context, symbol string) ([]*domain.BacktestRun, error) {
	query := `
		SELECT ` + backtestRunColumns + `
		FROM backtest_runs
		WHERE symbol = $1
		ORDER BY created_at DESC, run_id ASC
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, symbol)
	observability.RecordDBQuery("postgres", "list_backtest_runs", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("list backtest runs by symbol: %w", err)
	}
	defer rows.Close()

	var runs []*domain.BacktestRun
	for rows.Next() {
		run, err := scanBacktestRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backtest run row: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest run rows: %w", err)
	}

	return runs, nil
}

// scanBacktestRun scans a single row into a BacktestRun.
func scanBacktestRun(row pgx.Row) (*domain.BacktestRun, error) {
	var run domain.BacktestRun

	err := row.Scan(
		&run.RunID, &run.Symbol, &run.StrategyID, &run.StartTime, &run.EndTime,
		&run.InitialCapital, &run.FinalCapital, &run.TotalTrades, &run.WinRate,
		&run.TotalReturnPct, &run.SharpeRatio, &run.MaxDrawdown, &run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &run, nil
}
