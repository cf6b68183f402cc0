package postgres

import (
	"context"
	"fmt"
	"time"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/observability"
	"trading-signal-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

// InsertBulk adds all trades of a run atomically. Fails entire batch on
// any duplicate trade_id.
func (s *TradeStore) InsertBulk(ctx context.Context, runID string, trades []*domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	start := time.Now()
	insertErr := s.insertBulkTx(ctx, runID, trades)
	observability.RecordDBQuery("postgres", "insert_trades_bulk", time.Since(start).Seconds(), insertErr)
	return insertErr
}

func (s *TradeStore) insertBulkTx(ctx context.Context, runID string, trades []*domain.Trade) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO trades (
			trade_id, run_id, symbol, strategy_id, direction,
			entry_time, entry_price, quantity, stop_loss, take_profit, confidence, entry_bar_index,
			exit_time, exit_price, exit_bar_index, exit_reason,
			commission, slippage_cost, pnl, pnl_pct,
			holding_bars, holding_ms
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16,
			$17, $18, $19, $20,
			$21, $22
		)
	`

	for _, t := range trades {
		_, err := tx.Exec(ctx, query,
			t.TradeID, runID, t.Symbol, t.StrategyID, string(t.Direction),
			t.EntryTime, t.EntryPrice, t.Quantity, t.StopLoss, t.TakeProfit, t.Confidence, t.EntryBarIndex,
			t.ExitTime, t.ExitPrice, t.ExitBarIndex, t.ExitReason,
			t.Commission, t.SlippageCost, t.PnL, t.PnLPct,
			t.HoldingBars, t.HoldingMs,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert trade in bulk: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByRunID retrieves all trades for a run, ordered by exit time ASC.
func (s *TradeStore) GetByRunID(ctx context.Context, runID string) ([]*domain.Trade, error) {
	query := `
		SELECT
			trade_id, symbol, strategy_id, direction,
			entry_time, entry_price, quantity, stop_loss, take_profit, confidence, entry_bar_index,
			exit_time, exit_price, exit_bar_index, exit_reason,
			commission, slippage_cost, pnl, pnl_pct,
			holding_bars, holding_ms
		FROM trades
		WHERE run_id = $1
		ORDER BY exit_time ASC, trade_id ASC
	`

	start := time.Now()
	rows, err := s.pool.Query(ctx, query, runID)
	observability.RecordDBQuery("postgres", "get_trades_by_run", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("get trades by run id: %w", err)
	}
	defer rows.Close()

	var trades []*domain.Trade
	for rows.Next() {
		var t domain.Trade
		var direction string

		err := rows.Scan(
			&t.TradeID, &t.Symbol, &t.StrategyID, &direction,
			&t.EntryTime, &t.EntryPrice, &t.Quantity, &t.StopLoss, &t.TakeProfit, &t.Confidence, &t.EntryBarIndex,
			&t.ExitTime, &t.ExitPrice, &t.ExitBarIndex, &t.ExitReason,
			&t.Commission, &t.SlippageCost, &t.PnL, &t.PnLPct,
			&t.HoldingBars, &t.HoldingMs,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		t.Direction = domain.Direction(direction)

		trades = append(trades, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}

	return trades, nil
}
