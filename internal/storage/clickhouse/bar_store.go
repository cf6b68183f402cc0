package clickhouse

import (
	"context"
	"fmt"
	"time"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/observability"
	"trading-signal-lab/internal/storage"
)

// BarStore implements storage.BarStore using ClickHouse.
type BarStore struct {
	conn *Conn
}

// NewBarStore creates a new BarStore.
func NewBarStore(conn *Conn) *BarStore {
	return &BarStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BarStore = (*BarStore)(nil)

// InsertBulk adds multiple bars for a symbol. Fails entire batch on
// duplicate (symbol, timestamp_ms). ClickHouse does not enforce
// uniqueness at insert time, so duplicates are checked explicitly before
// the batch is sent.
func (s *BarStore) InsertBulk(ctx context.Context, symbol string, bars []*domain.Bar) error {
	if symbol == "" {
		return fmt.Errorf("%w: symbol is required", storage.ErrInvalidInput)
	}
	if len(bars) == 0 {
		return nil
	}

	// Check for intra-batch duplicates
	seen := make(map[int64]struct{}, len(bars))
	for _, b := range bars {
		if b == nil {
			return storage.ErrInvalidInput
		}
		if _, exists := seen[b.Timestamp]; exists {
			return storage.ErrDuplicateKey
		}
		seen[b.Timestamp] = struct{}{}
	}

	// Check for duplicates against existing DB rows
	minTs, maxTs := bars[0].Timestamp, bars[0].Timestamp
	for _, b := range bars[1:] {
		if b.Timestamp < minTs {
			minTs = b.Timestamp
		}
		if b.Timestamp > maxTs {
			maxTs = b.Timestamp
		}
	}
	existing, err := s.existingTimestamps(ctx, symbol, minTs, maxTs)
	if err != nil {
		return fmt.Errorf("check existing bars: %w", err)
	}
	for _, b := range bars {
		if _, exists := existing[b.Timestamp]; exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO bars (
			symbol, timestamp_ms, open, high, low, close, volume
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, b := range bars {
		err = batch.Append(
			symbol, b.Timestamp,
			b.Open, b.High, b.Low, b.Close, b.Volume,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	start := time.Now()
	err = batch.Send()
	observability.RecordDBQuery("clickhouse", "insert_bars_bulk", time.Since(start).Seconds(), err)
	if err != nil {
		return fmt.Errorf("send batch: %w", err)
	}

	return nil
}

// GetBySymbol retrieves all bars for a symbol, ordered by timestamp ASC.
func (s *BarStore) GetBySymbol(ctx context.Context, symbol string) ([]*domain.Bar, error) {
	query := `
		SELECT timestamp_ms, open, high, low, close, volume
		FROM bars
		WHERE symbol = ?
		ORDER BY timestamp_ms ASC
	`

	start := time.Now()
	rows, err := s.conn.Query(ctx, query, symbol)
	observability.RecordDBQuery("clickhouse", "get_bars_by_symbol", time.Since(start).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query bars by symbol: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive).
func (s *BarStore) GetByTimeRange(ctx context.Context, symbol string, start, end int64) ([]*domain.Bar, error) {
	query := `
		SELECT timestamp_ms, open, high, low, close, volume
		FROM bars
		WHERE symbol = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	started := time.Now()
	rows, err := s.conn.Query(ctx, query, symbol, start, end)
	observability.RecordDBQuery("clickhouse", "get_bars_by_range", time.Since(started).Seconds(), err)
	if err != nil {
		return nil, fmt.Errorf("query bars by time range: %w", err)
	}
	defer rows.Close()

	return scanBars(rows)
}

// existingTimestamps returns the stored timestamps for a symbol within
// [minTs, maxTs].
func (s *BarStore) existingTimestamps(ctx context.Context, symbol string, minTs, maxTs int64) (map[int64]struct{}, error) {
	query := `
		SELECT timestamp_ms FROM bars
		WHERE symbol = ? AND timestamp_ms >= ? AND timestamp_ms <= ?
	`

	rows, err := s.conn.Query(ctx, query, symbol, minTs, maxTs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := make(map[int64]struct{})
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, err
		}
		existing[ts] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return existing, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanBars scans multiple rows into a slice of Bar.
func scanBars(rows chRows) ([]*domain.Bar, error) {
	var bars []*domain.Bar

	for rows.Next() {
		var b domain.Bar

		err := rows.Scan(
			&b.Timestamp,
			&b.Open, &b.High, &b.Low, &b.Close, &b.Volume,
		)
		if err != nil {
			return nil, fmt.Errorf("scan bar row: %w", err)
		}

		bars = append(bars, &b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bar rows: %w", err)
	}

	return bars, nil
}
