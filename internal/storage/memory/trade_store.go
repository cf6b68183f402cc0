package memory

import (
	"context"
	"sort"
	"sync"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/storage"
)

// tradeRow pairs a stored trade with the run it belongs to.
type tradeRow struct {
	runID string
	trade domain.Trade
}

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]tradeRow // keyed by trade_id
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]tradeRow),
	}
}

// InsertBulk adds all trades of a run atomically. Fails entire batch on
// any duplicate trade_id.
func (s *TradeStore) InsertBulk(_ context.Context, runID string, trades []*domain.Trade) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(trades))

	// First pass: check for duplicates (existing + intra-batch)
	for _, t := range trades {
		if t == nil || t.TradeID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := s.data[t.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[t.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[t.TradeID] = struct{}{}
	}

	// Second pass: insert all
	for _, t := range trades {
		s.data[t.TradeID] = tradeRow{runID: runID, trade: *t}
	}

	return nil
}

// GetByRunID retrieves all trades for a run, ordered by exit time ASC.
func (s *TradeStore) GetByRunID(_ context.Context, runID string) ([]*domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Trade
	for _, row := range s.data {
		if row.runID == runID {
			copy := row.trade
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ExitTime < result[j].ExitTime
	})

	return result, nil
}

var _ storage.TradeStore = (*TradeStore)(nil)
