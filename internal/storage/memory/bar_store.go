package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/storage"
)

// BarStore is an in-memory implementation of storage.BarStore.
type BarStore struct {
	mu   sync.RWMutex
	data map[string]map[int64]*domain.Bar // symbol -> timestamp_ms -> bar
}

// NewBarStore creates a new in-memory bar store.
func NewBarStore() *BarStore {
	return &BarStore{
		data: make(map[string]map[int64]*domain.Bar),
	}
}

// InsertBulk adds multiple bars for a symbol. Fails entire batch on duplicate.
func (s *BarStore) InsertBulk(_ context.Context, symbol string, bars []*domain.Bar) error {
	if symbol == "" {
		return fmt.Errorf("%w: symbol is required", storage.ErrInvalidInput)
	}
	if len(bars) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.data[symbol]

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[int64]struct{}, len(bars))

	// First pass: check for duplicates (existing + intra-batch)
	for _, b := range bars {
		if b == nil {
			return storage.ErrInvalidInput
		}
		if _, exists := existing[b.Timestamp]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[b.Timestamp]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[b.Timestamp] = struct{}{}
	}

	// Second pass: insert all
	if existing == nil {
		existing = make(map[int64]*domain.Bar, len(bars))
		s.data[symbol] = existing
	}
	for _, b := range bars {
		copy := *b
		existing[b.Timestamp] = &copy
	}

	return nil
}

// GetBySymbol retrieves all bars for a symbol, ordered by timestamp ASC.
func (s *BarStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Bar
	for _, b := range s.data[symbol] {
		copy := *b
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})

	return result, nil
}

// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive).
func (s *BarStore) GetByTimeRange(_ context.Context, symbol string, start, end int64) ([]*domain.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.Bar
	for ts, b := range s.data[symbol] {
		if ts >= start && ts <= end {
			copy := *b
			result = append(result, &copy)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})

	return result, nil
}

var _ storage.BarStore = (*BarStore)(nil)
