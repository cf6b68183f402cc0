package memory

import (
	"context"
	"errors"
	"testing"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/storage"
)

func TestTradeStore_InsertBulkAndGet(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	trades := []*domain.Trade{
		{TradeID: "t1", Symbol: "EURUSD", StrategyID: "swing", ExitTime: 3000, PnL: 50},
		{TradeID: "t2", Symbol: "EURUSD", StrategyID: "swing", ExitTime: 1000, PnL: -20},
		{TradeID: "t3", Symbol: "EURUSD", StrategyID: "swing", ExitTime: 2000, PnL: 10},
	}

	if err := store.InsertBulk(ctx, "run1", trades); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByRunID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Expected 3 trades, got %d", len(got))
	}
	// Ordered by exit time ASC: t2, t3, t1
	if got[0].TradeID != "t2" || got[1].TradeID != "t3" || got[2].TradeID != "t1" {
		t.Errorf("Wrong order: [%s, %s, %s]", got[0].TradeID, got[1].TradeID, got[2].TradeID)
	}
}

func TestTradeStore_RunsAreIsolated(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, "run1", []*domain.Trade{{TradeID: "t1"}}); err != nil {
		t.Fatalf("InsertBulk run1 failed: %v", err)
	}
	if err := store.InsertBulk(ctx, "run2", []*domain.Trade{{TradeID: "t2"}}); err != nil {
		t.Fatalf("InsertBulk run2 failed: %v", err)
	}

	got, err := store.GetByRunID(ctx, "run2")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(got) != 1 || got[0].TradeID != "t2" {
		t.Errorf("Expected only t2 for run2, got %d trades", len(got))
	}
}

func TestTradeStore_DuplicateFailsWholeBatch(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	if err := store.InsertBulk(ctx, "run1", []*domain.Trade{{TradeID: "t1"}}); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.InsertBulk(ctx, "run2", []*domain.Trade{{TradeID: "t9"}, {TradeID: "t1"}})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	// The non-duplicate trade of the failed batch must not be stored.
	got, err := store.GetByRunID(ctx, "run2")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Failed batch leaked %d trades", len(got))
	}
}

func TestTradeStore_IntraBatchDuplicate(t *testing.T) {
	store := NewTradeStore()

	err := store.InsertBulk(context.Background(), "run1",
		[]*domain.Trade{{TradeID: "t1"}, {TradeID: "t1"}})
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTradeStore_EmptyBatchIsNoop(t *testing.T) {
	store := NewTradeStore()

	if err := store.InsertBulk(context.Background(), "run1", nil); err != nil {
		t.Errorf("Empty batch must succeed, got %v", err)
	}
}
