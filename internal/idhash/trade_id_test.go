package idhash

import (
	"testing"
)

func TestComputeTradeID(t *testing.T) {
	tests := []struct {
		name          string
		symbol        string
		strategyID    string
		direction     string
		entryTime     int64
		entryBarIndex int
		wantLen       int // hash length should be 64
	}{
		{
			name:          "long intraday trade",
			symbol:        "EURUSD",
			strategyID:    "intraday",
			direction:     "LONG",
			entryTime:     1704067234567,
			entryBarIndex: 42,
			wantLen:       64,
		},
		{
			name:          "short swing trade",
			symbol:        "XAUUSD",
			strategyID:    "swing",
			direction:     "SHORT",
			entryTime:     1704067300000,
			entryBarIndex: 7,
			wantLen:       64,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTradeID(tt.symbol, tt.strategyID, tt.direction, tt.entryTime, tt.entryBarIndex)

			if len(got) != tt.wantLen {
				t.Errorf("expected hash length %d, got %d", tt.wantLen, len(got))
			}

			// Same inputs produce the same hash
			again := ComputeTradeID(tt.symbol, tt.strategyID, tt.direction, tt.entryTime, tt.entryBarIndex)
			if got != again {
				t.Errorf("expected deterministic hash, got %s then %s", got, again)
			}
		})
	}
}

func TestComputeTradeID_DistinctInputs(t *testing.T) {
	a := ComputeTradeID("EURUSD", "intraday", "LONG", 1704067234567, 42)
	b := ComputeTradeID("EURUSD", "intraday", "SHORT", 1704067234567, 42)
	if a == b {
		t.Errorf("expected different hashes for different directions, both %s", a)
	}
}

func TestComputeRunID(t *testing.T) {
	got := ComputeRunID("EURUSD", "intraday", 1704067200000, 1706745600000, 720, 1706745601000)
	if len(got) != 64 {
		t.Errorf("expected hash length 64, got %d", len(got))
	}

	again := ComputeRunID("EURUSD", "intraday", 1704067200000, 1706745600000, 720, 1706745601000)
	if got != again {
		t.Errorf("expected deterministic hash, got %s then %s", got, again)
	}

	other := ComputeRunID("EURUSD", "intraday", 1704067200000, 1706745600000, 720, 1706745602000)
	if got == other {
		t.Errorf("expected different hashes for different created_at, both %s", got)
	}
}
