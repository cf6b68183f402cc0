package equity

import (
	"testing"

	"trading-signal-lab/internal/domain"
)

const dayMs = int64(24 * 3600 * 1000)

// jan1 is 2024-01-01 00:00:00 UTC in ms.
const jan1 = int64(1704067200000)

func mkTrade(entry, exit int64, pnl float64) *domain.Trade {
	return &domain.Trade{EntryTime: entry, ExitTime: exit, PnL: pnl}
}

func TestBuildCurve_PointCountAndSeed(t *testing.T) {
	trades := []*domain.Trade{
		mkTrade(jan1, jan1+dayMs, 100),
		mkTrade(jan1+dayMs, jan1+2*dayMs, -50),
		mkTrade(jan1+2*dayMs, jan1+3*dayMs, 20),
	}

	curve := BuildCurve(trades, 10000)

	// One seed point plus one point per trade exit.
	if len(curve) != len(trades)+1 {
		t.Fatalf("expected %d points, got %d", len(trades)+1, len(curve))
	}
	if curve[0].Timestamp != jan1 {
		t.Errorf("expected seed at first entry time %d, got %d", jan1, curve[0].Timestamp)
	}
	if curve[0].Equity != 10000 {
		t.Errorf("expected seed equity 10000, got %f", curve[0].Equity)
	}
	if curve[0].Drawdown != 0 {
		t.Errorf("expected seed drawdown 0, got %f", curve[0].Drawdown)
	}

	// 10000 -> 10100 -> 10050 -> 10070
	wantEquity := []float64{10000, 10100, 10050, 10070}
	for i, w := range wantEquity {
		if curve[i].Equity != w {
			t.Errorf("point %d: expected equity %f, got %f", i, w, curve[i].Equity)
		}
	}

	// Time strictly non-decreasing.
	for i := 1; i < len(curve); i++ {
		if curve[i].Timestamp < curve[i-1].Timestamp {
			t.Errorf("point %d: timestamp %d before %d", i, curve[i].Timestamp, curve[i-1].Timestamp)
		}
	}
}

func TestBuildCurve_Drawdown(t *testing.T) {
	trades := []*domain.Trade{
		mkTrade(jan1, jan1+dayMs, 1000),    // equity 11000, new peak
		mkTrade(jan1+dayMs, jan1+2*dayMs, -2200), // equity 8800
		mkTrade(jan1+2*dayMs, jan1+3*dayMs, 2200), // back to 11000
	}

	curve := BuildCurve(trades, 10000)

	if curve[1].Drawdown != 0 {
		t.Errorf("expected 0 drawdown at peak, got %f", curve[1].Drawdown)
	}
	// (11000 - 8800) / 11000 = 0.2
	if curve[2].Drawdown != 0.2 {
		t.Errorf("expected drawdown 0.2, got %f", curve[2].Drawdown)
	}
	if curve[3].Drawdown != 0 {
		t.Errorf("expected 0 drawdown after recovery, got %f", curve[3].Drawdown)
	}

	// Drawdown stays within [0,1].
	for i, p := range curve {
		if p.Drawdown < 0 || p.Drawdown > 1 {
			t.Errorf("point %d: drawdown %f out of [0,1]", i, p.Drawdown)
		}
	}
}

func TestBuildCurve_NoTrades(t *testing.T) {
	curve := BuildCurve(nil, 5000)
	if len(curve) != 1 {
		t.Fatalf("expected only the seed point, got %d points", len(curve))
	}
	if curve[0].Equity != 5000 {
		t.Errorf("expected seed equity 5000, got %f", curve[0].Equity)
	}
}

func TestMonthlyReturns_Buckets(t *testing.T) {
	// 31 days ~ crosses from January into February 2024.
	trades := []*domain.Trade{
		mkTrade(jan1, jan1+5*dayMs, 500),       // Jan: 10000 -> 10500
		mkTrade(jan1+5*dayMs, jan1+40*dayMs, 525), // Feb: 10500 -> 11025
	}
	curve := BuildCurve(trades, 10000)

	months := MonthlyReturns(curve)
	if len(months) != 2 {
		t.Fatalf("expected 2 monthly buckets, got %d", len(months))
	}

	if months[0].Period != "2024-01" {
		t.Errorf("expected period 2024-01, got %s", months[0].Period)
	}
	// (10500 - 10000) / 10000 = 5%
	if months[0].ReturnPct != 5 {
		t.Errorf("expected January return 5%%, got %f", months[0].ReturnPct)
	}

	if months[1].Period != "2024-02" {
		t.Errorf("expected period 2024-02, got %s", months[1].Period)
	}
	// (11025 - 10500) / 10500 = 5%
	if months[1].ReturnPct != 5 {
		t.Errorf("expected February return 5%%, got %f", months[1].ReturnPct)
	}
}

func TestYearlyReturns_SingleBucket(t *testing.T) {
	trades := []*domain.Trade{
		mkTrade(jan1, jan1+dayMs, 1000),
		mkTrade(jan1+dayMs, jan1+2*dayMs, -500),
	}
	curve := BuildCurve(trades, 10000)

	years := YearlyReturns(curve)
	if len(years) != 1 {
		t.Fatalf("expected 1 yearly bucket, got %d", len(years))
	}
	if years[0].Period != "2024" {
		t.Errorf("expected period 2024, got %s", years[0].Period)
	}
	// (10500 - 10000) / 10000 = 5%
	if years[0].ReturnPct != 5 {
		t.Errorf("expected yearly return 5%%, got %f", years[0].ReturnPct)
	}
}
