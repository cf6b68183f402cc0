package metrics

import (
	"math"
	"testing"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/equity"
)

const dayMs = int64(24 * 3600 * 1000)

// jan1 is 2024-01-01 00:00:00 UTC in ms.
const jan1 = int64(1704067200000)

func mkTrade(i int, pnl float64) *domain.Trade {
	return &domain.Trade{
		EntryTime: jan1 + int64(i)*dayMs,
		ExitTime:  jan1 + int64(i+1)*dayMs,
		PnL:       pnl,
	}
}

func testCfg() domain.Config {
	cfg := domain.DefaultConfig("EURUSD", "intraday")
	cfg.InitialCapital = 10000
	cfg.RiskFreeRate = 0
	return cfg
}

func TestAnalyze_ZeroTradesSentinel(t *testing.T) {
	cfg := testCfg()
	curve := equity.BuildCurve(nil, cfg.InitialCapital)

	m := Analyze(nil, curve, cfg)

	want := domain.ZeroPerformance()
	if *m != *want {
		t.Errorf("expected all-zero sentinel record, got %+v", m)
	}
}

func TestAnalyze_CountsAndWinRate(t *testing.T) {
	trades := []*domain.Trade{
		mkTrade(0, 100),
		mkTrade(1, -40),
		mkTrade(2, 0), // zero-pnl: excluded from both winners and losers
		mkTrade(3, 60),
	}
	cfg := testCfg()
	curve := equity.BuildCurve(trades, cfg.InitialCapital)

	m := Analyze(trades, curve, cfg)

	if m.TotalTrades != 4 {
		t.Errorf("expected 4 total trades, got %d", m.TotalTrades)
	}
	if m.WinningTrades != 2 || m.LosingTrades != 1 {
		t.Errorf("expected 2 winners / 1 loser, got %d / %d", m.WinningTrades, m.LosingTrades)
	}
	if m.WinningTrades+m.LosingTrades > m.TotalTrades {
		t.Errorf("winners + losers exceeds total trades")
	}
	// 2 winners / 4 trades = 0.5
	if m.WinRate != 0.5 {
		t.Errorf("expected win rate 0.5, got %f", m.WinRate)
	}
	if m.WinRate < 0 || m.WinRate > 1 {
		t.Errorf("win rate %f out of [0,1]", m.WinRate)
	}
	// avgWin = 160/2 = 80, avgLoss = 40 (positive magnitude)
	if m.AvgWin != 80 {
		t.Errorf("expected avg win 80, got %f", m.AvgWin)
	}
	if m.AvgLoss != 40 {
		t.Errorf("expected avg loss 40, got %f", m.AvgLoss)
	}
	// payoff = 80/40 = 2
	if m.PayoffRatio != 2 {
		t.Errorf("expected payoff ratio 2, got %f", m.PayoffRatio)
	}
	// profit factor = 160/40 = 4
	if m.ProfitFactor != 4 {
		t.Errorf("expected profit factor 4, got %f", m.ProfitFactor)
	}
	// total return = 120/10000 * 100 = 1.2%
	if m.TotalReturnPct != 1.2 {
		t.Errorf("expected total return 1.2%%, got %f", m.TotalReturnPct)
	}
}

func TestAnalyze_ProfitFactorSentinelNoLosers(t *testing.T) {
	trades := []*domain.Trade{
		mkTrade(0, 100),
		mkTrade(1, 50),
	}
	cfg := testCfg()
	curve := equity.BuildCurve(trades, cfg.InitialCapital)

	m := Analyze(trades, curve, cfg)

	// No losing trades: profit factor is undefined, reported as the 0
	// sentinel rather than infinity.
	if m.ProfitFactor != 0 {
		t.Errorf("expected profit factor sentinel 0, got %f", m.ProfitFactor)
	}
	if m.AvgLoss != 0 || m.PayoffRatio != 0 {
		t.Errorf("expected zero loss stats, got avgLoss=%f payoff=%f", m.AvgLoss, m.PayoffRatio)
	}
}

func TestAnalyze_DrawdownStats(t *testing.T) {
	trades := []*domain.Trade{
		mkTrade(0, 1000),  // 11000, peak
		mkTrade(1, -1100), // 9900, below peak
		mkTrade(2, -400),  // 9500, below peak
		mkTrade(3, 1600),  // 11100, recovered
	}
	cfg := testCfg()
	curve := equity.BuildCurve(trades, cfg.InitialCapital)

	m := Analyze(trades, curve, cfg)

	// Max drawdown = (11000 - 9500) / 11000
	want := 1500.0 / 11000.0
	if math.Abs(m.MaxDrawdown-want) > 1e-12 {
		t.Errorf("expected max drawdown %f, got %f", want, m.MaxDrawdown)
	}
	// Two consecutive below-peak points.
	if m.MaxDrawdownDuration != 2 {
		t.Errorf("expected drawdown duration 2, got %d", m.MaxDrawdownDuration)
	}
}

func TestAnalyze_NoNaNOrInf(t *testing.T) {
	// A run of identical losing trades drives several denominators toward
	// degenerate territory; the output must stay finite.
	trades := []*domain.Trade{
		mkTrade(0, -10),
		mkTrade(1, -10),
		mkTrade(2, -10),
	}
	cfg := testCfg()
	curve := equity.BuildCurve(trades, cfg.InitialCapital)

	m := Analyze(trades, curve, cfg)

	checks := map[string]float64{
		"winRate":        m.WinRate,
		"profitFactor":   m.ProfitFactor,
		"payoffRatio":    m.PayoffRatio,
		"totalReturn":    m.TotalReturnPct,
		"annualized":     m.AnnualizedReturnPct,
		"maxDrawdown":    m.MaxDrawdown,
		"sharpe":         m.SharpeRatio,
		"sortino":        m.SortinoRatio,
		"calmar":         m.CalmarRatio,
		"recoveryFactor": m.RecoveryFactor,
	}
	for name, v := range checks {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			t.Errorf("%s is not finite: %f", name, v)
		}
	}
	if m.WinRate != 0 {
		t.Errorf("expected win rate 0 for all-losing run, got %f", m.WinRate)
	}
}

func TestAnnualizedReturn_ZeroElapsed(t *testing.T) {
	// Entry and exit at the same instant: elapsed years <= 0 yields 0.
	trades := []*domain.Trade{{EntryTime: jan1, ExitTime: jan1, PnL: 50}}
	got := annualizedReturn(trades, 0.5)
	if got != 0 {
		t.Errorf("expected 0 annualized return for zero elapsed time, got %f", got)
	}
}

func TestAnnualizedReturn_OneYearDoubling(t *testing.T) {
	// +100% over exactly one 365.25-day year annualizes to +100%.
	elapsed := int64(365.25 * 24 * 3600 * 1000)
	trades := []*domain.Trade{{EntryTime: jan1, ExitTime: jan1 + elapsed, PnL: 10000}}
	got := annualizedReturn(trades, 100)
	if math.Abs(got-100) > 1e-9 {
		t.Errorf("expected ~100%% annualized, got %f", got)
	}
}
