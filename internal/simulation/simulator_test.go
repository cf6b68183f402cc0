package simulation

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/signal"
	"trading-signal-lab/internal/strategy"
)

const hourMs = int64(3600 * 1000)

// testBase is 2024-01-01 00:00:00 UTC in ms.
const testBase = int64(1704067200000)

func flatBar(i int) *domain.Bar {
	return &domain.Bar{
		Timestamp: testBase + int64(i)*hourMs,
		Open:      100,
		High:      100.6,
		Low:       99.6,
		Close:     100,
	}
}

// flatBars returns n identical 100-flat hourly bars.
func flatBars(n int) []*domain.Bar {
	bars := make([]*domain.Bar, n)
	for i := range bars {
		bars[i] = flatBar(i)
	}
	return bars
}

// trendBars returns 20 hourly bars: flat at 100 for bars 0-9, then rising
// one point per bar. Bar 13 closes at 104 with a high of 104.6.
func trendBars() []*domain.Bar {
	bars := make([]*domain.Bar, 20)
	for i := 0; i < 10; i++ {
		bars[i] = flatBar(i)
	}
	for i := 10; i < 20; i++ {
		c := 100 + float64(i-9)
		bars[i] = &domain.Bar{
			Timestamp: testBase + int64(i)*hourMs,
			Open:      c - 1,
			High:      c + 0.6,
			Low:       c - 1.4,
			Close:     c,
		}
	}
	return bars
}

func testConfig() domain.Config {
	cfg := domain.DefaultConfig("EURUSD", "swing")
	cfg.InitialCapital = 10000
	cfg.Commission = 2
	cfg.SlippagePct = 0.0001
	cfg.RiskPerTrade = 0.02
	cfg.MaxPositions = 1
	cfg.ReinvestProfits = false
	return cfg
}

func TestSimulate_TakeProfitScenario(t *testing.T) {
	// One LONG at bar 5 with stop 0.98x and target 1.04x of close[5]=100.
	// Fill at bar 6 open (100) with slippage; target 104 is touched at bar 13.
	bars := trendBars()
	src := signal.NewStubSource().EmitAt(5, &domain.Signal{
		Direction:  domain.DirectionLong,
		Confidence: 0.8,
		StopLoss:   98,
		TakeProfit: 104,
	})

	sim := New(strategy.DefaultRegistry(), nil)
	trades, err := sim.Simulate(context.Background(), bars, src, testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(trades) != 1 {
		t.Fatalf("expected exactly 1 trade, got %d", len(trades))
	}

	trade := trades[0]
	if trade.ExitReason != domain.ExitReasonTakeProfit {
		t.Errorf("expected exit reason %s, got %s", domain.ExitReasonTakeProfit, trade.ExitReason)
	}
	if trade.PnL <= 0 {
		t.Errorf("expected positive pnl, got %f", trade.PnL)
	}
	if trade.ExitPrice != 104 {
		t.Errorf("expected exit at target price 104, got %f", trade.ExitPrice)
	}
	if trade.EntryBarIndex != 6 {
		t.Errorf("expected fill at bar 6, got %d", trade.EntryBarIndex)
	}
	// quantity = floor(10000 * 0.02 / |100.01 - 98|) = floor(99.50) = 99
	if trade.Quantity != 99 {
		t.Errorf("expected quantity 99, got %f", trade.Quantity)
	}
	if trade.ExitTime < trade.EntryTime {
		t.Errorf("exit time %d before entry time %d", trade.ExitTime, trade.EntryTime)
	}
}

func TestSimulate_EmptyBars(t *testing.T) {
	sim := New(nil, nil)
	trades, err := sim.Simulate(context.Background(), nil, signal.NewStubSource(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 0 {
		t.Errorf("expected 0 trades for empty series, got %d", len(trades))
	}
}

func TestSimulate_NoSignals(t *testing.T) {
	sim := New(nil, nil)
	trades, err := sim.Simulate(context.Background(), flatBars(20), signal.NewStubSource(), testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 0 {
		t.Errorf("expected 0 trades when the source never fires, got %d", len(trades))
	}
}

func TestSimulate_MaxPositionsRespected(t *testing.T) {
	// Two LONG signals while maxPositions = 1. Stops and targets are far
	// away, so the first position stays open; the second signal must be
	// ignored. The single position is force-closed at the end.
	src := signal.NewStubSource().
		EmitAt(2, &domain.Signal{Direction: domain.DirectionLong, StopLoss: 90, TakeProfit: 120}).
		EmitAt(4, &domain.Signal{Direction: domain.DirectionLong, StopLoss: 90, TakeProfit: 120})

	sim := New(nil, nil)
	trades, err := sim.Simulate(context.Background(), flatBars(10), src, testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade (second signal ignored), got %d", len(trades))
	}
	if trades[0].ExitReason != domain.ExitReasonTimeExit {
		t.Errorf("expected force close with %s, got %s", domain.ExitReasonTimeExit, trades[0].ExitReason)
	}
	if trades[0].EntryBarIndex != 3 {
		t.Errorf("expected fill at bar 3 from the first signal, got %d", trades[0].EntryBarIndex)
	}
}

func TestSimulate_StopLossWinsDoubleTouch(t *testing.T) {
	// Bar 2 touches both stop (98) and target (104). The conservative
	// policy resolves the tie as STOP_LOSS.
	bars := flatBars(5)
	bars[2] = &domain.Bar{
		Timestamp: testBase + 2*hourMs,
		Open:      100,
		High:      110,
		Low:       90,
		Close:     100,
	}
	src := signal.NewStubSource().EmitAt(0, &domain.Signal{
		Direction:  domain.DirectionLong,
		StopLoss:   98,
		TakeProfit: 104,
	})

	sim := New(nil, nil)
	trades, err := sim.Simulate(context.Background(), bars, src, testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	if trades[0].ExitReason != domain.ExitReasonStopLoss {
		t.Errorf("expected STOP_LOSS to win the double touch, got %s", trades[0].ExitReason)
	}
	if trades[0].ExitPrice != 98 {
		t.Errorf("expected exit at stop price 98, got %f", trades[0].ExitPrice)
	}
}

func TestSimulate_SignalErrorDegradesToNoSignal(t *testing.T) {
	// A failing bar must not abort the run; a later signal still trades.
	src := signal.NewStubSource().
		FailAt(1, errors.New("inference backend unavailable")).
		EmitAt(5, &domain.Signal{Direction: domain.DirectionLong, StopLoss: 98, TakeProfit: 104})

	sim := New(nil, nil)
	trades, err := sim.Simulate(context.Background(), trendBars(), src, testConfig())
	if err != nil {
		t.Fatalf("expected run to survive a per-bar signal error, got %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("expected the later signal to still produce a trade, got %d", len(trades))
	}

	// Every bar 0..n-2 was still requested in order.
	reqs := src.Requests()
	if len(reqs) != 19 {
		t.Errorf("expected 19 signal requests, got %d", len(reqs))
	}
	for i, r := range reqs {
		if r != i {
			t.Fatalf("expected in-order request for bar %d, got %d", i, r)
		}
	}
}

func TestSimulate_ZeroStopDistance(t *testing.T) {
	// Stop equal to the fill price means unbounded size; no position opens.
	cfg := testConfig()
	cfg.SlippagePct = 0 // fill exactly at next open = 100

	src := signal.NewStubSource().EmitAt(2, &domain.Signal{
		Direction:  domain.DirectionLong,
		StopLoss:   100,
		TakeProfit: 104,
	})

	sim := New(nil, nil)
	trades, err := sim.Simulate(context.Background(), flatBars(10), src, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(trades) != 0 {
		t.Errorf("expected no trades for zero stop distance, got %d", len(trades))
	}
}

func TestSimulate_ShortTakeProfit(t *testing.T) {
	// SHORT filled at 100; bar 3 drops to 96.5, touching the 97 target.
	cfg := testConfig()
	cfg.SlippagePct = 0

	bars := flatBars(6)
	bars[3] = &domain.Bar{
		Timestamp: testBase + 3*hourMs,
		Open:      99,
		High:      99.5,
		Low:       96.5,
		Close:     97.5,
	}
	src := signal.NewStubSource().EmitAt(1, &domain.Signal{
		Direction:  domain.DirectionShort,
		StopLoss:   102,
		TakeProfit: 97,
	})

	sim := New(nil, nil)
	trades, err := sim.Simulate(context.Background(), bars, src, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	trade := trades[0]
	if trade.ExitReason != domain.ExitReasonTakeProfit {
		t.Errorf("expected TAKE_PROFIT, got %s", trade.ExitReason)
	}
	// pnl = -1 * (97 - 100) * qty - costs, so the short gains on the drop.
	if trade.PnL <= 0 {
		t.Errorf("expected positive pnl on a winning short, got %f", trade.PnL)
	}
}

func TestSimulate_ReinvestProfitsChangesSizing(t *testing.T) {
	// Two identical winning setups. Without reinvesting both positions are
	// sized off initial capital; with reinvesting the second is larger.
	bars := flatBars(10)
	for _, i := range []int{2, 6} {
		bars[i] = &domain.Bar{
			Timestamp: testBase + int64(i)*hourMs,
			Open:      100,
			High:      102.5,
			Low:       99.8,
			Close:     102,
		}
	}
	makeSource := func() signal.Source {
		return signal.NewStubSource().
			EmitAt(0, &domain.Signal{Direction: domain.DirectionLong, StopLoss: 98, TakeProfit: 102}).
			EmitAt(4, &domain.Signal{Direction: domain.DirectionLong, StopLoss: 98, TakeProfit: 102})
	}

	cfg := testConfig()
	cfg.SlippagePct = 0

	sim := New(nil, nil)

	fixed, err := sim.Simulate(context.Background(), bars, makeSource(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(fixed) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(fixed))
	}
	// Sizing always off initial capital: floor(10000*0.02/2) = 100 both times.
	if fixed[0].Quantity != 100 || fixed[1].Quantity != 100 {
		t.Errorf("expected fixed sizing 100/100, got %f/%f", fixed[0].Quantity, fixed[1].Quantity)
	}

	cfg.ReinvestProfits = true
	reinvested, err := sim.Simulate(context.Background(), bars, makeSource(), cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(reinvested) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(reinvested))
	}
	// First trade: pnl = 2*100 - 4 = 196. Second sizing:
	// floor(10196*0.02/2) = 101.
	if reinvested[1].Quantity != 101 {
		t.Errorf("expected reinvested sizing 101, got %f", reinvested[1].Quantity)
	}
}

func TestSimulate_Determinism(t *testing.T) {
	cfg := testConfig()
	sim := New(nil, nil)

	run := func() []*domain.Trade {
		src := signal.NewStubSource().EmitAt(5, &domain.Signal{
			Direction:  domain.DirectionLong,
			StopLoss:   98,
			TakeProfit: 104,
		})
		trades, err := sim.Simulate(context.Background(), trendBars(), src, cfg)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return trades
	}

	first := run()
	second := run()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("expected identical trade lists across repeated runs")
	}
}

func TestSimulate_InvalidConfigRejectedEagerly(t *testing.T) {
	cfg := testConfig()
	cfg.RiskPerTrade = 0

	src := signal.NewStubSource()
	sim := New(nil, nil)
	_, err := sim.Simulate(context.Background(), flatBars(10), src, cfg)
	if !errors.Is(err, domain.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if len(src.Requests()) != 0 {
		t.Errorf("expected no signal requests before validation, got %d", len(src.Requests()))
	}
}

func TestSimulate_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sim := New(nil, nil)
	_, err := sim.Simulate(ctx, flatBars(10), signal.NewStubSource(), testConfig())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestSimulate_TimeExitAfterHoldingLimit(t *testing.T) {
	// "scalping" holds at most 4 hours = 4 one-hour bars. Fill at bar 2,
	// no stop or target touch, so the exit fires when the holding period
	// exceeds the limit.
	cfg := testConfig()
	cfg.StrategyID = "scalping"

	src := signal.NewStubSource().EmitAt(1, &domain.Signal{
		Direction:  domain.DirectionLong,
		StopLoss:   90,
		TakeProfit: 120,
	})

	sim := New(strategy.DefaultRegistry(), nil)
	trades, err := sim.Simulate(context.Background(), flatBars(12), src, cfg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	trade := trades[0]
	if trade.ExitReason != domain.ExitReasonTimeExit {
		t.Errorf("expected TIME_EXIT, got %s", trade.ExitReason)
	}
	// Entry bar 2, limit 4 bars: first bar with holding > 4 is bar 7.
	if trade.ExitBarIndex != 7 {
		t.Errorf("expected exit at bar 7, got %d", trade.ExitBarIndex)
	}
	if trade.HoldingBars != 5 {
		t.Errorf("expected 5 holding bars, got %d", trade.HoldingBars)
	}
}
