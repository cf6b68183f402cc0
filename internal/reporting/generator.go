package reporting

import (
	"context"
	"fmt"
	"time"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/equity"
	"trading-signal-lab/internal/metrics"
	"trading-signal-lab/internal/storage"
)

// Generator rebuilds reports for persisted runs. Robustness analyses are
// not persisted, so regenerated reports carry performance and period
// returns only.
type Generator struct {
	runStore   storage.BacktestRunStore
	tradeStore storage.TradeStore
	now        func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(runStore storage.BacktestRunStore, tradeStore storage.TradeStore) *Generator {
	return &Generator{
		runStore:   runStore,
		tradeStore: tradeStore,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate rebuilds the report for a stored run. Performance and period
// returns are recomputed from the persisted trade list.
func (g *Generator) Generate(ctx context.Context, runID string) (*Report, error) {
	run, err := g.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}

	trades, err := g.tradeStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load trades for run %s: %w", runID, err)
	}

	cfg := domain.DefaultConfig(run.Symbol, run.StrategyID)
	cfg.InitialCapital = run.InitialCapital
	cfg.StartTime = run.StartTime
	cfg.EndTime = run.EndTime

	curve := equity.BuildCurve(trades, run.InitialCapital)

	return &Report{
		GeneratedAt:    g.now(),
		RunID:          run.RunID,
		Symbol:         run.Symbol,
		StrategyID:     run.StrategyID,
		StartTime:      run.StartTime,
		EndTime:        run.EndTime,
		InitialCapital: run.InitialCapital,
		FinalEquity:    run.FinalCapital,
		Performance:    metrics.Analyze(trades, curve, cfg),
		MonthlyReturns: equity.MonthlyReturns(curve),
		YearlyReturns:  equity.YearlyReturns(curve),
		Trades:         trades,
	}, nil
}
