// Package backtest orchestrates a complete run.
// Flow: validate → filter bars → simulate → equity + metrics → robustness → persist
package backtest

import (
	"context"
	"fmt"
	"log"
	"time"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/equity"
	"trading-signal-lab/internal/idhash"
	"trading-signal-lab/internal/metrics"
	"trading-signal-lab/internal/observability"
	"trading-signal-lab/internal/robustness"
	"trading-signal-lab/internal/signal"
	"trading-signal-lab/internal/simulation"
	"trading-signal-lab/internal/storage"
	"trading-signal-lab/internal/strategy"
)

// Options for creating an Orchestrator.
type Options struct {
	// Registry resolves per-strategy holding limits. Nil falls back to the
	// default catalog.
	Registry strategy.Registry

	// Optional persistence. When both are set, the run summary and its
	// trades are stored after the results are assembled.
	RunStore   storage.BacktestRunStore
	TradeStore storage.TradeStore

	// RegimeLabeler is forwarded to the robustness tester.
	RegimeLabeler func(*domain.Bar) string

	Logger *log.Logger // nil = silent
}

// Orchestrator coordinates one backtest end to end. The simulator and
// robustness tester it drives are stateless across runs, so a single
// Orchestrator may serve concurrent Run calls.
type Orchestrator struct {
	sim        *simulation.Simulator
	tester     *robustness.Tester
	runStore   storage.BacktestRunStore
	tradeStore storage.TradeStore
	logger     *log.Logger
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	sim := simulation.New(opts.Registry, opts.Logger)
	tester := robustness.NewTester(sim, opts.Logger)
	tester.RegimeLabeler = opts.RegimeLabeler
	return &Orchestrator{
		sim:        sim,
		tester:     tester,
		runStore:   opts.RunStore,
		tradeStore: opts.TradeStore,
		logger:     opts.Logger,
	}
}

// Run executes a full backtest over the given bars. The config is
// validated eagerly and the bars are checked for chronological order
// before any simulation work starts. Signal-source failures inside the
// simulation degrade per bar; a robustness sub-analysis failure degrades
// its own report section. Only invalid input, cancellation, and
// persistence failures abort the run.
func (o *Orchestrator) Run(ctx context.Context, bars []*domain.Bar, source signal.Source, cfg domain.Config) (*domain.BacktestResults, error) {
	started := time.Now()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := domain.ValidateBars(bars); err != nil {
		return nil, err
	}
	bars = domain.FilterBarsByTime(bars, cfg.StartTime, cfg.EndTime)
	o.logf("run %s/%s: %d bars after time filter", cfg.Symbol, cfg.StrategyID, len(bars))

	trades, err := o.sim.Simulate(ctx, bars, source, cfg)
	if err != nil {
		observability.RecordBacktestRun("error", time.Since(started).Seconds())
		return nil, fmt.Errorf("simulate: %w", err)
	}
	observability.RecordTradesSimulated(len(trades))

	curve := equity.BuildCurve(trades, cfg.InitialCapital)

	results := &domain.BacktestResults{
		Config:         cfg,
		GeneratedAt:    time.Now().UnixMilli(),
		BarCount:       len(bars),
		Trades:         trades,
		Performance:    metrics.Analyze(trades, curve, cfg),
		EquityCurve:    curve,
		MonthlyReturns: equity.MonthlyReturns(curve),
		YearlyReturns:  equity.YearlyReturns(curve),
		Robustness:     o.tester.Run(ctx, bars, source, cfg),
	}
	results.RunID = idhash.ComputeRunID(
		cfg.Symbol, cfg.StrategyID, cfg.StartTime, cfg.EndTime, len(bars), results.GeneratedAt)

	if err := o.persist(ctx, results); err != nil {
		observability.RecordBacktestRun("error", time.Since(started).Seconds())
		return nil, err
	}

	observability.RecordBacktestRun("ok", time.Since(started).Seconds())
	observability.MarkRunSuccess()
	o.logf("run %s complete: %d trades, return %.2f%%",
		results.RunID[:12], results.Performance.TotalTrades, results.Performance.TotalReturnPct)

	return results, nil
}

// persist stores the run summary and its trades when stores are wired.
func (o *Orchestrator) persist(ctx context.Context, results *domain.BacktestResults) error {
	if o.runStore == nil || o.tradeStore == nil {
		return nil
	}
	if err := o.runStore.Insert(ctx, results.Summary()); err != nil {
		return fmt.Errorf("persist run %s: %w", results.RunID, err)
	}
	if err := o.tradeStore.InsertBulk(ctx, results.RunID, results.Trades); err != nil {
		return fmt.Errorf("persist trades for run %s: %w", results.RunID, err)
	}
	return nil
}

func (o *Orchestrator) logf(format string, args ...interface{}) {
	if o.logger != nil {
		o.logger.Printf(format, args...)
	}
}
