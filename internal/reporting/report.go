// Package reporting renders backtest results for humans: a Markdown
// report per run and CSV exports of the trade list and equity curve.
package reporting

import (
	"time"

	"trading-signal-lab/internal/domain"
)

// Report is the flattened, render-ready view of one backtest run.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	RunID       string
	Symbol      string
	StrategyID  string
	BarCount    int

	// Window (Unix ms, 0 = unbounded)
	StartTime int64
	EndTime   int64

	// Capital
	InitialCapital float64
	FinalEquity    float64

	Performance *domain.PerformanceMetrics
	Robustness  *domain.RobustnessReport

	MonthlyReturns []domain.PeriodReturn
	YearlyReturns  []domain.PeriodReturn

	Trades []*domain.Trade
}

// BuildReport flattens backtest results into a render-ready report.
func BuildReport(results *domain.BacktestResults) *Report {
	return &Report{
		GeneratedAt:    time.UnixMilli(results.GeneratedAt).UTC(),
		RunID:          results.RunID,
		Symbol:         results.Config.Symbol,
		StrategyID:     results.Config.StrategyID,
		BarCount:       results.BarCount,
		StartTime:      results.Config.StartTime,
		EndTime:        results.Config.EndTime,
		InitialCapital: results.Config.InitialCapital,
		FinalEquity:    results.FinalEquity(),
		Performance:    results.Performance,
		Robustness:     results.Robustness,
		MonthlyReturns: results.MonthlyReturns,
		YearlyReturns:  results.YearlyReturns,
		Trades:         results.Trades,
	}
}
