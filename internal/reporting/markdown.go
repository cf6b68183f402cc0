package reporting

import (
	"fmt"
	"strings"
	"time"

	"trading-signal-lab/internal/domain"
)

// RenderMarkdown renders a report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString(fmt.Sprintf("# Backtest Report: %s / %s\n\n", r.Symbol, r.StrategyID))
	sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", r.RunID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Bars: %d | Trades: %d\n\n", r.BarCount, len(r.Trades)))

	// Summary
	sb.WriteString("## Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Initial Capital | %.2f |\n", r.InitialCapital))
	sb.WriteString(fmt.Sprintf("| Final Equity | %.2f |\n", r.FinalEquity))
	sb.WriteString(fmt.Sprintf("| Total Return | %.2f%% |\n", r.Performance.TotalReturnPct))
	sb.WriteString(fmt.Sprintf("| Annualized Return | %.2f%% |\n", r.Performance.AnnualizedReturnPct))
	sb.WriteString(fmt.Sprintf("| Max Drawdown | %.4f |\n", r.Performance.MaxDrawdown))
	sb.WriteString(fmt.Sprintf("| Sharpe Ratio | %.4f |\n", r.Performance.SharpeRatio))
	sb.WriteString(fmt.Sprintf("| Sortino Ratio | %.4f |\n", r.Performance.SortinoRatio))
	sb.WriteString(fmt.Sprintf("| Calmar Ratio | %.4f |\n", r.Performance.CalmarRatio))
	sb.WriteString("\n")

	// Trade statistics
	sb.WriteString("## Trade Statistics\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", r.Performance.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Winners / Losers | %d / %d |\n", r.Performance.WinningTrades, r.Performance.LosingTrades))
	sb.WriteString(fmt.Sprintf("| Win Rate | %.2f%% |\n", r.Performance.WinRate))
	sb.WriteString(fmt.Sprintf("| Profit Factor | %.4f |\n", r.Performance.ProfitFactor))
	sb.WriteString(fmt.Sprintf("| Avg Win / Avg Loss | %.2f / %.2f |\n", r.Performance.AvgWin, r.Performance.AvgLoss))
	sb.WriteString(fmt.Sprintf("| Payoff Ratio | %.4f |\n", r.Performance.PayoffRatio))
	sb.WriteString("\n")

	renderRobustness(&sb, r)

	// Period returns
	sb.WriteString("## Monthly Returns\n\n")
	renderPeriodReturns(&sb, r.MonthlyReturns)

	sb.WriteString("## Yearly Returns\n\n")
	renderPeriodReturns(&sb, r.YearlyReturns)

	return sb.String()
}

func renderRobustness(sb *strings.Builder, r *Report) {
	if r.Robustness == nil {
		return
	}

	sb.WriteString("## Robustness\n\n")

	// Walk-forward
	if wf := r.Robustness.WalkForward; wf != nil {
		sb.WriteString("### Walk-Forward\n\n")
		if wf.Error != "" {
			sb.WriteString(fmt.Sprintf("Degraded: %s\n\n", wf.Error))
		} else {
			sb.WriteString("| Metric | In-Sample | Out-of-Sample |\n")
			sb.WriteString("|--------|-----------|---------------|\n")
			sb.WriteString(fmt.Sprintf("| Bars | %d | %d |\n", wf.InSampleBars, wf.OutOfSampleBars))
			sb.WriteString(fmt.Sprintf("| Return | %.2f%% | %.2f%% |\n", wf.InSample.TotalReturnPct, wf.OutOfSample.TotalReturnPct))
			sb.WriteString(fmt.Sprintf("| Trades | %d | %d |\n", wf.InSample.TotalTrades, wf.OutOfSample.TotalTrades))
			sb.WriteString("\n")
			sb.WriteString(fmt.Sprintf("Efficiency: %.4f | Degradation: %.2f | Consistency: %.1f/100\n\n",
				wf.Efficiency, wf.Degradation, wf.ConsistencyScore))
		}
	}

	// Monte Carlo
	if mc := r.Robustness.MonteCarlo; mc != nil {
		sb.WriteString("### Monte Carlo\n\n")
		if mc.Error != "" {
			sb.WriteString(fmt.Sprintf("Degraded: %s\n\n", mc.Error))
		} else {
			sb.WriteString(fmt.Sprintf("Runs: %d/%d (seed %d)\n\n", mc.Completed, mc.Runs, mc.Seed))
			sb.WriteString("| Band (p5-p95) | Low | High |\n")
			sb.WriteString("|---------------|-----|------|\n")
			sb.WriteString(fmt.Sprintf("| Return %% | %.2f | %.2f |\n", mc.Return95[0], mc.Return95[1]))
			sb.WriteString(fmt.Sprintf("| Max Drawdown | %.4f | %.4f |\n", mc.Drawdown95[0], mc.Drawdown95[1]))
			sb.WriteString(fmt.Sprintf("| Sharpe | %.4f | %.4f |\n", mc.Sharpe95[0], mc.Sharpe95[1]))
			sb.WriteString("\n")
			sb.WriteString(fmt.Sprintf("P(profit): %.2f | Tail Ratio: %.4f\n\n", mc.ProbabilityOfProfit, mc.TailRatio))
		}
	}

	// Sensitivity
	if sens := r.Robustness.Sensitivity; sens != nil {
		sb.WriteString("### Sensitivity\n\n")
		if sens.Error != "" {
			sb.WriteString(fmt.Sprintf("Degraded: %s\n\n", sens.Error))
		}
		if len(sens.Rows) > 0 {
			sb.WriteString("| Parameter | Base | Test | Base Return% | Test Return% | Delta |\n")
			sb.WriteString("|-----------|------|------|-------------|-------------|-------|\n")
			for _, row := range sens.Rows {
				sb.WriteString(fmt.Sprintf("| %s | %.4f | %.4f | %.2f | %.2f | %+.2f |\n",
					row.Parameter, row.BaseValue, row.TestValue,
					row.BaseReturnPct, row.TestReturnPct, row.DeltaPct))
			}
			sb.WriteString("\n")
		}
		if len(sens.Regimes) > 0 {
			sb.WriteString("| Regime | Trades | Net PnL | Return% |\n")
			sb.WriteString("|--------|--------|---------|--------|\n")
			for _, row := range sens.Regimes {
				sb.WriteString(fmt.Sprintf("| %s | %d | %.2f | %.2f |\n",
					row.Label, row.Trades, row.NetPnL, row.ReturnPct))
			}
			sb.WriteString("\n")
		}
	}

	// Out-of-sample
	if oos := r.Robustness.OutOfSample; oos != nil {
		sb.WriteString("### Out-of-Sample\n\n")
		if oos.Error != "" {
			sb.WriteString(fmt.Sprintf("Degraded: %s\n\n", oos.Error))
		} else {
			sb.WriteString(fmt.Sprintf("Window: %d - %d\n\n", oos.StartTime, oos.EndTime))
			sb.WriteString(fmt.Sprintf("Return: %.2f%% | Trades: %d | p-value vs in-sample: %.4f\n\n",
				oos.Metrics.TotalReturnPct, oos.Metrics.TotalTrades, oos.Significance))
		}
	}
}

func renderPeriodReturns(sb *strings.Builder, returns []domain.PeriodReturn) {
	if len(returns) == 0 {
		sb.WriteString("No closed trades in any period.\n\n")
		return
	}
	sb.WriteString("| Period | Return% |\n")
	sb.WriteString("|--------|--------|\n")
	for _, pr := range returns {
		sb.WriteString(fmt.Sprintf("| %s | %+.2f |\n", pr.Period, pr.ReturnPct))
	}
	sb.WriteString("\n")
}
