// Package metrics computes performance statistics from a trade list and
// its equity curve. All ratios resolve zero denominators to an explicit 0
// sentinel; output never contains NaN or Infinity.
package metrics

import (
	"math"

	"trading-signal-lab/internal/domain"
)

// tradingDaysPerYear annualizes per-point return statistics.
const tradingDaysPerYear = 252

const msPerYear = 365.25 * 24 * 3600 * 1000

// Analyze computes performance metrics over trades and their equity curve.
// Degenerate input (zero trades) returns the all-zero sentinel record,
// never a division error.
func Analyze(trades []*domain.Trade, curve []*domain.EquityPoint, cfg domain.Config) *domain.PerformanceMetrics {
	n := len(trades)
	if n == 0 {
		return domain.ZeroPerformance()
	}

	m := &domain.PerformanceMetrics{TotalTrades: n}

	// Zero-pnl trades are excluded from both winners and losers.
	var grossProfit, grossLoss, netProfit float64
	for _, t := range trades {
		netProfit += t.PnL
		switch {
		case t.PnL > 0:
			m.WinningTrades++
			grossProfit += t.PnL
		case t.PnL < 0:
			m.LosingTrades++
			grossLoss += -t.PnL
		}
	}

	m.NetProfit = netProfit
	m.GrossProfit = grossProfit
	m.GrossLoss = grossLoss
	m.WinRate = float64(m.WinningTrades) / float64(n)

	if m.WinningTrades > 0 {
		m.AvgWin = grossProfit / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AvgLoss = grossLoss / float64(m.LosingTrades)
	}
	if m.AvgLoss > 0 {
		m.PayoffRatio = m.AvgWin / m.AvgLoss
	}
	// With no losing trades the ratio is undefined; 0 keeps infinities out
	// of the output.
	if grossLoss > 0 {
		m.ProfitFactor = grossProfit / grossLoss
	}

	m.TotalReturnPct = netProfit / cfg.InitialCapital * 100
	m.AnnualizedReturnPct = annualizedReturn(trades, m.TotalReturnPct)

	m.MaxDrawdown, m.MaxDrawdownDuration = drawdownStats(curve)

	returns := pointReturns(curve)
	meanReturn := Mean(returns)
	stdReturn := SampleStddev(returns)
	dailyRiskFree := cfg.RiskFreeRate / tradingDaysPerYear

	if stdReturn > 0 {
		m.SharpeRatio = (meanReturn - dailyRiskFree) / stdReturn * math.Sqrt(tradingDaysPerYear)
	}
	if downside := SampleStddev(downsideReturns(returns, meanReturn)); downside > 0 {
		m.SortinoRatio = (meanReturn - dailyRiskFree) / downside * math.Sqrt(tradingDaysPerYear)
	}
	if m.MaxDrawdown > 0 {
		m.CalmarRatio = m.AnnualizedReturnPct / (m.MaxDrawdown * 100)
		m.RecoveryFactor = m.TotalReturnPct / (m.MaxDrawdown * 100)
	}

	return m
}

// annualizedReturn applies a CAGR-style formula over the elapsed years
// between first entry and last exit. Elapsed years <= 0 yields 0.
func annualizedReturn(trades []*domain.Trade, totalReturnPct float64) float64 {
	firstEntry := trades[0].EntryTime
	lastExit := trades[0].ExitTime
	for _, t := range trades {
		if t.EntryTime < firstEntry {
			firstEntry = t.EntryTime
		}
		if t.ExitTime > lastExit {
			lastExit = t.ExitTime
		}
	}

	years := float64(lastExit-firstEntry) / msPerYear
	if years <= 0 {
		return 0
	}

	base := 1 + totalReturnPct/100
	if base <= 0 {
		// Capital wiped out; compounding is meaningless past -100%.
		return -100
	}
	return (math.Pow(base, 1/years) - 1) * 100
}

// drawdownStats reads the maximum drawdown fraction and the longest run of
// consecutive below-peak points from the equity curve.
func drawdownStats(curve []*domain.EquityPoint) (maxDrawdown float64, maxDuration int) {
	current := 0
	for _, p := range curve {
		if p.Drawdown > maxDrawdown {
			maxDrawdown = p.Drawdown
		}
		if p.Drawdown > 0 {
			current++
			if current > maxDuration {
				maxDuration = current
			}
		} else {
			current = 0
		}
	}
	return maxDrawdown, maxDuration
}

// pointReturns is the per-point return series of the equity curve. Risk
// ratios are computed from this series, not from raw price returns.
func pointReturns(curve []*domain.EquityPoint) []float64 {
	if len(curve) < 2 {
		return nil
	}
	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity
		if prev == 0 {
			continue
		}
		returns = append(returns, (curve[i].Equity-prev)/prev)
	}
	return returns
}

// downsideReturns filters the sub-mean returns used by Sortino.
func downsideReturns(returns []float64, mean float64) []float64 {
	var downside []float64
	for _, r := range returns {
		if r < mean {
			downside = append(downside, r)
		}
	}
	return downside
}
