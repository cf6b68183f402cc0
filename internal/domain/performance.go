package domain

// PerformanceMetrics is a purely derived aggregate over a trade list and
// its equity curve. Ratios with a zero denominator resolve to an explicit
// 0 sentinel, never NaN or Infinity.
type PerformanceMetrics struct {
	// Counts. Zero-pnl trades are excluded from both winners and losers,
	// so WinningTrades + LosingTrades <= TotalTrades.
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64 // winners / total, in [0,1]

	// Per-trade averages. AvgLoss is reported as a positive magnitude.
	AvgWin       float64
	AvgLoss      float64
	PayoffRatio  float64 // AvgWin / AvgLoss
	ProfitFactor float64 // gross profit / |gross loss|, 0 when no losers

	// Returns
	NetProfit           float64
	GrossProfit         float64
	GrossLoss           float64 // positive magnitude
	TotalReturnPct      float64
	AnnualizedReturnPct float64 // CAGR over elapsed years

	// Drawdown, read from the equity curve
	MaxDrawdown         float64 // fraction in [0,1]
	MaxDrawdownDuration int     // longest run of consecutive curve points below peak

	// Risk-adjusted ratios, computed from the equity curve's per-point
	// return series
	SharpeRatio    float64
	SortinoRatio   float64
	CalmarRatio    float64
	RecoveryFactor float64
}

// ZeroPerformance returns the all-zero sentinel record used for degenerate
// input (no trades, empty bar series). Callers never see a division error.
func ZeroPerformance() *PerformanceMetrics {
	return &PerformanceMetrics{}
}
