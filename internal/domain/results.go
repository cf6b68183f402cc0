package domain

// WalkForwardReport compares in-sample and out-of-sample performance over
// a chronological split. The split is never shuffled: out-of-sample bars
// are strictly later in time than in-sample bars.
type WalkForwardReport struct {
	InSample         *PerformanceMetrics
	OutOfSample      *PerformanceMetrics
	InSampleBars     int
	OutOfSampleBars  int
	Efficiency       float64 // oos return / max(1, is return)
	Degradation      float64 // |is return - oos return|
	ConsistencyScore float64 // max(0, 100 - degradation*5)
	Error            string  // set when the sub-analysis degraded
}

// MonteCarloReport summarizes N simulations over randomly permuted bar
// orderings. This is an order-sensitivity stress test, not a bootstrap of
// realistic price paths.
type MonteCarloReport struct {
	Runs      int   // requested
	Completed int   // may be lower after cancellation
	Seed      int64 // seed that reproduces the exact batch

	Return95            [2]float64 // 5th/95th percentile band of total return %
	Drawdown95          [2]float64 // 5th/95th percentile band of max drawdown
	Sharpe95            [2]float64 // 5th/95th percentile band of Sharpe
	ProbabilityOfProfit float64    // fraction of runs with total return > 0
	TailRatio           float64    // p95 / |p5| of total return, 0 when p5 == 0
	Error               string
}

// SensitivityRow is one parameter perturbation and its performance delta.
type SensitivityRow struct {
	Parameter     string
	BaseValue     float64
	TestValue     float64
	BaseReturnPct float64
	TestReturnPct float64
	DeltaPct      float64 // test - base
}

// RegimeRow segments baseline trades by an externally supplied
// market-regime label.
type RegimeRow struct {
	Label     string
	Trades    int
	NetPnL    float64
	ReturnPct float64
}

// SensitivityReport holds the parameter sweep and optional regime
// segmentation.
type SensitivityReport struct {
	Rows    []SensitivityRow
	Regimes []RegimeRow
	Error   string
}

// OutOfSampleReport holds a single simulation confined to the
// out-of-sample suffix.
type OutOfSampleReport struct {
	Metrics   *PerformanceMetrics
	StartTime int64 // Unix ms
	EndTime   int64 // Unix ms
	// Significance is the two-sided p-value of a Welch two-sample t-test
	// comparing in-sample vs out-of-sample per-trade returns. 1.0 when
	// either side has too few trades to test.
	Significance float64
	Error        string
}

// RobustnessReport contains the four derived robustness analyses. A failed
// sub-analysis degrades its own section rather than failing the backtest.
type RobustnessReport struct {
	WalkForward *WalkForwardReport
	MonteCarlo  *MonteCarloReport
	Sensitivity *SensitivityReport
	OutOfSample *OutOfSampleReport
}

// BacktestResults is the fully populated output of one backtest run.
// Plain data, no cyclic references, serializable as-is.
type BacktestResults struct {
	RunID       string
	Config      Config
	GeneratedAt int64 // Unix ms
	BarCount    int

	Trades         []*Trade
	Performance    *PerformanceMetrics
	EquityCurve    []*EquityPoint
	MonthlyReturns []PeriodReturn
	YearlyReturns  []PeriodReturn
	Robustness     *RobustnessReport
}

// FinalEquity returns the last equity curve value, or the initial capital
// when the curve is empty.
func (r *BacktestResults) FinalEquity() float64 {
	if len(r.EquityCurve) == 0 {
		return r.Config.InitialCapital
	}
	return r.EquityCurve[len(r.EquityCurve)-1].Equity
}

// BacktestRun is the flat persistence summary of one run, stored alongside
// its trades. The full BacktestResults stays with the caller.
type BacktestRun struct {
	RunID          string
	Symbol         string
	StrategyID     string
	StartTime      int64
	EndTime        int64
	InitialCapital float64
	FinalCapital   float64
	TotalTrades    int
	WinRate        float64
	TotalReturnPct float64
	SharpeRatio    float64
	MaxDrawdown    float64
	CreatedAt      int64 // Unix ms
}

// Summary builds the persistence row for this run.
func (r *BacktestResults) Summary() *BacktestRun {
	start, end := r.Config.StartTime, r.Config.EndTime
	return &BacktestRun{
		RunID:          r.RunID,
		Symbol:         r.Config.Symbol,
		StrategyID:     r.Config.StrategyID,
		StartTime:      start,
		EndTime:        end,
		InitialCapital: r.Config.InitialCapital,
		FinalCapital:   r.FinalEquity(),
		TotalTrades:    r.Performance.TotalTrades,
		WinRate:        r.Performance.WinRate,
		TotalReturnPct: r.Performance.TotalReturnPct,
		SharpeRatio:    r.Performance.SharpeRatio,
		MaxDrawdown:    r.Performance.MaxDrawdown,
		CreatedAt:      r.GeneratedAt,
	}
}
