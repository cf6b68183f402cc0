package domain

// EquityPoint is one point on the capital curve. The curve starts with one
// point at initial capital, then one point per trade exit, monotonic in time.
type EquityPoint struct {
	Timestamp int64   // Unix ms
	Equity    float64 // cumulative capital
	Drawdown  float64 // fractional decline from running peak, 0 at/above peak
}

// PeriodReturn is a calendar-bucketed return over the equity curve.
type PeriodReturn struct {
	Period      string // "2024-03" for monthly, "2024" for yearly
	StartEquity float64
	EndEquity   float64
	ReturnPct   float64 // (end - start) / start * 100
}
