package domain

// Position represents an open, unrealized trade. A position is created
// when a signal is accepted and capacity allows, and is consumed exactly
// once into a Trade.
type Position struct {
	PositionID string
	Symbol     string
	StrategyID string
	Direction  Direction

	EntryTime     int64 // Unix ms
	EntryPrice    float64
	Quantity      float64
	StopLoss      float64
	TakeProfit    float64
	Confidence    float64
	EntryBarIndex int
}

// Trade represents a closed, realized position.
type Trade struct {
	TradeID    string
	Symbol     string
	StrategyID string
	Direction  Direction

	// Entry
	EntryTime     int64 // Unix ms
	EntryPrice    float64
	Quantity      float64
	StopLoss      float64
	TakeProfit    float64
	Confidence    float64
	EntryBarIndex int

	// Exit
	ExitTime     int64 // Unix ms
	ExitPrice    float64
	ExitBarIndex int
	ExitReason   string

	// Costs and outcome
	Commission   float64 // round-trip commission
	SlippageCost float64
	PnL          float64 // direction-signed, net of costs
	PnLPct       float64 // PnL as % of entry position value
	HoldingBars  int
	HoldingMs    int64
}

// Exit reason codes. A position terminates in exactly one of these;
// no reopening, each position is single-use.
const (
	ExitReasonStopLoss   = "STOP_LOSS"
	ExitReasonTakeProfit = "TAKE_PROFIT"
	ExitReasonTimeExit   = "TIME_EXIT"
)
