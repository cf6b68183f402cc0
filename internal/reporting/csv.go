package reporting

import (
	"fmt"
	"strings"

	"trading-signal-lab/internal/domain"
)

// RenderTradesCSV renders the trade list of a report as CSV string.
func RenderTradesCSV(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("trade_id,symbol,strategy_id,direction,entry_time,exit_time,")
	sb.WriteString("entry_price,exit_price,quantity,pnl,pnl_pct,commission,slippage_cost,exit_reason,holding_ms\n")

	// Rows
	for _, t := range r.Trades {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%d,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%s,%d\n",
			t.TradeID,
			t.Symbol,
			t.StrategyID,
			t.Direction,
			t.EntryTime,
			t.ExitTime,
			t.EntryPrice,
			t.ExitPrice,
			t.Quantity,
			t.PnL,
			t.PnLPct,
			t.Commission,
			t.SlippageCost,
			t.ExitReason,
			t.HoldingMs,
		))
	}

	return sb.String()
}

// RenderEquityCSV renders an equity curve as CSV string.
func RenderEquityCSV(curve []*domain.EquityPoint) string {
	var sb strings.Builder

	sb.WriteString("timestamp_ms,equity,drawdown\n")
	for _, p := range curve {
		sb.WriteString(fmt.Sprintf("%d,%.6f,%.6f\n", p.Timestamp, p.Equity, p.Drawdown))
	}

	return sb.String()
}
