// Package equity turns a sequence of closed trades into a time-ordered
// capital and drawdown series, plus calendar-bucketed returns.
package equity

import (
	"fmt"
	"time"

	"trading-signal-lab/internal/domain"
)

// BuildCurve builds the equity curve from trades in exit order. The curve
// seeds with one point at initial capital, stamped at the first trade's
// entry (or now when there are no trades), then adds one point per trade
// exit. Drawdown is the fractional decline from the running peak, 0 when
// equity is at or above the peak.
func BuildCurve(trades []*domain.Trade, initialCapital float64) []*domain.EquityPoint {
	curve := make([]*domain.EquityPoint, 0, len(trades)+1)

	seedTime := time.Now().UnixMilli()
	if len(trades) > 0 {
		seedTime = trades[0].EntryTime
	}
	curve = append(curve, &domain.EquityPoint{
		Timestamp: seedTime,
		Equity:    initialCapital,
	})

	running := initialCapital
	peak := initialCapital
	for _, t := range trades {
		running += t.PnL
		if running > peak {
			peak = running
		}
		drawdown := 0.0
		if peak > 0 && running < peak {
			drawdown = (peak - running) / peak
		}
		curve = append(curve, &domain.EquityPoint{
			Timestamp: t.ExitTime,
			Equity:    running,
			Drawdown:  drawdown,
		})
	}

	return curve
}

// MonthlyReturns buckets the curve by calendar month. Each bucket reports
// (endEquity - startEquity) / startEquity, where startEquity is the last
// equity value before the bucket begins.
func MonthlyReturns(curve []*domain.EquityPoint) []domain.PeriodReturn {
	return bucketReturns(curve, func(ts time.Time) string {
		return fmt.Sprintf("%04d-%02d", ts.Year(), int(ts.Month()))
	})
}

// YearlyReturns buckets the curve by calendar year.
func YearlyReturns(curve []*domain.EquityPoint) []domain.PeriodReturn {
	return bucketReturns(curve, func(ts time.Time) string {
		return fmt.Sprintf("%04d", ts.Year())
	})
}

// bucketReturns walks the curve in order and closes a bucket whenever the
// period label changes. Curve points are already monotonic in time.
func bucketReturns(curve []*domain.EquityPoint, label func(time.Time) string) []domain.PeriodReturn {
	if len(curve) == 0 {
		return nil
	}

	var out []domain.PeriodReturn

	currentLabel := label(time.UnixMilli(curve[0].Timestamp).UTC())
	startEquity := curve[0].Equity
	endEquity := curve[0].Equity

	flush := func() {
		ret := 0.0
		if startEquity != 0 {
			ret = (endEquity - startEquity) / startEquity * 100
		}
		out = append(out, domain.PeriodReturn{
			Period:      currentLabel,
			StartEquity: startEquity,
			EndEquity:   endEquity,
			ReturnPct:   ret,
		})
	}

	for _, p := range curve[1:] {
		l := label(time.UnixMilli(p.Timestamp).UTC())
		if l != currentLabel {
			flush()
			currentLabel = l
			startEquity = endEquity
		}
		endEquity = p.Equity
	}
	flush()

	return out
}
