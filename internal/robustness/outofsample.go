package robustness

import (
	"context"
	"fmt"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/equity"
	"trading-signal-lab/internal/metrics"
	"trading-signal-lab/internal/signal"
)

// runOutOfSample simulates the held-out suffix in isolation and tests
// whether its per-trade returns are statistically distinguishable from
// the in-sample per-trade returns. Significance is the two-sided p-value
// of a Welch two-sample t-test; 1.0 means no evidence of a difference,
// which for an out-of-sample test is the desirable outcome.
func (t *Tester) runOutOfSample(ctx context.Context, inSample, outOfSample []*domain.Bar, source signal.Source, cfg domain.Config) *domain.OutOfSampleReport {
	report := &domain.OutOfSampleReport{
		Metrics:      domain.ZeroPerformance(),
		Significance: 1,
	}

	if len(outOfSample) == 0 {
		report.Error = "out-of-sample segment is empty"
		return report
	}
	report.StartTime = outOfSample[0].Timestamp
	report.EndTime = outOfSample[len(outOfSample)-1].Timestamp

	oosTrades, err := t.sim.Simulate(ctx, outOfSample, source, cfg)
	if err != nil {
		report.Error = fmt.Sprintf("out-of-sample simulation: %v", err)
		return report
	}
	report.Metrics = metrics.Analyze(oosTrades, equity.BuildCurve(oosTrades, cfg.InitialCapital), cfg)

	isTrades, err := t.sim.Simulate(ctx, inSample, source, cfg)
	if err != nil {
		report.Error = fmt.Sprintf("in-sample simulation: %v", err)
		return report
	}

	_, p := metrics.WelchTTest(tradeReturns(isTrades), tradeReturns(oosTrades))
	report.Significance = p

	t.logf("out-of-sample: %d trades, return=%.2f%%, p=%.3f",
		report.Metrics.TotalTrades, report.Metrics.TotalReturnPct, p)
	return report
}

func tradeReturns(trades []*domain.Trade) []float64 {
	returns := make([]float64, len(trades))
	for i, tr := range trades {
		returns[i] = tr.PnLPct
	}
	return returns
}
