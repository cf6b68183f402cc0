package robustness

import (
	"context"
	"math"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/equity"
	"trading-signal-lab/internal/metrics"
	"trading-signal-lab/internal/signal"
)

// runWalkForward runs the simulator independently on the in-sample and
// out-of-sample segments and compares their performance. The chronological
// split is the overfitting guard: out-of-sample bars were never visible to
// the in-sample run.
func (t *Tester) runWalkForward(ctx context.Context, inSample, outOfSample []*domain.Bar, source signal.Source, cfg domain.Config) *domain.WalkForwardReport {
	report := &domain.WalkForwardReport{
		InSample:        domain.ZeroPerformance(),
		OutOfSample:     domain.ZeroPerformance(),
		InSampleBars:    len(inSample),
		OutOfSampleBars: len(outOfSample),
	}

	isTrades, err := t.sim.Simulate(ctx, inSample, source, cfg)
	if err != nil {
		report.Error = "in-sample simulation: " + err.Error()
		return report
	}
	oosTrades, err := t.sim.Simulate(ctx, outOfSample, source, cfg)
	if err != nil {
		report.Error = "out-of-sample simulation: " + err.Error()
		return report
	}

	report.InSample = metrics.Analyze(isTrades, equity.BuildCurve(isTrades, cfg.InitialCapital), cfg)
	report.OutOfSample = metrics.Analyze(oosTrades, equity.BuildCurve(oosTrades, cfg.InitialCapital), cfg)

	isReturn := report.InSample.TotalReturnPct
	oosReturn := report.OutOfSample.TotalReturnPct

	report.Efficiency = oosReturn / math.Max(1, isReturn)
	report.Degradation = math.Abs(isReturn - oosReturn)
	report.ConsistencyScore = math.Max(0, 100-report.Degradation*5)

	t.logf("walk-forward: is=%.2f%% oos=%.2f%% efficiency=%.2f consistency=%.1f",
		isReturn, oosReturn, report.Efficiency, report.ConsistencyScore)

	return report
}
