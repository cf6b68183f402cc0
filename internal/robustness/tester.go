// Package robustness stress-tests a strategy by re-applying the trade
// simulator and performance analyzer under four independent regimes:
// walk-forward, Monte Carlo, sensitivity, and out-of-sample.
package robustness

import (
	"context"
	"log"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/observability"
	"trading-signal-lab/internal/signal"
	"trading-signal-lab/internal/simulation"
)

// Tester orchestrates the four robustness sub-analyses. Each sub-analysis
// owns an independent copy of mutable simulation state; a failure in one
// degrades only its own section of the report.
type Tester struct {
	sim    *simulation.Simulator
	logger *log.Logger // nil = silent

	// RegimeLabeler optionally labels bars with a market-regime tag for
	// sensitivity segmentation (e.g. "trending", "ranging"). Nil disables
	// regime rows.
	RegimeLabeler func(*domain.Bar) string
}

// NewTester creates a robustness tester around a simulator.
func NewTester(sim *simulation.Simulator, logger *log.Logger) *Tester {
	return &Tester{sim: sim, logger: logger}
}

// Run executes all four sub-analyses and assembles the report. The input
// bars must already be chronologically ordered; splitting never shuffles.
func (t *Tester) Run(ctx context.Context, bars []*domain.Bar, source signal.Source, cfg domain.Config) *domain.RobustnessReport {
	inSample, outOfSample := SplitBars(bars, cfg.OutOfSamplePct)

	report := &domain.RobustnessReport{}

	report.WalkForward = t.runWalkForward(ctx, inSample, outOfSample, source, cfg)
	report.MonteCarlo = t.runMonteCarlo(ctx, inSample, source, cfg)
	report.Sensitivity = t.runSensitivity(ctx, bars, source, cfg)
	report.OutOfSample = t.runOutOfSample(ctx, inSample, outOfSample, source, cfg)

	for analysis, errMsg := range map[string]string{
		"walk_forward":  report.WalkForward.Error,
		"monte_carlo":   report.MonteCarlo.Error,
		"sensitivity":   report.Sensitivity.Error,
		"out_of_sample": report.OutOfSample.Error,
	} {
		if errMsg != "" {
			observability.RecordRobustnessSectionError(analysis)
		}
	}

	return report
}

// SplitBars splits a bar series chronologically: the trailing oosPct
// percent of bars becomes the out-of-sample segment. In-sample and
// out-of-sample counts always sum to the total, with no overlap, and
// every out-of-sample bar is strictly later than every in-sample bar.
func SplitBars(bars []*domain.Bar, oosPct float64) (inSample, outOfSample []*domain.Bar) {
	splitIdx := int(float64(len(bars)) * (1 - oosPct/100))
	if splitIdx < 0 {
		splitIdx = 0
	}
	if splitIdx > len(bars) {
		splitIdx = len(bars)
	}
	return bars[:splitIdx], bars[splitIdx:]
}

func (t *Tester) logf(format string, args ...interface{}) {
	if t.logger != nil {
		t.logger.Printf(format, args...)
	}
}
