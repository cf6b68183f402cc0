package robustness

import (
	"context"
	"fmt"
	"sort"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/equity"
	"trading-signal-lab/internal/metrics"
	"trading-signal-lab/internal/signal"
)

// riskMultipliers are the per-trade risk perturbations applied around the
// baseline configuration.
var riskMultipliers = []float64{0.5, 0.75, 1.25, 1.5}

// runSensitivity re-simulates the full bar series under perturbed
// parameters and reports the return delta per perturbation. The sweep
// covers risk per trade at four multipliers, plus doubled commission and
// doubled slippage. When a RegimeLabeler is installed, baseline trades
// are additionally segmented by the regime label of their entry bar.
func (t *Tester) runSensitivity(ctx context.Context, bars []*domain.Bar, source signal.Source, cfg domain.Config) *domain.SensitivityReport {
	report := &domain.SensitivityReport{}

	baseTrades, err := t.sim.Simulate(ctx, bars, source, cfg)
	if err != nil {
		report.Error = fmt.Sprintf("baseline simulation: %v", err)
		return report
	}
	baseReturn := totalReturnPct(baseTrades, cfg)

	type perturbation struct {
		parameter string
		base      float64
		test      float64
		apply     func(*domain.Config)
	}

	var sweep []perturbation
	for _, mult := range riskMultipliers {
		value := cfg.RiskPerTrade * mult
		sweep = append(sweep, perturbation{
			parameter: "risk_per_trade",
			base:      cfg.RiskPerTrade,
			test:      value,
			apply:     func(c *domain.Config) { c.RiskPerTrade = value },
		})
	}
	sweep = append(sweep,
		perturbation{
			parameter: "commission",
			base:      cfg.Commission,
			test:      cfg.Commission * 2,
			apply:     func(c *domain.Config) { c.Commission *= 2 },
		},
		perturbation{
			parameter: "slippage_pct",
			base:      cfg.SlippagePct,
			test:      cfg.SlippagePct * 2,
			apply:     func(c *domain.Config) { c.SlippagePct *= 2 },
		},
	)

	for _, p := range sweep {
		if ctx.Err() != nil {
			report.Error = fmt.Sprintf("sweep interrupted: %v", ctx.Err())
			break
		}

		perturbed := cfg
		p.apply(&perturbed)

		trades, err := t.sim.Simulate(ctx, bars, source, perturbed)
		if err != nil {
			report.Error = fmt.Sprintf("%s=%v simulation: %v", p.parameter, p.test, err)
			break
		}
		testReturn := totalReturnPct(trades, perturbed)

		report.Rows = append(report.Rows, domain.SensitivityRow{
			Parameter:     p.parameter,
			BaseValue:     p.base,
			TestValue:     p.test,
			BaseReturnPct: baseReturn,
			TestReturnPct: testReturn,
			DeltaPct:      testReturn - baseReturn,
		})
	}

	if t.RegimeLabeler != nil {
		report.Regimes = t.regimeRows(bars, baseTrades, cfg)
	}

	t.logf("sensitivity: %d perturbations, %d regimes", len(report.Rows), len(report.Regimes))
	return report
}

// regimeRows buckets baseline trades by the regime label of their entry
// bar. Rows are sorted by label for stable output.
func (t *Tester) regimeRows(bars []*domain.Bar, trades []*domain.Trade, cfg domain.Config) []domain.RegimeRow {
	byLabel := make(map[string]*domain.RegimeRow)
	for _, tr := range trades {
		if tr.EntryBarIndex < 0 || tr.EntryBarIndex >= len(bars) {
			continue
		}
		label := t.RegimeLabeler(bars[tr.EntryBarIndex])
		row, ok := byLabel[label]
		if !ok {
			row = &domain.RegimeRow{Label: label}
			byLabel[label] = row
		}
		row.Trades++
		row.NetPnL += tr.PnL
	}

	rows := make([]domain.RegimeRow, 0, len(byLabel))
	for _, row := range byLabel {
		if cfg.InitialCapital > 0 {
			row.ReturnPct = row.NetPnL / cfg.InitialCapital * 100
		}
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Label < rows[j].Label })
	return rows
}

func totalReturnPct(trades []*domain.Trade, cfg domain.Config) float64 {
	m := metrics.Analyze(trades, equity.BuildCurve(trades, cfg.InitialCapital), cfg)
	return m.TotalReturnPct
}
