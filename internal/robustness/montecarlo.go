package robustness

import (
	"context"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/equity"
	"trading-signal-lab/internal/metrics"
	"trading-signal-lab/internal/observability"
	"trading-signal-lab/internal/signal"
)

// maxMonteCarloWorkers caps the worker pool for permuted runs.
const maxMonteCarloWorkers = 8

// mcRunResult holds the per-run statistics collected from one permutation.
type mcRunResult struct {
	totalReturn float64
	maxDrawdown float64
	sharpe      float64
	completed   bool
}

// runMonteCarlo runs N simulations, each over a randomly permuted ordering
// of the in-sample bars. This is an order-sensitivity stress test, not a
// bootstrap of realistic price paths: permuted series are deliberately
// unrealistic. Run i derives its generator from seed+i, so the batch is
// reproducible regardless of worker scheduling. Cancellation between runs
// yields a valid reduced-sample report instead of discarding progress.
func (t *Tester) runMonteCarlo(ctx context.Context, inSample []*domain.Bar, source signal.Source, cfg domain.Config) *domain.MonteCarloReport {
	runs := cfg.MonteCarloRuns
	if runs <= 0 {
		runs = 100
	}
	seed := cfg.MonteCarloSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	report := &domain.MonteCarloReport{Runs: runs, Seed: seed}

	if len(inSample) < 2 {
		report.Error = "not enough in-sample bars for permutation runs"
		return report
	}

	results := make([]mcRunResult, runs)

	workers := runtime.NumCPU()
	if workers > maxMonteCarloWorkers {
		workers = maxMonteCarloWorkers
	}
	if workers > runs {
		workers = runs
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = t.monteCarloRun(ctx, inSample, source, cfg, seed+int64(i))
			}
		}()
	}

dispatch:
	for i := 0; i < runs; i++ {
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
		}
	}
	close(jobs)
	wg.Wait()

	var returns, drawdowns, sharpes []float64
	profitable := 0
	for _, r := range results {
		if !r.completed {
			continue
		}
		returns = append(returns, r.totalReturn)
		drawdowns = append(drawdowns, r.maxDrawdown)
		sharpes = append(sharpes, r.sharpe)
		if r.totalReturn > 0 {
			profitable++
		}
	}
	report.Completed = len(returns)
	observability.RecordMonteCarloRuns(report.Completed)

	if report.Completed == 0 {
		report.Error = "no permutation runs completed"
		return report
	}

	report.Return95 = [2]float64{metrics.Percentile(returns, 0.05), metrics.Percentile(returns, 0.95)}
	report.Drawdown95 = [2]float64{metrics.Percentile(drawdowns, 0.05), metrics.Percentile(drawdowns, 0.95)}
	report.Sharpe95 = [2]float64{metrics.Percentile(sharpes, 0.05), metrics.Percentile(sharpes, 0.95)}
	report.ProbabilityOfProfit = float64(profitable) / float64(report.Completed)

	// tailRatio = p95 / |p5|; a zero p5 resolves to the 0 sentinel.
	if p5 := report.Return95[0]; p5 != 0 {
		report.TailRatio = report.Return95[1] / math.Abs(p5)
	}

	t.logf("monte carlo: %d/%d runs, p(profit)=%.2f return95=[%.2f, %.2f]",
		report.Completed, runs, report.ProbabilityOfProfit, report.Return95[0], report.Return95[1])

	return report
}

// monteCarloRun executes one permuted simulation.
func (t *Tester) monteCarloRun(ctx context.Context, bars []*domain.Bar, source signal.Source, cfg domain.Config, seed int64) mcRunResult {
	if ctx.Err() != nil {
		return mcRunResult{}
	}

	rng := rand.New(rand.NewSource(seed))
	permuted := make([]*domain.Bar, len(bars))
	copy(permuted, bars)
	rng.Shuffle(len(permuted), func(i, j int) {
		permuted[i], permuted[j] = permuted[j], permuted[i]
	})

	trades, err := t.sim.Simulate(ctx, permuted, source, cfg)
	if err != nil {
		return mcRunResult{}
	}

	m := metrics.Analyze(trades, equity.BuildCurve(trades, cfg.InitialCapital), cfg)
	return mcRunResult{
		totalReturn: m.TotalReturnPct,
		maxDrawdown: m.MaxDrawdown,
		sharpe:      m.SharpeRatio,
		completed:   true,
	}
}
