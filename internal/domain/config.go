package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned when configuration validation fails.
// Invalid configs are rejected eagerly, before any simulation runs.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds all parameters for one backtest run.
type Config struct {
	Symbol     string
	StrategyID string

	// Time window (Unix ms, 0 = unbounded)
	StartTime int64
	EndTime   int64

	// Capital and costs
	InitialCapital float64
	Commission     float64 // flat fee per trade side; a round trip costs 2x
	SlippagePct    float64 // fractional execution-price deviation, e.g. 0.0001
	RiskPerTrade   float64 // fraction of capital risked per position
	ReinvestProfits bool

	// Position limits
	MaxPositions int

	// Robustness
	OutOfSamplePct float64 // [0, 100): share of bars held out for validation
	MonteCarloRuns int
	MonteCarloSeed int64

	// Bar interval in hours, used as the holding-period proxy for TIME_EXIT.
	BarIntervalHours float64

	// Annual risk-free rate used in Sharpe computation.
	RiskFreeRate float64
}

// DefaultConfig returns a Config with standard retail defaults.
func DefaultConfig(symbol, strategyID string) Config {
	return Config{
		Symbol:           symbol,
		StrategyID:       strategyID,
		InitialCapital:   10000,
		Commission:       2,
		SlippagePct:      0.0001,
		RiskPerTrade:     0.02,
		MaxPositions:     1,
		OutOfSamplePct:   20,
		MonteCarloRuns:   100,
		BarIntervalHours: 1,
		RiskFreeRate:     0.02,
	}
}

// Validate checks config invariants. All violations wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidConfig)
	}
	if c.StrategyID == "" {
		return fmt.Errorf("%w: strategy id is required", ErrInvalidConfig)
	}
	if c.InitialCapital <= 0 {
		return fmt.Errorf("%w: initial capital must be positive, got %f", ErrInvalidConfig, c.InitialCapital)
	}
	if c.RiskPerTrade <= 0 {
		return fmt.Errorf("%w: risk per trade must be positive, got %f", ErrInvalidConfig, c.RiskPerTrade)
	}
	if c.MaxPositions < 1 {
		return fmt.Errorf("%w: max positions must be >= 1, got %d", ErrInvalidConfig, c.MaxPositions)
	}
	if c.OutOfSamplePct < 0 || c.OutOfSamplePct >= 100 {
		return fmt.Errorf("%w: out-of-sample percentage must be in [0,100), got %f", ErrInvalidConfig, c.OutOfSamplePct)
	}
	if c.Commission < 0 {
		return fmt.Errorf("%w: commission must not be negative, got %f", ErrInvalidConfig, c.Commission)
	}
	if c.SlippagePct < 0 {
		return fmt.Errorf("%w: slippage must not be negative, got %f", ErrInvalidConfig, c.SlippagePct)
	}
	if c.StartTime != 0 && c.EndTime != 0 && c.EndTime < c.StartTime {
		return fmt.Errorf("%w: end time %d before start time %d", ErrInvalidConfig, c.EndTime, c.StartTime)
	}
	if c.BarIntervalHours < 0 {
		return fmt.Errorf("%w: bar interval must not be negative, got %f", ErrInvalidConfig, c.BarIntervalHours)
	}
	return nil
}
