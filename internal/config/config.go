// Package config loads the engine configuration from a YAML file. CLI
// flags override individual fields after loading; secrets (DSNs) may also
// come from the environment via the cmd mains.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"trading-signal-lab/internal/domain"
)

// Config is the top-level engine configuration.
type Config struct {
	// Storage backends. Empty DSN disables the backend.
	Storage struct {
		PostgresDSN   string `yaml:"postgres_dsn"`
		ClickHouseDSN string `yaml:"clickhouse_dsn"`
	} `yaml:"storage"`

	// Bridge is the upstream market data feed.
	Bridge struct {
		WSURL string `yaml:"ws_url"`
	} `yaml:"bridge"`

	// Server configures the HTTP API surface.
	Server struct {
		Addr string `yaml:"addr"` // default ":8080"
	} `yaml:"server"`

	// Engine holds per-run simulation defaults. Request-level values
	// override these per backtest.
	Engine EngineConfig `yaml:"engine"`
}

// EngineConfig mirrors the per-run simulation settings.
type EngineConfig struct {
	InitialCapital   float64 `yaml:"initial_capital"`    // default 10000
	Commission       float64 `yaml:"commission"`         // per side, default 2
	SlippagePct      float64 `yaml:"slippage_pct"`       // default 0.0001
	RiskPerTrade     float64 `yaml:"risk_per_trade"`     // default 0.02
	ReinvestProfits  bool    `yaml:"reinvest_profits"`
	MaxPositions     int     `yaml:"max_positions"`      // default 1
	OutOfSamplePct   float64 `yaml:"out_of_sample_pct"`  // default 20
	MonteCarloRuns   int     `yaml:"monte_carlo_runs"`   // default 100
	MonteCarloSeed   int64   `yaml:"monte_carlo_seed"`   // 0 = time-based
	BarIntervalHours float64 `yaml:"bar_interval_hours"` // default 1
	RiskFreeRate     float64 `yaml:"risk_free_rate"`     // annual, default 0.02
}

// LoadConfig reads and validates a YAML config file.
func LoadConfig(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return LoadConfigFromBytes(data)
}

// LoadConfigFromBytes parses config from raw YAML. Used by tests.
func LoadConfigFromBytes(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration with every default applied and no
// storage or bridge endpoints set.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}

	defaults := domain.DefaultConfig("", "")
	e := &c.Engine
	if e.InitialCapital == 0 {
		e.InitialCapital = defaults.InitialCapital
	}
	if e.Commission == 0 {
		e.Commission = defaults.Commission
	}
	if e.SlippagePct == 0 {
		e.SlippagePct = defaults.SlippagePct
	}
	if e.RiskPerTrade == 0 {
		e.RiskPerTrade = defaults.RiskPerTrade
	}
	if e.MaxPositions == 0 {
		e.MaxPositions = defaults.MaxPositions
	}
	if e.OutOfSamplePct == 0 {
		e.OutOfSamplePct = defaults.OutOfSamplePct
	}
	if e.MonteCarloRuns == 0 {
		e.MonteCarloRuns = defaults.MonteCarloRuns
	}
	if e.BarIntervalHours == 0 {
		e.BarIntervalHours = defaults.BarIntervalHours
	}
	if e.RiskFreeRate == 0 {
		e.RiskFreeRate = defaults.RiskFreeRate
	}
}

// Validate checks config invariants. Engine settings are checked by
// building a throwaway run config, so file-level and request-level
// validation cannot drift apart.
func (c *Config) Validate() error {
	probe := c.Engine.RunConfig("PROBE", "probe")
	if err := probe.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	return nil
}

// RunConfig builds a per-run simulation config for one symbol and
// strategy from the engine defaults.
func (e EngineConfig) RunConfig(symbol, strategyID string) domain.Config {
	return domain.Config{
		Symbol:           symbol,
		StrategyID:       strategyID,
		InitialCapital:   e.InitialCapital,
		Commission:       e.Commission,
		SlippagePct:      e.SlippagePct,
		RiskPerTrade:     e.RiskPerTrade,
		ReinvestProfits:  e.ReinvestProfits,
		MaxPositions:     e.MaxPositions,
		OutOfSamplePct:   e.OutOfSamplePct,
		MonteCarloRuns:   e.MonteCarloRuns,
		MonteCarloSeed:   e.MonteCarloSeed,
		BarIntervalHours: e.BarIntervalHours,
		RiskFreeRate:     e.RiskFreeRate,
	}
}
