// Package simulation drives the bar-by-bar trade simulation. The simulator
// is logically single-threaded and strictly sequential in simulated time:
// bar i+1 is never evaluated before bar i is fully resolved, because
// position sizing and capital state carry forward.
package simulation

import (
	"context"
	"log"
	"math"
	"time"

	"trading-signal-lab/internal/domain"
	"trading-signal-lab/internal/idhash"
	"trading-signal-lab/internal/observability"
	"trading-signal-lab/internal/signal"
	"trading-signal-lab/internal/strategy"
)

// Simulator opens and closes positions against an injected signal source,
// producing an ordered trade list. It performs no I/O of its own; anything
// slow or remote lives inside the signal source.
type Simulator struct {
	registry strategy.Registry
	logger   *log.Logger // nil = silent
}

// New creates a Simulator. A nil registry falls back to the default catalog.
func New(registry strategy.Registry, logger *log.Logger) *Simulator {
	if registry == nil {
		registry = strategy.DefaultRegistry()
	}
	return &Simulator{registry: registry, logger: logger}
}

// runState is the per-run mutable simulation state. Each run owns an
// independent copy, so concurrent runs never share capital or positions.
type runState struct {
	cfg           domain.Config
	maxHoldBars   int
	sizingCapital float64
	openPositions []*domain.Position
	trades        []*domain.Trade
}

// Simulate runs the full simulation over the bar series.
// Per bar i it awaits a signal for bars[i], fills accepted signals at
// bars[i+1]'s open adjusted by slippage against the trader, and evaluates
// exits for open positions against bars[i+1] in fixed priority
// STOP_LOSS > TAKE_PROFIT > TIME_EXIT. A signal source error for one bar
// degrades to "no signal" for that bar only. At the end of data any
// still-open position is force-closed at the final close with TIME_EXIT.
func (s *Simulator) Simulate(ctx context.Context, bars []*domain.Bar, source signal.Source, cfg domain.Config) ([]*domain.Trade, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(bars) < 2 {
		// Too short to fill anything: the zero-trade result stands in for
		// a degenerate series, never an error.
		return []*domain.Trade{}, nil
	}

	st := &runState{
		cfg:           cfg,
		maxHoldBars:   s.maxHoldingBars(cfg),
		sizingCapital: cfg.InitialCapital,
		openPositions: make([]*domain.Position, 0, cfg.MaxPositions),
		trades:        make([]*domain.Trade, 0),
	}

	for i := 0; i < len(bars)-1; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		next := bars[i+1]

		// Exits for positions opened on earlier bars come first; a position
		// filled on next opens its exit window on the following iteration.
		s.evaluateExits(st, next, i+1)

		sigStart := time.Now()
		sig, err := source.Signal(ctx, cfg.StrategyID, cfg.Symbol, bars[i], i)
		observability.RecordSignalLatency(time.Since(sigStart).Seconds())
		if err != nil {
			// Isolated to this bar: log and continue as "no signal".
			s.logf("signal source error at bar %d: %v", i, err)
			observability.RecordSignalError()
			continue
		}
		if sig == nil {
			continue
		}
		if len(st.openPositions) >= cfg.MaxPositions {
			continue
		}

		s.openPosition(st, sig, next, i+1)
	}

	// Force close whatever is left at the final bar.
	last := bars[len(bars)-1]
	for _, pos := range st.openPositions {
		s.closePosition(st, pos, last, last.Close, domain.ExitReasonTimeExit, len(bars)-1)
	}
	st.openPositions = st.openPositions[:0]

	return st.trades, nil
}

// maxHoldingBars converts the strategy's holding limit in hours to a bar
// count using the configured bar interval.
func (s *Simulator) maxHoldingBars(cfg domain.Config) int {
	hours := s.registry.MaxHoldingHours(cfg.StrategyID)
	interval := cfg.BarIntervalHours
	if interval <= 0 {
		interval = 1
	}
	bars := int(math.Ceil(float64(hours) / interval))
	if bars < 1 {
		bars = 1
	}
	return bars
}

// openPosition sizes and fills a new position at the fill bar's open.
func (s *Simulator) openPosition(st *runState, sig *domain.Signal, fillBar *domain.Bar, fillIndex int) {
	// Slippage works against the trader: long pays up, short fills down.
	entryPrice := fillBar.Open * (1 + sig.Direction.Sign()*st.cfg.SlippagePct)

	stopDistance := math.Abs(entryPrice - sig.StopLoss)
	if stopDistance == 0 {
		// Zero stop distance would mean unbounded size; no position opens.
		s.logf("zero stop distance at bar %d, skipping signal", fillIndex)
		return
	}

	quantity := math.Floor(st.sizingCapital * st.cfg.RiskPerTrade / stopDistance)
	if quantity <= 0 {
		return
	}

	pos := &domain.Position{
		PositionID: idhash.ComputeTradeID(st.cfg.Symbol, st.cfg.StrategyID,
			string(sig.Direction), fillBar.Timestamp, fillIndex),
		Symbol:        st.cfg.Symbol,
		StrategyID:    st.cfg.StrategyID,
		Direction:     sig.Direction,
		EntryTime:     fillBar.Timestamp,
		EntryPrice:    entryPrice,
		Quantity:      quantity,
		StopLoss:      sig.StopLoss,
		TakeProfit:    sig.TakeProfit,
		Confidence:    sig.Confidence,
		EntryBarIndex: fillIndex,
	}
	st.openPositions = append(st.openPositions, pos)

	s.logf("opened %s position at bar %d: entry=%.5f qty=%.0f stop=%.5f target=%.5f",
		pos.Direction, fillIndex, pos.EntryPrice, pos.Quantity, pos.StopLoss, pos.TakeProfit)
}

// evaluateExits checks every open position against the bar in fixed
// priority STOP_LOSS > TAKE_PROFIT > TIME_EXIT. When both stop and target
// would trigger on the same bar, STOP_LOSS wins; this is a deliberate
// conservative policy, not an artifact of evaluation order.
func (s *Simulator) evaluateExits(st *runState, bar *domain.Bar, barIndex int) {
	remaining := st.openPositions[:0]
	for _, pos := range st.openPositions {
		price, reason, exited := s.exitFor(st, pos, bar, barIndex)
		if exited {
			s.closePosition(st, pos, bar, price, reason, barIndex)
			continue
		}
		remaining = append(remaining, pos)
	}
	st.openPositions = remaining
}

// exitFor returns the exit price and reason for a position on this bar,
// or exited=false when the position stays open.
func (s *Simulator) exitFor(st *runState, pos *domain.Position, bar *domain.Bar, barIndex int) (price float64, reason string, exited bool) {
	if pos.Direction == domain.DirectionLong {
		if bar.Low <= pos.StopLoss {
			return pos.StopLoss, domain.ExitReasonStopLoss, true
		}
		if bar.High >= pos.TakeProfit {
			return pos.TakeProfit, domain.ExitReasonTakeProfit, true
		}
	} else {
		if bar.High >= pos.StopLoss {
			return pos.StopLoss, domain.ExitReasonStopLoss, true
		}
		if bar.Low <= pos.TakeProfit {
			return pos.TakeProfit, domain.ExitReasonTakeProfit, true
		}
	}

	if barIndex-pos.EntryBarIndex > st.maxHoldBars {
		return bar.Close, domain.ExitReasonTimeExit, true
	}

	return 0, "", false
}

// closePosition materializes a position into a Trade and updates capital.
func (s *Simulator) closePosition(st *runState, pos *domain.Position, bar *domain.Bar, exitPrice float64, reason string, barIndex int) {
	commission := 2 * st.cfg.Commission
	slippageCost := math.Abs(exitPrice-bar.Close) * pos.Quantity
	pnl := pos.Direction.Sign()*(exitPrice-pos.EntryPrice)*pos.Quantity - commission - slippageCost

	positionValue := pos.EntryPrice * pos.Quantity
	pnlPct := 0.0
	if positionValue != 0 {
		pnlPct = pnl / positionValue * 100
	}

	trade := &domain.Trade{
		TradeID:       pos.PositionID,
		Symbol:        pos.Symbol,
		StrategyID:    pos.StrategyID,
		Direction:     pos.Direction,
		EntryTime:     pos.EntryTime,
		EntryPrice:    pos.EntryPrice,
		Quantity:      pos.Quantity,
		StopLoss:      pos.StopLoss,
		TakeProfit:    pos.TakeProfit,
		Confidence:    pos.Confidence,
		EntryBarIndex: pos.EntryBarIndex,
		ExitTime:      bar.Timestamp,
		ExitPrice:     exitPrice,
		ExitBarIndex:  barIndex,
		ExitReason:    reason,
		Commission:    commission,
		SlippageCost:  slippageCost,
		PnL:           pnl,
		PnLPct:        pnlPct,
		HoldingBars:   barIndex - pos.EntryBarIndex,
		HoldingMs:     bar.Timestamp - pos.EntryTime,
	}
	st.trades = append(st.trades, trade)

	// Sizing capital absorbs realized pnl only when reinvesting; otherwise
	// future positions are always sized off the initial capital.
	if st.cfg.ReinvestProfits {
		st.sizingCapital += pnl
	}

	s.logf("closed %s position at bar %d: exit=%.5f reason=%s pnl=%.2f",
		pos.Direction, barIndex, exitPrice, reason, pnl)
}

func (s *Simulator) logf(format string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Printf(format, args...)
	}
}
