// Package signal defines the injected signal-source boundary. The engine
// depends only on this side-effect-free interface; whatever model or
// heuristic produces signals lives behind it.
package signal

import (
	"context"

	"trading-signal-lab/internal/domain"
)

// Source produces entry signals for a strategy on a given bar. A source
// may be backed by a remote model; the simulator awaits each call before
// the bar is considered processed, so implementations are free to block.
// Implementations must be safe for concurrent use: robustness analyses
// run multiple simulations against the same source in parallel.
type Source interface {
	// Signal returns an entry signal for the bar, or nil when there is no
	// signal. An error is isolated to this bar only: the simulator logs it
	// and continues as if no signal was returned.
	Signal(ctx context.Context, strategyID, symbol string, bar *domain.Bar, barIndex int) (*domain.Signal, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, strategyID, symbol string, bar *domain.Bar, barIndex int) (*domain.Signal, error)

// Signal implements Source.
func (f SourceFunc) Signal(ctx context.Context, strategyID, symbol string, bar *domain.Bar, barIndex int) (*domain.Signal, error) {
	return f(ctx, strategyID, symbol, bar, barIndex)
}
