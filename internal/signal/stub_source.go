package signal

import (
	"context"
	"sync"

	"trading-signal-lab/internal/domain"
)

// StubSource is a deterministic signal source for testing. It emits
// pre-configured signals at fixed bar indexes and records every request,
// so simulations driven by it are exactly reproducible. Safe for
// concurrent use, matching the Source contract.
type StubSource struct {
	signals map[int]*domain.Signal // keyed by bar index
	errs    map[int]error          // per-bar injected failures

	mu       sync.Mutex
	requests []int
}

// NewStubSource creates an empty stub source that never fires.
func NewStubSource() *StubSource {
	return &StubSource{
		signals: make(map[int]*domain.Signal),
		errs:    make(map[int]error),
	}
}

// EmitAt configures a signal to fire at the given bar index.
func (s *StubSource) EmitAt(barIndex int, sig *domain.Signal) *StubSource {
	s.signals[barIndex] = sig
	return s
}

// FailAt configures an error to be returned at the given bar index.
func (s *StubSource) FailAt(barIndex int, err error) *StubSource {
	s.errs[barIndex] = err
	return s
}

// Signal implements Source.
func (s *StubSource) Signal(_ context.Context, _, _ string, _ *domain.Bar, barIndex int) (*domain.Signal, error) {
	s.mu.Lock()
	s.requests = append(s.requests, barIndex)
	s.mu.Unlock()
	if err, ok := s.errs[barIndex]; ok {
		return nil, err
	}
	return s.signals[barIndex], nil
}

// Requests returns the bar indexes requested so far, in call order.
func (s *StubSource) Requests() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.requests...)
}

// Ensure StubSource implements Source
var _ Source = (*StubSource)(nil)
