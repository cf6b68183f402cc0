// Package strategy provides the strategy registry boundary. The registry
// supplies the per-strategy maximum holding period used for TIME_EXIT;
// strategy catalogs themselves live outside the engine.
package strategy

import "sync"

// DefaultMaxHoldingHours is used for strategies not present in the registry.
const DefaultMaxHoldingHours = 24

// Registry supplies per-strategy holding limits.
type Registry interface {
	// MaxHoldingHours returns the maximum holding time in hours for the
	// strategy. Unknown strategies fall back to DefaultMaxHoldingHours.
	MaxHoldingHours(strategyID string) int
}

// StaticRegistry is an in-memory Registry backed by a fixed catalog.
type StaticRegistry struct {
	mu    sync.RWMutex
	hours map[string]int
}

// NewStaticRegistry creates a registry from a strategy -> holding-hours map.
func NewStaticRegistry(hours map[string]int) *StaticRegistry {
	m := make(map[string]int, len(hours))
	for k, v := range hours {
		m[k] = v
	}
	return &StaticRegistry{hours: m}
}

// DefaultRegistry returns a registry with the stock strategy catalog.
func DefaultRegistry() *StaticRegistry {
	return NewStaticRegistry(map[string]int{
		"scalping":    4,
		"intraday":    8,
		"swing":       72,
		"position":    168,
		"ai-adaptive": 24,
		"mean-revert": 12,
		"momentum":    48,
	})
}

// MaxHoldingHours implements Registry.
func (r *StaticRegistry) MaxHoldingHours(strategyID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if h, ok := r.hours[strategyID]; ok && h > 0 {
		return h
	}
	return DefaultMaxHoldingHours
}

// Register adds or replaces a strategy holding limit.
func (r *StaticRegistry) Register(strategyID string, hours int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hours[strategyID] = hours
}

// Ensure StaticRegistry implements Registry
var _ Registry = (*StaticRegistry)(nil)
