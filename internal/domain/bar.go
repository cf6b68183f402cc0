package domain

import (
	"errors"
	"fmt"
	"time"
)

// Bar represents one OHLCV sample for a fixed time interval.
// Bars are immutable once loaded.
type Bar struct {
	Timestamp int64 // Unix ms
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Time returns the bar timestamp as time.Time.
func (b *Bar) Time() time.Time {
	return time.UnixMilli(b.Timestamp)
}

// Bar series errors.
var (
	// ErrUnorderedBars is returned when a bar series is not strictly
	// ascending in time.
	ErrUnorderedBars = errors.New("bar series is not strictly ascending in time")
)

// ValidateBars checks that a bar series is strictly ascending in time
// with no duplicate timestamps. The engine performs no freshness checks
// beyond ordering.
func ValidateBars(bars []*Bar) error {
	for i := 1; i < len(bars); i++ {
		if bars[i].Timestamp <= bars[i-1].Timestamp {
			return fmt.Errorf("%w: bars[%d].Timestamp=%d, bars[%d].Timestamp=%d",
				ErrUnorderedBars, i-1, bars[i-1].Timestamp, i, bars[i].Timestamp)
		}
	}
	return nil
}

// FilterBarsByTime returns the bars within [start, end] (inclusive).
// Zero bounds are unbounded on that side.
func FilterBarsByTime(bars []*Bar, start, end int64) []*Bar {
	filtered := make([]*Bar, 0, len(bars))
	for _, b := range bars {
		if start != 0 && b.Timestamp < start {
			continue
		}
		if end != 0 && b.Timestamp > end {
			continue
		}
		filtered = append(filtered, b)
	}
	return filtered
}
