package signal

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"trading-signal-lab/internal/domain"
)

// signalCSVColumns is the fixed column layout:
// timestamp_ms,direction,confidence,stop_loss,take_profit
const signalCSVColumns = 5

// TimestampSource serves pre-generated signals keyed by bar timestamp.
// Keying by timestamp rather than bar index keeps signals aligned when
// the run window filters the bar series. Read-only after construction,
// so safe for concurrent use.
type TimestampSource struct {
	signals map[int64]*domain.Signal
}

// NewTimestampSource creates a source over pre-generated signals.
func NewTimestampSource(signals map[int64]*domain.Signal) *TimestampSource {
	return &TimestampSource{signals: signals}
}

// Signal implements Source.
func (s *TimestampSource) Signal(_ context.Context, _, _ string, bar *domain.Bar, _ int) (*domain.Signal, error) {
	return s.signals[bar.Timestamp], nil
}

// LoadSignalsCSV reads a signal file into a timestamp-keyed source.
func LoadSignalsCSV(path string) (*TimestampSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open signal file: %w", err)
	}
	defer f.Close()
	return ReadSignalsCSV(f)
}

// ReadSignalsCSV parses signal rows from CSV with a header row. Layout:
// timestamp_ms,direction,confidence,stop_loss,take_profit. A duplicate
// timestamp is an error; only one signal can fire per bar.
func ReadSignalsCSV(r io.Reader) (*TimestampSource, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = signalCSVColumns

	// Header
	if _, err := cr.Read(); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty signal csv")
		}
		return nil, fmt.Errorf("read signal csv header: %w", err)
	}

	signals := make(map[int64]*domain.Signal)
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("read signal csv line %d: %w", line, err)
		}

		ts, sig, err := parseSignalRecord(record)
		if err != nil {
			return nil, fmt.Errorf("signal csv line %d: %w", line, err)
		}
		if _, ok := signals[ts]; ok {
			return nil, fmt.Errorf("signal csv line %d: duplicate timestamp %d", line, ts)
		}
		signals[ts] = sig
	}

	return NewTimestampSource(signals), nil
}

func parseSignalRecord(record []string) (int64, *domain.Signal, error) {
	ts, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
	if err != nil {
		return 0, nil, fmt.Errorf("parse timestamp %q: %w", record[0], err)
	}

	var direction domain.Direction
	switch strings.ToUpper(strings.TrimSpace(record[1])) {
	case string(domain.DirectionLong):
		direction = domain.DirectionLong
	case string(domain.DirectionShort):
		direction = domain.DirectionShort
	default:
		return 0, nil, fmt.Errorf("invalid direction %q", record[1])
	}

	fields := [3]float64{}
	names := [3]string{"confidence", "stop_loss", "take_profit"}
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i+2]), 64)
		if err != nil {
			return 0, nil, fmt.Errorf("parse %s %q: %w", names[i], record[i+2], err)
		}
		fields[i] = v
	}

	return ts, &domain.Signal{
		Direction:  direction,
		Confidence: fields[0],
		StopLoss:   fields[1],
		TakeProfit: fields[2],
	}, nil
}

var _ Source = (*TimestampSource)(nil)
