package marketdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"trading-signal-lab/internal/domain"
)

// csvColumns is the expected header of a bar export:
// timestamp,open,high,low,close,volume. Timestamp is Unix ms.
const csvColumns = 6

// LoadBarsCSV reads an OHLCV bar series from a CSV file.
func LoadBarsCSV(path string) ([]*domain.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bars csv: %w", err)
	}
	defer f.Close()

	bars, err := ReadBarsCSV(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return bars, nil
}

// ReadBarsCSV parses bars from CSV content with a header row. Bars are
// returned in file order; ordering is validated by the caller, not here.
func ReadBarsCSV(r io.Reader) ([]*domain.Bar, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = csvColumns

	// Skip header
	if _, err := reader.Read(); err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("empty csv")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}

	var bars []*domain.Bar
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		bar, err := parseBarRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, bar)
	}

	return bars, nil
}

func parseBarRecord(record []string) (*domain.Bar, error) {
	ts, err := strconv.ParseInt(record[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp %q: %w", record[0], err)
	}

	fields := make([]float64, 5)
	names := [5]string{"open", "high", "low", "close", "volume"}
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(record[i+1], 64)
		if err != nil {
			return nil, fmt.Errorf("parse %s %q: %w", names[i], record[i+1], err)
		}
		fields[i] = v
	}

	return &domain.Bar{
		Timestamp: ts,
		Open:      fields[0],
		High:      fields[1],
		Low:       fields[2],
		Close:     fields[3],
		Volume:    fields[4],
	}, nil
}
