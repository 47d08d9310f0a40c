package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"tradebot/types"

	"github.com/shopspring/decimal"
)

var ErrMissingColumn = errors.New("missing column")

// Column names as written by the daily time series export; plain names are
// accepted too.
var csvColumns = map[string][]string{
	"open":   {"1. open", "open"},
	"high":   {"2. high", "high"},
	"low":    {"3. low", "low"},
	"close":  {"4. close", "close"},
	"volume": {"5. volume", "volume"},
}

var csvDateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

// CSVSource reads daily candles from historical_data_<BASE>.csv files in dir.
type CSVSource struct {
	dir string
}

func NewCSVSource(dir string) *CSVSource {
	return &CSVSource{dir: dir}
}

func (s *CSVSource) path(ticker string) string {
	base := ticker
	if b, _, err := types.ParseSymbol(ticker); err == nil {
		base = b
	}
	return filepath.Join(s.dir, fmt.Sprintf("historical_data_%s.csv", base))
}

// GetCandles returns the candles dated in [start, end), oldest first. A zero
// end means no upper bound.
func (s *CSVSource) GetCandles(ctx context.Context, ticker string, interval types.Interval, start, end time.Time) ([]types.Candle, error) {
	if interval != types.Day {
		return nil, fmt.Errorf("%s: %w", interval, ErrIntervalNotSupported)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := s.path(ticker)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	candles, err := readCandlesCSV(f, ticker)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	out := candles[:0]
	for _, c := range candles {
		if c.Timestamp.Before(start) || (!end.IsZero() && !c.Timestamp.Before(end)) {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: %w", ticker, ErrNoCandles)
	}
	return out, nil
}

func readCandlesCSV(r io.Reader, ticker string) ([]types.Candle, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	dateCol, ok := index["date"]
	if !ok {
		return nil, fmt.Errorf("date: %w", ErrMissingColumn)
	}
	cols := make(map[string]int, len(csvColumns))
	for field, names := range csvColumns {
		for _, name := range names {
			if i, ok := index[name]; ok {
				cols[field] = i
				break
			}
		}
	}
	if _, ok := cols["close"]; !ok {
		return nil, fmt.Errorf("close: %w", ErrMissingColumn)
	}

	var candles []types.Candle
	line := 1
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		ts, err := parseDate(record[dateCol])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		c := types.Candle{Ticker: ticker, Interval: types.Day, Timestamp: ts}
		for field, i := range cols {
			v, err := decimal.NewFromString(strings.TrimSpace(record[i]))
			if err != nil {
				return nil, fmt.Errorf("line %d %s: %w", line, field, err)
			}
			switch field {
			case "open":
				c.Open = v
			case "high":
				c.High = v
			case "low":
				c.Low = v
			case "close":
				c.Close = v
			case "volume":
				c.Volume = v
			}
		}
		candles = append(candles, c)
	}

	// Exports are usually newest first.
	sort.SliceStable(candles, func(i, j int) bool { return candles[i].Timestamp.Before(candles[j].Timestamp) })
	return candles, nil
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range csvDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
