package engine

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tradebot/internal/strategy"
	"tradebot/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type mockSource struct {
	candles map[string][]types.Candle
	err     error
	calls   []string
}

func (m *mockSource) GetCandles(ctx context.Context, ticker string, interval types.Interval, start, end time.Time) ([]types.Candle, error) {
	m.calls = append(m.calls, ticker)
	if m.err != nil {
		return nil, m.err
	}
	return m.candles[ticker], nil
}

func mockEngine(t *testing.T, source HistoricalSource, strat decider, tradesFile string, out *bytes.Buffer) *Engine {
	reporting := NewReportingConfig(true, tradesFile, false)
	reporting.out = out
	instruments := NewInstrumentConfigs(
		NewInstrumentConfig(mustInstrument(t, "BTC-GBP"), types.Day, testStart, time.Time{}),
		NewInstrumentConfig(mustInstrument(t, "ETH-GBP"), types.Day, testStart, time.Time{}),
	)
	return NewEngine(instruments, strat, source,
		NewPortfolioConfig(decimal.NewFromInt(50000), decimal.RequireFromString("0.1")),
		reporting, zerolog.Nop())
}

func TestEngine_Run(t *testing.T) {
	source := &mockSource{candles: map[string][]types.Candle{
		"BTC-GBP": mockCandles("BTC-GBP", 0, "90", "100", "110"),
		"ETH-GBP": mockCandles("ETH-GBP", 1, "20", "20"),
	}}
	strat := &scriptedDecider{
		minSamples: 1,
		script: map[string]map[int]strategy.Decision{
			"BTC-GBP": {2: buyBase("10"), 3: sellBase("10")},
		},
	}
	tradesFile := filepath.Join(t.TempDir(), "trades.csv")
	var out bytes.Buffer

	result, err := mockEngine(t, source, strat, tradesFile, &out).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if strings.Join(source.calls, ",") != "BTC-GBP,ETH-GBP" {
		t.Errorf("source calls = %v", source.calls)
	}
	if len(result.Records) != 5 {
		t.Fatalf("got %d records, want 5", len(result.Records))
	}
	if !result.Final.Cash.Equal(decimal.NewFromInt(50100)) || len(result.Final.Positions) != 0 {
		t.Errorf("final portfolio = %s %v, want 50100 and no positions", result.Final.Cash, result.Final.Positions)
	}
	if !result.Report.TotalReturnPercent.Equal(decimal.RequireFromString("0.2")) {
		t.Errorf("total return = %s, want 0.2", result.Report.TotalReturnPercent)
	}
	if !strings.Contains(out.String(), "Backtest Report") {
		t.Errorf("report not printed:\n%s", out.String())
	}

	f, err := os.Open(tradesFile)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != len(result.Records)+1 {
		t.Errorf("trades file has %d rows, want %d", len(rows), len(result.Records)+1)
	}
}

func TestEngine_RunErrors(t *testing.T) {
	loadErr := errors.New("connection refused")

	_, err := mockEngine(t, &mockSource{err: loadErr}, &scriptedDecider{minSamples: 1}, "", &bytes.Buffer{}).Run(context.Background())
	if !errors.Is(err, loadErr) {
		t.Errorf("Run() error = %v, want %v", err, loadErr)
	}

	e := NewEngine(nil, &scriptedDecider{}, &mockSource{}, NewPortfolioConfig(decimal.NewFromInt(1), decimal.Zero), NewReportingConfig(false, "", false), zerolog.Nop())
	if _, err := e.Run(context.Background()); !errors.Is(err, ErrNoInstruments) {
		t.Errorf("Run() error = %v, want ErrNoInstruments", err)
	}
}

func TestEngine_RunRejectsUnorderedCandles(t *testing.T) {
	source := &mockSource{candles: map[string][]types.Candle{
		"BTC-GBP": {mockCandles("BTC-GBP", 1, "1")[0], mockCandles("BTC-GBP", 0, "1")[0]},
	}}
	_, err := mockEngine(t, source, &scriptedDecider{minSamples: 1}, "", &bytes.Buffer{}).Run(context.Background())
	if !errors.Is(err, types.ErrOutOfOrder) {
		t.Errorf("Run() error = %v, want ErrOutOfOrder", err)
	}
}
