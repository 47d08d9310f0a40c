package engine

import (
	"io"
	"os"
	"time"

	"tradebot/types"

	"github.com/shopspring/decimal"
)

type InstrumentConfig struct {
	instrument types.Instrument
	interval   types.Interval
	start      time.Time
	end        time.Time
	candles    []types.Candle
}

func NewInstrumentConfigs(instruments ...*InstrumentConfig) []*InstrumentConfig {
	return instruments
}

// NewInstrumentConfig replays instrument candles of the given interval in
// [start, end). A zero end means up to the latest candle.
func NewInstrumentConfig(instrument types.Instrument, interval types.Interval, start, end time.Time) *InstrumentConfig {
	return &InstrumentConfig{
		instrument: instrument,
		interval:   interval,
		start:      start,
		end:        end,
	}
}

type PortfolioConfig struct {
	initialCash decimal.Decimal
	// drawdownLiquidation is the fall from peak value, as a fraction, that
	// liquidates every position. Zero disables it.
	drawdownLiquidation decimal.Decimal
}

func NewPortfolioConfig(initialCash, drawdownLiquidation decimal.Decimal) *PortfolioConfig {
	return &PortfolioConfig{
		initialCash:         initialCash,
		drawdownLiquidation: drawdownLiquidation,
	}
}

type ReportingConfig struct {
	printReport  bool
	tradesFile   string
	showProgress bool
	out          io.Writer
}

// NewReportingConfig prints the report to stdout when printReport is set and
// writes every trade record to tradesFile unless it is empty.
func NewReportingConfig(printReport bool, tradesFile string, showProgress bool) *ReportingConfig {
	return &ReportingConfig{
		printReport:  printReport,
		tradesFile:   tradesFile,
		showProgress: showProgress,
		out:          os.Stdout,
	}
}
