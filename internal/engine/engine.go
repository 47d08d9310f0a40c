package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradebot/types"

	"github.com/rs/zerolog"
)

var ErrNoInstruments = errors.New("no instruments configured")

// HistoricalSource serves ordered candles for one ticker in [start, end).
type HistoricalSource interface {
	GetCandles(ctx context.Context, ticker string, interval types.Interval, start, end time.Time) ([]types.Candle, error)
}

type Engine struct {
	source          HistoricalSource
	instruments     []*InstrumentConfig
	strategy        decider
	portfolioConfig *PortfolioConfig
	reportingConfig *ReportingConfig
	log             zerolog.Logger
}

// Result is everything a finished backtest produced.
type Result struct {
	Records []types.TradeRecord
	Report  *Report
	Final   types.PortfolioView
}

func NewEngine(
	instruments []*InstrumentConfig,
	strat decider,
	source HistoricalSource,
	portfolioConfig *PortfolioConfig,
	reportingConfig *ReportingConfig,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		source:          source,
		instruments:     instruments,
		strategy:        strat,
		portfolioConfig: portfolioConfig,
		reportingConfig: reportingConfig,
		log:             log,
	}
}

func (e *Engine) Run(ctx context.Context) (*Result, error) {
	if len(e.instruments) == 0 {
		return nil, ErrNoInstruments
	}
	// Load the data
	if err := e.loadData(ctx); err != nil {
		return nil, err
	}

	bt := newBacktester(e.instruments, e.portfolioConfig, e.strategy, e.reportingConfig.showProgress, e.log)
	records, err := bt.run(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Records: records,
		Report:  generateReport(e.portfolioConfig.initialCash, records),
		Final:   bt.portfolio.GetPortfolioSnapshot(lastTime(records)),
	}

	if e.reportingConfig.printReport {
		printReport(e.reportingConfig.out, result.Report)
	}
	if e.reportingConfig.tradesFile != "" {
		if err := writeTradesCSVFile(e.reportingConfig.tradesFile, records); err != nil {
			return result, err
		}
		e.log.Info().Str("path", e.reportingConfig.tradesFile).Int("records", len(records)).Msg("trade history written")
	}
	return result, nil
}

func (e *Engine) loadData(ctx context.Context) error {
	for _, inst := range e.instruments {
		cs, err := e.source.GetCandles(ctx, inst.instrument.Symbol, inst.interval, inst.start, inst.end)
		if err != nil {
			return fmt.Errorf("load %s: %w", inst.instrument.Symbol, err)
		}
		if _, err := types.SeriesFromCandles(inst.instrument.Symbol, cs); err != nil {
			return fmt.Errorf("load %s: %w", inst.instrument.Symbol, err)
		}
		inst.candles = cs
		e.log.Info().
			Str("instrument", inst.instrument.Symbol).
			Int("candles", len(cs)).
			Msg("historical data loaded")
	}
	return nil
}

func lastTime(records []types.TradeRecord) time.Time {
	if len(records) == 0 {
		return time.Time{}
	}
	return records[len(records)-1].Time
}
