package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"tradebot/internal/risk"
	"tradebot/internal/scoring"
	"tradebot/internal/sizing"
	"tradebot/internal/strategy"
	"tradebot/types"

	"github.com/rs/zerolog"
	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
)

const (
	ReasonDrawdown             = "drawdown"
	ReasonInsufficientData     = "insufficient_data"
	ReasonInsufficientCash     = "insufficient_cash"
	ReasonInsufficientPosition = "insufficient_position"
	ReasonZeroQuantity         = "zero_quantity"
)

// decider is the part of the strategy pipeline the replay drives.
type decider interface {
	Decide(in strategy.Input) (strategy.Decision, error)
	MinSamples() int
}

type instrumentState struct {
	instrument types.Instrument
	candles    []types.Candle
	series     *types.PriceSeries
	entry      risk.Entry
}

// replayStep points at one candle of one instrument.
type replayStep struct {
	instrument int
	index      int
	time       time.Time
}

type backtester struct {
	instruments     []*instrumentState
	portfolioConfig *PortfolioConfig
	strategy        decider
	portfolio       *portfolio
	peak            decimal.Decimal
	records         []types.TradeRecord
	showProgress    bool
	log             zerolog.Logger
}

func newBacktester(instruments []*InstrumentConfig, portfolioConfig *PortfolioConfig, strat decider, showProgress bool, log zerolog.Logger) *backtester {
	states := make([]*instrumentState, 0, len(instruments))
	for _, inst := range instruments {
		states = append(states, &instrumentState{
			instrument: inst.instrument,
			candles:    inst.candles,
			series:     types.NewPriceSeries(inst.instrument.Symbol),
		})
	}
	return &backtester{
		instruments:     states,
		portfolioConfig: portfolioConfig,
		strategy:        strat,
		portfolio:       newPortfolio(portfolioConfig.initialCash),
		peak:            portfolioConfig.initialCash,
		showProgress:    showProgress,
		log:             log,
	}
}

// run replays every candle once, in time order. Candles sharing a timestamp
// are replayed in the configured instrument order.
func (b *backtester) run(ctx context.Context) ([]types.TradeRecord, error) {
	steps := b.schedule()

	var bar *progressbar.ProgressBar
	if b.showProgress {
		bar = initProgressBar(len(steps))
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return b.records, err
		}
		if err := b.step(s); err != nil {
			return b.records, err
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	return b.records, nil
}

func (b *backtester) schedule() []replayStep {
	var steps []replayStep
	for i, inst := range b.instruments {
		for j, c := range inst.candles {
			steps = append(steps, replayStep{instrument: i, index: j, time: c.Timestamp})
		}
	}
	sort.SliceStable(steps, func(i, j int) bool {
		if !steps[i].time.Equal(steps[j].time) {
			return steps[i].time.Before(steps[j].time)
		}
		return steps[i].instrument < steps[j].instrument
	})
	return steps
}

func (b *backtester) step(s replayStep) error {
	inst := b.instruments[s.instrument]
	candle := inst.candles[s.index]
	symbol := inst.instrument.Symbol

	if err := inst.series.Append(types.Sample{Time: candle.Timestamp, Price: candle.Close}); err != nil {
		return err
	}
	b.portfolio.mark(symbol, candle.Close)
	if inst.series.Len() < b.strategy.MinSamples() {
		return nil
	}

	decision, decideErr := b.strategy.Decide(strategy.Input{
		Instrument: inst.instrument,
		Series:     inst.series,
		Cash:       b.portfolio.cash,
		Held:       b.portfolio.quantity(symbol),
		Entry:      inst.entry.Price(),
	})

	value := b.portfolio.value()
	if value.GreaterThan(b.peak) {
		b.peak = value
	}
	if b.drawdownBreached(value) {
		return b.liquidate(candle.Timestamp, value)
	}

	if decideErr != nil {
		if !errors.Is(decideErr, scoring.ErrInsufficientData) {
			return fmt.Errorf("decide %s at %s: %w", symbol, candle.Timestamp.Format(time.RFC3339), decideErr)
		}
		b.record(candle.Timestamp, symbol, candle.Close, types.DecisionHold, decimal.Zero, ReasonInsufficientData, 0)
		return nil
	}
	return b.apply(inst, candle, decision)
}

func (b *backtester) drawdownBreached(value decimal.Decimal) bool {
	threshold := b.portfolioConfig.drawdownLiquidation
	if !threshold.IsPositive() || len(b.portfolio.positions) == 0 {
		return false
	}
	floor := b.peak.Mul(decimal.NewFromInt(1).Sub(threshold))
	return value.LessThan(floor)
}

// liquidate sells every open position at its last marked price, in configured
// instrument order, and restarts peak tracking from the resulting value.
func (b *backtester) liquidate(t time.Time, value decimal.Decimal) error {
	b.log.Warn().
		Time("time", t).
		Str("value", value.String()).
		Str("peak", b.peak.String()).
		Msg("drawdown limit breached, liquidating")

	for _, inst := range b.instruments {
		symbol := inst.instrument.Symbol
		pos, ok := b.portfolio.positions[symbol]
		if !ok {
			continue
		}
		qty, price := pos.Quantity, pos.LastPrice
		if err := b.portfolio.sell(symbol, qty, price); err != nil {
			return err
		}
		inst.entry.Clear()
		b.record(t, symbol, price, types.DecisionSell, qty, ReasonDrawdown, 0)
	}
	b.peak = b.portfolio.value()
	return nil
}

func (b *backtester) apply(inst *instrumentState, candle types.Candle, d strategy.Decision) error {
	symbol := inst.instrument.Symbol
	price := candle.Close

	switch d.Action {
	case types.DecisionBuy:
		qty := sizing.ToBase(d.Amount, price, inst.instrument)
		if !qty.IsPositive() {
			b.record(candle.Timestamp, symbol, price, types.DecisionHold, decimal.Zero, ReasonZeroQuantity, d.Score)
			return nil
		}
		if b.portfolio.cash.LessThan(qty.Mul(price)) {
			b.record(candle.Timestamp, symbol, price, types.DecisionHold, decimal.Zero, ReasonInsufficientCash, d.Score)
			return nil
		}
		if err := b.portfolio.buy(symbol, qty, price); err != nil {
			return err
		}
		inst.entry.Record(price)
		b.record(candle.Timestamp, symbol, price, types.DecisionBuy, qty, d.Reason, d.Score)

	case types.DecisionSell:
		qty := sizing.ToBase(d.Amount, price, inst.instrument)
		if !qty.IsPositive() {
			b.record(candle.Timestamp, symbol, price, types.DecisionHold, decimal.Zero, ReasonZeroQuantity, d.Score)
			return nil
		}
		if b.portfolio.quantity(symbol).LessThan(qty) {
			b.record(candle.Timestamp, symbol, price, types.DecisionHold, decimal.Zero, ReasonInsufficientPosition, d.Score)
			return nil
		}
		if err := b.portfolio.sell(symbol, qty, price); err != nil {
			return err
		}
		if b.portfolio.quantity(symbol).IsZero() {
			inst.entry.Clear()
		}
		b.record(candle.Timestamp, symbol, price, types.DecisionSell, qty, d.Reason, d.Score)

	default:
		b.record(candle.Timestamp, symbol, price, types.DecisionHold, decimal.Zero, d.Reason, d.Score)
	}
	return nil
}

func (b *backtester) record(t time.Time, symbol string, price decimal.Decimal, decision types.Decision, qty decimal.Decimal, reason string, score float64) {
	b.records = append(b.records, types.TradeRecord{
		Time:           t,
		Instrument:     symbol,
		Price:          price,
		Decision:       decision,
		Quantity:       qty,
		Reason:         reason,
		Score:          score,
		CashAfter:      b.portfolio.cash,
		PositionsAfter: b.portfolio.quantities(),
		PortfolioValue: b.portfolio.value(),
	})
}

func initProgressBar(maxTicks int) *progressbar.ProgressBar {
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("Backtesting in progress..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
