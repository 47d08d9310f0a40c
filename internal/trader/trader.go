// Package trader runs the live collect, decide and sleep loop.
package trader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradebot/internal/feed"
	"tradebot/internal/gateway"
	"tradebot/internal/journal"
	"tradebot/internal/metrics"
	"tradebot/internal/risk"
	"tradebot/internal/scoring"
	"tradebot/internal/strategy"
	"tradebot/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var ErrNoInstruments = errors.New("no instruments configured")

type Config struct {
	CollectFor time.Duration
	SleepFor   time.Duration
	// QuoteCurrency is the balance buys are sized from.
	QuoteCurrency string
}

func DefaultConfig() Config {
	return Config{
		CollectFor:    60 * time.Second,
		SleepFor:      300 * time.Second,
		QuoteCurrency: "GBP",
	}
}

// instrument is all mutable state of one traded pair. Only the loop goroutine
// touches it.
type instrument struct {
	inst   types.Instrument
	series *types.PriceSeries
	entry  risk.Entry
	ids    *gateway.OrderIDs
}

type Deps struct {
	Feed     feed.Feed
	Gateway  gateway.Gateway
	Account  gateway.Account
	Strategy *strategy.Strategy
	Journal  journal.Journal
	// Observers see every tick after it is routed, for example a paper gateway marking prices.
	Observers []feed.Sink
}

type Trader struct {
	cfg         Config
	deps        Deps
	session     string
	instruments []*instrument
	bySymbol    map[string]*instrument
	log         zerolog.Logger
	now         func() time.Time
}

func New(cfg Config, instruments []types.Instrument, deps Deps, session string, log zerolog.Logger) (*Trader, error) {
	if len(instruments) == 0 {
		return nil, ErrNoInstruments
	}
	if deps.Journal == nil {
		deps.Journal = journal.Nop()
	}
	t := &Trader{
		cfg:      cfg,
		deps:     deps,
		session:  session,
		bySymbol: make(map[string]*instrument, len(instruments)),
		log:      log.With().Str("session", session).Logger(),
		now:      time.Now,
	}
	for _, inst := range instruments {
		if _, dup := t.bySymbol[inst.Symbol]; dup {
			return nil, fmt.Errorf("instrument %s configured twice", inst.Symbol)
		}
		ic := &instrument{
			inst:   inst,
			series: types.NewPriceSeries(inst.Symbol),
			ids:    gateway.NewOrderIDs(session, inst.Symbol),
		}
		t.instruments = append(t.instruments, ic)
		t.bySymbol[inst.Symbol] = ic
	}
	return t, nil
}

// OnTick appends a tick to its instrument's series. Ticks for unknown
// instruments or older than the series' last sample are dropped.
func (t *Trader) OnTick(tick types.Tick) {
	ic, ok := t.bySymbol[tick.Instrument]
	if !ok {
		return
	}
	if err := ic.series.Append(types.Sample{Time: tick.Time, Price: tick.Price}); err != nil {
		metrics.DroppedTicksTotal.WithLabelValues("out_of_order").Inc()
		t.log.Debug().Err(err).Str("instrument", tick.Instrument).Msg("dropping tick")
		return
	}
	for _, o := range t.deps.Observers {
		o.OnTick(tick)
	}
}

// Run loops until ctx is cancelled. Cancellation cuts collection and sleep
// short, but a decision cycle that has started runs to completion.
func (t *Trader) Run(ctx context.Context) error {
	t.log.Info().Int("instruments", len(t.instruments)).Dur("collect", t.cfg.CollectFor).Dur("sleep", t.cfg.SleepFor).Msg("trader started")
	for {
		if ctx.Err() != nil {
			t.log.Info().Msg("trader stopped")
			return nil
		}

		t.log.Info().Msg("collecting data")
		if err := t.deps.Feed.Collect(ctx, t.cfg.CollectFor, t); err != nil {
			if ctx.Err() != nil {
				t.log.Info().Msg("trader stopped")
				return nil
			}
			t.log.Error().Err(err).Msg("collection failed, deciding on collected data")
		}

		if _, err := t.RunCycle(context.WithoutCancel(ctx)); err != nil {
			t.log.Error().Err(err).Msg("decision cycle aborted")
		}

		t.log.Info().Dur("sleep", t.cfg.SleepFor).Msg("sleeping")
		select {
		case <-ctx.Done():
		case <-time.After(t.cfg.SleepFor):
		}
	}
}

// CycleResult summarizes one decision cycle.
type CycleResult struct {
	Submitted int
	Filled    int
	Failed    int
	Skipped   int
}

// RunCycle decides and trades every instrument in configured order against
// one balance snapshot.
func (t *Trader) RunCycle(ctx context.Context) (CycleResult, error) {
	var res CycleResult
	balances, err := t.deps.Account.Balances(ctx)
	if err != nil {
		return res, fmt.Errorf("balances: %w", err)
	}
	cash := balances[t.cfg.QuoteCurrency]
	metrics.Cash.Set(cash.InexactFloat64())
	t.log.Info().Str("cash", cash.String()).Str("currency", t.cfg.QuoteCurrency).Msg("decision cycle")

	for _, ic := range t.instruments {
		held := balances[ic.inst.Base]
		switch t.trade(ctx, ic, cash, held) {
		case outcomeFilled:
			res.Submitted++
			res.Filled++
		case outcomeFailed:
			res.Submitted++
			res.Failed++
		case outcomeSkipped:
			res.Skipped++
		}
	}
	metrics.CyclesTotal.Inc()
	return res, nil
}

type outcome int

const (
	outcomeHold outcome = iota
	outcomeSkipped
	outcomeFilled
	outcomeFailed
)

func (t *Trader) trade(ctx context.Context, ic *instrument, cash, held decimal.Decimal) outcome {
	log := t.log.With().Str("instrument", ic.inst.Symbol).Logger()

	d, err := t.deps.Strategy.Decide(strategy.Input{
		Instrument: ic.inst,
		Series:     ic.series,
		Cash:       cash,
		Held:       held,
		Entry:      ic.entry.Price(),
	})
	if errors.Is(err, scoring.ErrInsufficientData) {
		log.Info().Int("samples", ic.series.Len()).Msg("insufficient data, skipping")
		return outcomeSkipped
	}
	if err != nil {
		log.Error().Err(err).Msg("decision failed, skipping")
		return outcomeSkipped
	}
	if d.Reason == strategy.ReasonScore {
		metrics.Score.WithLabelValues(ic.inst.Symbol).Set(d.Score)
	}

	side, ok := d.Action.Side()
	if !ok {
		log.Info().Float64("score", d.Score).Str("decision", string(d.Action)).Str("reason", d.Reason).Msg("holding")
		return outcomeHold
	}

	req := types.OrderRequest{
		ClientOrderID: ic.ids.Next(side),
		Instrument:    ic.inst.Symbol,
		Side:          side,
		Amount:        d.Amount,
	}
	result, err := t.deps.Gateway.Submit(ctx, req)
	if err != nil {
		result = types.OrderResult{FailureReason: err.Error()}
	}

	event := types.OrderEvent{
		Time:          t.now(),
		SessionID:     t.session,
		ClientOrderID: req.ClientOrderID,
		Instrument:    req.Instrument,
		Side:          req.Side,
		Amount:        req.Amount,
		Score:         d.Score,
		Reason:        d.Reason,
		Success:       result.Success,
		FillPrice:     result.FillPrice.Decimal,
		FailureReason: result.FailureReason,
	}
	if err := t.deps.Journal.Record(ctx, event); err != nil {
		log.Warn().Err(err).Str("order_id", req.ClientOrderID).Msg("journal write failed")
	}

	if !result.Success {
		metrics.OrdersTotal.WithLabelValues(ic.inst.Symbol, string(side), "failed").Inc()
		log.Warn().
			Str("order_id", req.ClientOrderID).
			Str("side", string(side)).
			Str("amount", req.Amount.String()).
			Str("reason", result.FailureReason).
			Msg("order failed")
		return outcomeFailed
	}
	metrics.OrdersTotal.WithLabelValues(ic.inst.Symbol, string(side), "filled").Inc()

	switch side {
	case types.SideTypeBuy:
		fill := d.Price
		if result.FillPrice.Valid {
			fill = result.FillPrice.Decimal
		}
		ic.entry.Record(fill)
	case types.SideTypeSell:
		if req.Amount.Unit == types.UnitBase && req.Amount.Value.GreaterThanOrEqual(held) {
			ic.entry.Clear()
		}
	}
	log.Info().
		Str("order_id", req.ClientOrderID).
		Str("side", string(side)).
		Str("amount", req.Amount.String()).
		Float64("score", d.Score).
		Str("reason", d.Reason).
		Msg("order filled")
	return outcomeFilled
}
