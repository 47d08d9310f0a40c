// Package strategy runs the decision pipeline for a single instrument:
// risk overrides first, then indicators, score and sizing.
package strategy

import (
	"fmt"

	"tradebot/internal/indicator"
	"tradebot/internal/risk"
	"tradebot/internal/scoring"
	"tradebot/internal/sizing"
	"tradebot/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	ReasonScore      = "score"
	ReasonNoPosition = "no_position"
)

type Config struct {
	Indicators indicator.Config
	Scoring    scoring.Config
	Sizing     sizing.Config
	Risk       risk.Config
}

func DefaultConfig() Config {
	return Config{
		Indicators: indicator.DefaultConfig(),
		Scoring:    scoring.FourVote(),
		Sizing:     sizing.DefaultConfig(),
		Risk:       risk.DefaultConfig(),
	}
}

func (c Config) Validate() error {
	if err := c.Scoring.Validate(); err != nil {
		return err
	}
	if err := c.Sizing.Validate(); err != nil {
		return err
	}
	return c.Risk.Validate()
}

// Input is everything the pipeline needs to decide for one instrument.
type Input struct {
	Instrument types.Instrument
	Series     *types.PriceSeries
	Cash       decimal.Decimal
	Held       decimal.Decimal
	Entry      decimal.NullDecimal
}

type Decision struct {
	Action types.Decision
	Amount types.Amount
	// Score is zero for risk exits.
	Score  float64
	Reason string
	Price  decimal.Decimal
}

type Strategy struct {
	cfg        Config
	indicators *indicator.Engine
	scorer     *scoring.Scorer
	risk       *risk.Manager
	log        zerolog.Logger
}

func New(cfg Config, log zerolog.Logger) *Strategy {
	return &Strategy{
		cfg:        cfg,
		indicators: indicator.NewEngine(cfg.Indicators, log),
		scorer:     scoring.NewScorer(cfg.Scoring),
		risk:       risk.NewManager(cfg.Risk),
		log:        log,
	}
}

func (s *Strategy) MinSamples() int {
	return s.cfg.Scoring.MinSamples
}

// Decide returns scoring.ErrInsufficientData when the series is too short to
// score and no risk exit applies.
func (s *Strategy) Decide(in Input) (Decision, error) {
	last, ok := in.Series.Last()
	if !ok {
		return Decision{}, fmt.Errorf("%s: empty series: %w", in.Instrument.Symbol, scoring.ErrInsufficientData)
	}

	if in.Held.IsPositive() {
		if trigger := s.risk.Check(in.Entry, last.Price); trigger != risk.TriggerNone {
			s.log.Info().
				Str("instrument", in.Instrument.Symbol).
				Str("trigger", string(trigger)).
				Str("entry", in.Entry.Decimal.String()).
				Str("price", last.Price.String()).
				Msg("risk exit")
			return Decision{
				Action: types.DecisionSell,
				Amount: types.BaseAmount(in.Held),
				Reason: string(trigger),
				Price:  last.Price,
			}, nil
		}
	}

	snapshot := in.Series.Snapshot()
	frame := s.indicators.Compute(&snapshot)
	score, err := s.scorer.Score(frame)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{
		Action: s.cfg.Scoring.Decide(score.Value),
		Score:  score.Value,
		Reason: ReasonScore,
		Price:  last.Price,
	}
	switch d.Action {
	case types.DecisionBuy:
		d.Amount = sizing.Buy(score.Value, in.Cash, in.Instrument, s.cfg.Sizing)
	case types.DecisionSell:
		if !in.Held.IsPositive() {
			d.Action = types.DecisionHold
			d.Reason = ReasonNoPosition
			break
		}
		d.Amount = sizing.Sell(score.Value, in.Held, in.Instrument, s.cfg.Sizing)
	}

	s.log.Debug().
		Str("instrument", in.Instrument.Symbol).
		Float64("score", score.Value).
		Float64("raw", score.Raw).
		Str("decision", string(d.Action)).
		Msg("scored")
	return d, nil
}
