// Package scoring reduces the latest indicator row of an instrument into a
// single signal in [0, 1], where 0.5 is neutral.
package scoring

import (
	"errors"
	"fmt"

	"tradebot/internal/indicator"
	"tradebot/types"
)

var (
	ErrInsufficientData = errors.New("insufficient data")
	ErrInvalidConfig    = errors.New("invalid scoring config")
)

// Vote names one of the independent signals that make up the score.
type Vote string

const (
	VoteRSI       Vote = "rsi"
	VoteMACD      Vote = "macd"
	VoteBollinger Vote = "bollinger"
	VoteTrend     Vote = "trend"
)

// votes is the evaluation order.
var votes = []Vote{VoteRSI, VoteMACD, VoteBollinger, VoteTrend}

// Weight is added to the raw score when the vote is bullish and subtracted
// when it is bearish. A zero weight disables that direction.
type Weight struct {
	Bullish float64 `yaml:"bullish"`
	Bearish float64 `yaml:"bearish"`
}

type Config struct {
	MinSamples    int             `yaml:"min_samples"`
	RSIOverbought float64         `yaml:"rsi_overbought"`
	RSIOversold   float64         `yaml:"rsi_oversold"`
	Votes         map[Vote]Weight `yaml:"votes"`
	BuyAbove      float64         `yaml:"buy_above"`
	SellBelow     float64         `yaml:"sell_below"`
}

// FourVote is the default table: RSI, MACD, Bollinger and trend each vote ±1,
// so the raw score spans [-4, 4] and normalizes as (raw+4)/8.
func FourVote() Config {
	return Config{
		MinSamples:    26,
		RSIOverbought: 70,
		RSIOversold:   30,
		Votes: map[Vote]Weight{
			VoteRSI:       {Bullish: 1, Bearish: 1},
			VoteMACD:      {Bullish: 1, Bearish: 1},
			VoteBollinger: {Bullish: 1, Bearish: 1},
			VoteTrend:     {Bullish: 1, Bearish: 1},
		},
		BuyAbove:  0.5,
		SellBelow: 0.5,
	}
}

// TwoVote only counts oversold RSI and a positive MACD histogram. The raw
// score spans [0, 2], so a raw score of 1 normalizes to 0.5.
func TwoVote() Config {
	return Config{
		MinSamples:    26,
		RSIOverbought: 70,
		RSIOversold:   30,
		Votes: map[Vote]Weight{
			VoteRSI:  {Bullish: 1},
			VoteMACD: {Bullish: 1},
		},
		BuyAbove:  0.5,
		SellBelow: 0.5,
	}
}

func (c Config) Validate() error {
	lo, hi := c.bounds()
	if hi <= lo {
		return fmt.Errorf("%w: vote table has no weight", ErrInvalidConfig)
	}
	for v, w := range c.Votes {
		if w.Bullish < 0 || w.Bearish < 0 {
			return fmt.Errorf("%w: negative weight for %s", ErrInvalidConfig, v)
		}
	}
	if c.SellBelow > c.BuyAbove {
		return fmt.Errorf("%w: sell threshold %v above buy threshold %v", ErrInvalidConfig, c.SellBelow, c.BuyAbove)
	}
	if c.RSIOversold > c.RSIOverbought {
		return fmt.Errorf("%w: rsi oversold %v above overbought %v", ErrInvalidConfig, c.RSIOversold, c.RSIOverbought)
	}
	return nil
}

// Decide maps a normalized score to a trading bias.
func (c Config) Decide(score float64) types.Decision {
	switch {
	case score > c.BuyAbove:
		return types.DecisionBuy
	case score < c.SellBelow:
		return types.DecisionSell
	default:
		return types.DecisionHold
	}
}

// bounds returns the lowest and highest reachable raw score.
func (c Config) bounds() (lo, hi float64) {
	for _, v := range votes {
		w := c.Votes[v]
		lo -= w.Bearish
		hi += w.Bullish
	}
	return lo, hi
}

// Score is the result for one instrument at its latest sample.
type Score struct {
	Value float64
	Raw   float64
	Votes map[Vote]float64
}

type Scorer struct {
	cfg Config
}

func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg}
}

func (s *Scorer) Config() Config {
	return s.cfg
}

// Score evaluates the last row of the frame. Frames shorter than MinSamples,
// or whose enabled votes lack a defined indicator, yield ErrInsufficientData.
func (s *Scorer) Score(frame indicator.Frame) (Score, error) {
	if frame.Len() < s.cfg.MinSamples {
		return Score{}, fmt.Errorf("%s has %d samples, need %d: %w", frame.Instrument, frame.Len(), s.cfg.MinSamples, ErrInsufficientData)
	}
	row, ok := frame.Last()
	if !ok {
		return Score{}, fmt.Errorf("%s: empty frame: %w", frame.Instrument, ErrInsufficientData)
	}

	result := Score{Votes: make(map[Vote]float64, len(votes))}
	for _, v := range votes {
		w, enabled := s.cfg.Votes[v]
		if !enabled || (w.Bullish == 0 && w.Bearish == 0) {
			continue
		}
		group := groupFor(v)
		if !row.Defined(group) {
			return Score{}, fmt.Errorf("%s: %s undefined: %w", frame.Instrument, group, ErrInsufficientData)
		}
		contribution := w.Bullish*bool2f(s.bullish(v, row)) - w.Bearish*bool2f(s.bearish(v, row))
		result.Votes[v] = contribution
		result.Raw += contribution
	}

	lo, hi := s.cfg.bounds()
	if hi <= lo {
		return Score{}, fmt.Errorf("%w: vote table has no weight", ErrInvalidConfig)
	}
	result.Value = clamp01((result.Raw - lo) / (hi - lo))
	return result, nil
}

func (s *Scorer) bullish(v Vote, row indicator.Row) bool {
	switch v {
	case VoteRSI:
		return row.RSI < s.cfg.RSIOversold
	case VoteMACD:
		return row.MACDDiff > 0
	case VoteBollinger:
		return row.Price < row.BollingerLow
	case VoteTrend:
		return row.Price > row.SMA
	}
	return false
}

func (s *Scorer) bearish(v Vote, row indicator.Row) bool {
	switch v {
	case VoteRSI:
		return row.RSI > s.cfg.RSIOverbought
	case VoteMACD:
		return row.MACDDiff < 0
	case VoteBollinger:
		return row.Price > row.BollingerHigh
	case VoteTrend:
		return row.Price < row.SMA
	}
	return false
}

func groupFor(v Vote) indicator.Group {
	switch v {
	case VoteRSI:
		return indicator.GroupRSI
	case VoteMACD:
		return indicator.GroupMACD
	case VoteBollinger:
		return indicator.GroupBollinger
	default:
		return indicator.GroupSMA
	}
}

func bool2f(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
