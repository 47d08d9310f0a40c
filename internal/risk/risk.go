// Package risk implements entry-price based stop-loss and take-profit exits.
package risk

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidConfig = errors.New("invalid risk config")

// Trigger is the reason a position must be closed regardless of the score.
type Trigger string

const (
	TriggerNone       Trigger = ""
	TriggerStopLoss   Trigger = "stop_loss"
	TriggerTakeProfit Trigger = "take_profit"
)

type Config struct {
	StopLossPct   decimal.Decimal
	TakeProfitPct decimal.Decimal
}

func DefaultConfig() Config {
	return Config{
		StopLossPct:   decimal.RequireFromString("0.05"),
		TakeProfitPct: decimal.RequireFromString("0.10"),
	}
}

func (c Config) Validate() error {
	if c.StopLossPct.IsNegative() || c.StopLossPct.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("%w: stop loss %s not in [0, 1)", ErrInvalidConfig, c.StopLossPct)
	}
	if c.TakeProfitPct.IsNegative() {
		return fmt.Errorf("%w: take profit %s is negative", ErrInvalidConfig, c.TakeProfitPct)
	}
	return nil
}

type Manager struct {
	stopFactor   decimal.Decimal
	profitFactor decimal.Decimal
}

func NewManager(cfg Config) *Manager {
	one := decimal.NewFromInt(1)
	return &Manager{
		stopFactor:   one.Sub(cfg.StopLossPct),
		profitFactor: one.Add(cfg.TakeProfitPct),
	}
}

// Check compares price with the entry. Without an entry nothing triggers.
// Both bounds are inclusive.
func (m *Manager) Check(entry decimal.NullDecimal, price decimal.Decimal) Trigger {
	if !entry.Valid {
		return TriggerNone
	}
	if price.LessThanOrEqual(entry.Decimal.Mul(m.stopFactor)) {
		return TriggerStopLoss
	}
	if price.GreaterThanOrEqual(entry.Decimal.Mul(m.profitFactor)) {
		return TriggerTakeProfit
	}
	return TriggerNone
}

// Entry is the entry price of one instrument's open position.
type Entry struct {
	price decimal.NullDecimal
}

// Record sets the entry to the fill price of a successful buy.
func (e *Entry) Record(fill decimal.Decimal) {
	e.price = decimal.NewNullDecimal(fill)
}

// Clear forgets the entry after a full exit.
func (e *Entry) Clear() {
	e.price = decimal.NullDecimal{}
}

func (e *Entry) Price() decimal.NullDecimal {
	return e.price
}
