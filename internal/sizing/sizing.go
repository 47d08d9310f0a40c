// Package sizing turns a score and an available balance into an order amount
// that respects the instrument's precision and minimum size.
package sizing

import (
	"errors"
	"fmt"

	"tradebot/types"

	"github.com/shopspring/decimal"
)

var ErrInvalidConfig = errors.New("invalid sizing config")

type Config struct {
	BuyFraction  decimal.Decimal
	SellFraction decimal.Decimal
}

func DefaultConfig() Config {
	return Config{
		BuyFraction:  decimal.RequireFromString("0.3"),
		SellFraction: decimal.RequireFromString("0.3"),
	}
}

func (c Config) Validate() error {
	one := decimal.NewFromInt(1)
	for name, f := range map[string]decimal.Decimal{"buy": c.BuyFraction, "sell": c.SellFraction} {
		if !f.IsPositive() || f.GreaterThan(one) {
			return fmt.Errorf("%w: %s fraction %s not in (0, 1]", ErrInvalidConfig, name, f)
		}
	}
	return nil
}

var oneQuote = decimal.NewFromInt(1)

// Buy sizes a buy in quote currency: cash * BuyFraction * score rounded to the
// instrument's buy precision. An amount that rounds to zero becomes the
// instrument minimum in base units; any other amount below one is raised to
// one unit of quote currency.
func Buy(score float64, cash decimal.Decimal, inst types.Instrument, cfg Config) types.Amount {
	amount := cash.Mul(cfg.BuyFraction).Mul(decimal.NewFromFloat(score)).Round(inst.BuyPrecision)
	switch {
	case amount.IsZero():
		return types.BaseAmount(inst.MinTradeAmount)
	case amount.LessThan(oneQuote):
		return types.QuoteAmount(oneQuote)
	default:
		return types.QuoteAmount(amount)
	}
}

// Sell sizes a sell in base units: held * SellFraction * score rounded to the
// instrument's sell precision and never below the instrument minimum.
func Sell(score float64, held decimal.Decimal, inst types.Instrument, cfg Config) types.Amount {
	amount := held.Mul(cfg.SellFraction).Mul(decimal.NewFromFloat(score)).Round(inst.SellPrecision)
	if amount.LessThan(inst.MinTradeAmount) {
		amount = inst.MinTradeAmount
	}
	return types.BaseAmount(amount)
}

// QuoteFillPrecision is the number of base decimals a quote-funded order fills
// to. It is finer than most sell precisions so that a one unit quote buy still
// buys something at high prices.
const QuoteFillPrecision int32 = 8

// ToBase converts an amount into a base quantity at price, truncated to
// QuoteFillPrecision or the instrument's sell precision, whichever is finer.
// Base amounts pass through unchanged.
func ToBase(amount types.Amount, price decimal.Decimal, inst types.Instrument) decimal.Decimal {
	if amount.Unit == types.UnitBase {
		return amount.Value
	}
	if !price.IsPositive() {
		return decimal.Zero
	}
	places := QuoteFillPrecision
	if inst.SellPrecision > places {
		places = inst.SellPrecision
	}
	return amount.Value.DivRound(price, places+8).Truncate(places)
}
