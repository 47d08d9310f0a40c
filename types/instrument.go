package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Instrument is a tradable pair (base asset priced in a quote currency) with
// the exchange's order size rules.
type Instrument struct {
	Symbol         string          `json:"symbol" yaml:"symbol"`
	Base           string          `json:"base" yaml:"-"`
	Quote          string          `json:"quote" yaml:"-"`
	BuyPrecision   int32           `json:"buyPrecision" yaml:"buy_precision"`
	SellPrecision  int32           `json:"sellPrecision" yaml:"sell_precision"`
	MinTradeAmount decimal.Decimal `json:"minTradeAmount" yaml:"min_trade_amount"`
}

// ParseSymbol splits a "BASE-QUOTE" symbol.
func ParseSymbol(symbol string) (base, quote string, err error) {
	parts := strings.Split(strings.TrimSpace(symbol), "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("symbol %q: expected BASE-QUOTE", symbol)
	}
	return strings.ToUpper(parts[0]), strings.ToUpper(parts[1]), nil
}

// NewInstrument builds an instrument from its symbol and size rules.
func NewInstrument(symbol string, buyPrecision, sellPrecision int32, minTradeAmount decimal.Decimal) (Instrument, error) {
	base, quote, err := ParseSymbol(symbol)
	if err != nil {
		return Instrument{}, err
	}
	return Instrument{
		Symbol:         base + "-" + quote,
		Base:           base,
		Quote:          quote,
		BuyPrecision:   buyPrecision,
		SellPrecision:  sellPrecision,
		MinTradeAmount: minTradeAmount,
	}, nil
}
