package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is one replayed step of a backtest. Records are never mutated
// after they are appended.
type TradeRecord struct {
	Time           time.Time
	Instrument     string
	Price          decimal.Decimal
	Decision       Decision
	Quantity       decimal.Decimal
	Reason         string
	Score          float64
	CashAfter      decimal.Decimal
	PositionsAfter map[string]decimal.Decimal
	PortfolioValue decimal.Decimal
}
