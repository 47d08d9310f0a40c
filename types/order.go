package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

type Decision string

// Unit tells which currency an amount is denominated in.
type Unit string

const (
	SideTypeBuy  Side = "BUY"
	SideTypeSell Side = "SELL"

	DecisionBuy  Decision = "buy"
	DecisionSell Decision = "sell"
	DecisionHold Decision = "hold"

	UnitQuote Unit = "quote"
	UnitBase  Unit = "base"
)

// Side maps a trading decision to an order side. Hold has no side.
func (d Decision) Side() (Side, bool) {
	switch d {
	case DecisionBuy:
		return SideTypeBuy, true
	case DecisionSell:
		return SideTypeSell, true
	default:
		return "", false
	}
}

// Amount is an order size. Buys are usually sized in quote currency, sells in
// the base asset.
type Amount struct {
	Value decimal.Decimal `json:"value"`
	Unit  Unit            `json:"unit"`
}

func QuoteAmount(v decimal.Decimal) Amount { return Amount{Value: v, Unit: UnitQuote} }

func BaseAmount(v decimal.Decimal) Amount { return Amount{Value: v, Unit: UnitBase} }

func (a Amount) String() string {
	return a.Value.String() + " " + string(a.Unit)
}

type OrderRequest struct {
	ClientOrderID string
	Instrument    string
	Side          Side
	Amount        Amount
}

type OrderResult struct {
	Success       bool
	FillPrice     decimal.NullDecimal
	FailureReason string
}

// OrderEvent is one live order attempt as written to the journal.
type OrderEvent struct {
	Time          time.Time       `json:"time"`
	SessionID     string          `json:"sessionId"`
	ClientOrderID string          `json:"clientOrderId"`
	Instrument    string          `json:"instrument"`
	Side          Side            `json:"side"`
	Amount        Amount          `json:"amount"`
	Score         float64         `json:"score"`
	Reason        string          `json:"reason"`
	Success       bool            `json:"success"`
	FillPrice     decimal.Decimal `json:"fillPrice,omitempty"`
	FailureReason string          `json:"failureReason,omitempty"`
}
