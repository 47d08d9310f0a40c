// Package gateway is the boundary between the trader and an exchange.
package gateway

import (
	"context"
	"fmt"

	"tradebot/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Gateway submits market orders. Implementations must return the first
// result again when a ClientOrderID is resubmitted. A business failure is an
// OrderResult with Success false; the error is reserved for transport and
// context failures.
type Gateway interface {
	Submit(ctx context.Context, req types.OrderRequest) (types.OrderResult, error)
}

// Account reports balances keyed by currency code.
type Account interface {
	Balances(ctx context.Context) (map[string]decimal.Decimal, error)
}

// NewSessionID returns a random identifier for one trader process.
func NewSessionID() string {
	return uuid.NewString()
}

// OrderIDs hands out client order ids for one instrument. It is owned by that
// instrument and is not safe for concurrent use.
type OrderIDs struct {
	session    string
	instrument string
	n          uint64
}

func NewOrderIDs(session, instrument string) *OrderIDs {
	return &OrderIDs{session: session, instrument: instrument}
}

// Next returns order_<side>_<session>_<instrument>_<n> with n starting at 1.
func (o *OrderIDs) Next(side types.Side) string {
	o.n++
	return fmt.Sprintf("order_%s_%s_%s_%d", sideName(side), o.session, o.instrument, o.n)
}

func (o *OrderIDs) Count() uint64 {
	return o.n
}

func sideName(side types.Side) string {
	switch side {
	case types.SideTypeBuy:
		return "buy"
	case types.SideTypeSell:
		return "sell"
	default:
		return "unknown"
	}
}
