package engine

import (
	"errors"
	"fmt"
	"time"

	"tradebot/types"

	"github.com/shopspring/decimal"
)

var InvalidQuantityErr = errors.New("quantity must be positive")
var InsufficientBalanceErr = errors.New("insufficient balance when applying buy")
var InsufficientPositionErr = errors.New("insufficient position when applying sell")

// portfolio is the virtual ledger of a backtest. Cash and positions never go
// negative; a position that reaches zero is removed.
type portfolio struct {
	cash      decimal.Decimal
	positions map[string]*Position
}

type Position struct {
	Symbol    string
	Quantity  decimal.Decimal
	LastPrice decimal.Decimal
}

func newPortfolio(initialCash decimal.Decimal) *portfolio {
	return &portfolio{
		cash:      initialCash,
		positions: make(map[string]*Position),
	}
}

func (p *portfolio) quantity(symbol string) decimal.Decimal {
	if pos, ok := p.positions[symbol]; ok {
		return pos.Quantity
	}
	return decimal.Zero
}

func (p *portfolio) buy(symbol string, qty, price decimal.Decimal) error {
	if !qty.IsPositive() {
		return fmt.Errorf("buy %s %s: %w", qty, symbol, InvalidQuantityErr)
	}
	cost := qty.Mul(price)
	if p.cash.LessThan(cost) {
		return fmt.Errorf("buy %s %s at %s: %w", qty, symbol, price, InsufficientBalanceErr)
	}
	p.cash = p.cash.Sub(cost)

	pos := p.positions[symbol]
	if pos == nil {
		pos = &Position{Symbol: symbol}
		p.positions[symbol] = pos
	}
	pos.Quantity = pos.Quantity.Add(qty)
	pos.LastPrice = price
	return nil
}

func (p *portfolio) sell(symbol string, qty, price decimal.Decimal) error {
	if !qty.IsPositive() {
		return fmt.Errorf("sell %s %s: %w", qty, symbol, InvalidQuantityErr)
	}
	pos := p.positions[symbol]
	if pos == nil || pos.Quantity.LessThan(qty) {
		return fmt.Errorf("sell %s %s: %w", qty, symbol, InsufficientPositionErr)
	}
	p.cash = p.cash.Add(qty.Mul(price))
	pos.Quantity = pos.Quantity.Sub(qty)
	pos.LastPrice = price
	if pos.Quantity.IsZero() {
		delete(p.positions, symbol)
	}
	return nil
}

func (p *portfolio) mark(symbol string, price decimal.Decimal) {
	if pos, ok := p.positions[symbol]; ok {
		pos.LastPrice = price
	}
}

// value is cash plus every position at its last marked price.
func (p *portfolio) value() decimal.Decimal {
	value := p.cash
	for _, pos := range p.positions {
		value = value.Add(pos.Quantity.Mul(pos.LastPrice))
	}
	return value
}

func (p *portfolio) quantities() map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(p.positions))
	for sym, pos := range p.positions {
		out[sym] = pos.Quantity
	}
	return out
}

func (p *portfolio) GetPortfolioSnapshot(curTime time.Time) types.PortfolioView {
	view := types.PortfolioView{
		Cash:      p.cash,
		Positions: make(map[string]types.PositionSnapshot, len(p.positions)),
		Time:      curTime,
	}
	for sym, pos := range p.positions {
		view.Positions[sym] = types.PositionSnapshot{
			Symbol:    pos.Symbol,
			Quantity:  pos.Quantity,
			LastPrice: pos.LastPrice,
		}
	}
	return view
}
