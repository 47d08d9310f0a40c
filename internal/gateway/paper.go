package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"tradebot/internal/sizing"
	"tradebot/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownInstrument = errors.New("unknown instrument")
	ErrMissingOrderID    = errors.New("missing client order id")
)

// Failure reasons reported by the paper gateway.
const (
	ReasonNoPrice           = "no_price"
	ReasonInvalidAmount     = "invalid_amount"
	ReasonInsufficientFunds = "insufficient_funds"
	ReasonInsufficientBase  = "insufficient_holdings"
)

// Paper fills market orders against an in-memory account at the last
// observed price. It is safe for concurrent use.
type Paper struct {
	mu          sync.Mutex
	log         zerolog.Logger
	instruments map[string]types.Instrument
	balances    map[string]decimal.Decimal
	marks       map[string]decimal.Decimal
	results     map[string]types.OrderResult
}

// NewPaper starts with the given balances, keyed by currency code.
func NewPaper(instruments []types.Instrument, balances map[string]decimal.Decimal, log zerolog.Logger) *Paper {
	p := &Paper{
		log:         log,
		instruments: make(map[string]types.Instrument, len(instruments)),
		balances:    make(map[string]decimal.Decimal, len(balances)),
		marks:       make(map[string]decimal.Decimal),
		results:     make(map[string]types.OrderResult),
	}
	for _, inst := range instruments {
		p.instruments[inst.Symbol] = inst
	}
	for currency, amount := range balances {
		p.balances[currency] = amount
	}
	return p
}

// OnTick marks the instrument at the tick price.
func (p *Paper) OnTick(tick types.Tick) {
	if !tick.Price.IsPositive() {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.marks[tick.Instrument] = tick.Price
}

func (p *Paper) Balances(ctx context.Context) (map[string]decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]decimal.Decimal, len(p.balances))
	for currency, amount := range p.balances {
		out[currency] = amount
	}
	return out, nil
}

func (p *Paper) Submit(ctx context.Context, req types.OrderRequest) (types.OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return types.OrderResult{}, err
	}
	if req.ClientOrderID == "" {
		return types.OrderResult{}, ErrMissingOrderID
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if res, ok := p.results[req.ClientOrderID]; ok {
		p.log.Debug().Str("order_id", req.ClientOrderID).Msg("duplicate order id, returning first result")
		return res, nil
	}
	inst, ok := p.instruments[req.Instrument]
	if !ok {
		return types.OrderResult{}, fmt.Errorf("%s: %w", req.Instrument, ErrUnknownInstrument)
	}

	res := p.fill(inst, req)
	p.results[req.ClientOrderID] = res
	return res, nil
}

// fill must be called with p.mu held.
func (p *Paper) fill(inst types.Instrument, req types.OrderRequest) types.OrderResult {
	price, ok := p.marks[inst.Symbol]
	if !ok {
		return failed(ReasonNoPrice)
	}
	qty := sizing.ToBase(req.Amount, price, inst)
	if !qty.IsPositive() {
		return failed(ReasonInvalidAmount)
	}
	notional := qty.Mul(price)
	cash := p.balances[inst.Quote]
	held := p.balances[inst.Base]

	switch req.Side {
	case types.SideTypeBuy:
		if notional.GreaterThan(cash) {
			return failed(ReasonInsufficientFunds)
		}
		p.balances[inst.Quote] = cash.Sub(notional)
		p.balances[inst.Base] = held.Add(qty)
	case types.SideTypeSell:
		if qty.GreaterThan(held) {
			return failed(ReasonInsufficientBase)
		}
		p.balances[inst.Quote] = cash.Add(notional)
		p.balances[inst.Base] = held.Sub(qty)
	default:
		return failed(fmt.Sprintf("unknown side %q", req.Side))
	}

	p.log.Info().
		Str("order_id", req.ClientOrderID).
		Str("instrument", inst.Symbol).
		Str("side", string(req.Side)).
		Str("qty", qty.String()).
		Str("price", price.String()).
		Msg("paper fill")
	return types.OrderResult{Success: true, FillPrice: decimal.NewNullDecimal(price)}
}

func failed(reason string) types.OrderResult {
	return types.OrderResult{FailureReason: reason}
}
