package gateway

import (
	"context"
	"testing"
	"time"

	"tradebot/types"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderIDs(t *testing.T) {
	session := NewSessionID()
	_, err := uuid.Parse(session)
	require.NoError(t, err)

	btc := NewOrderIDs(session, "BTC-GBP")
	eth := NewOrderIDs(session, "ETH-GBP")

	assert.Equal(t, "order_buy_"+session+"_BTC-GBP_1", btc.Next(types.SideTypeBuy))
	assert.Equal(t, "order_sell_"+session+"_BTC-GBP_2", btc.Next(types.SideTypeSell))
	assert.Equal(t, "order_buy_"+session+"_ETH-GBP_1", eth.Next(types.SideTypeBuy))
	assert.Equal(t, uint64(2), btc.Count())

	other := NewOrderIDs(NewSessionID(), "BTC-GBP")
	assert.NotEqual(t, btc.Next(types.SideTypeBuy), other.Next(types.SideTypeBuy))
}

func newTestPaper(t *testing.T) *Paper {
	t.Helper()
	btc, err := types.NewInstrument("BTC-GBP", 2, 4, decimal.RequireFromString("0.0001"))
	require.NoError(t, err)
	p := NewPaper([]types.Instrument{btc}, map[string]decimal.Decimal{
		"GBP": decimal.NewFromInt(1000),
	}, zerolog.Nop())
	p.OnTick(types.Tick{Instrument: "BTC-GBP", Time: time.Now(), Price: decimal.NewFromInt(100)})
	return p
}

func TestPaper_BuyThenSell(t *testing.T) {
	ctx := context.Background()
	p := newTestPaper(t)

	res, err := p.Submit(ctx, types.OrderRequest{
		ClientOrderID: "order_buy_s_BTC-GBP_1",
		Instrument:    "BTC-GBP",
		Side:          types.SideTypeBuy,
		Amount:        types.QuoteAmount(decimal.NewFromInt(250)),
	})
	require.NoError(t, err)
	require.True(t, res.Success, res.FailureReason)
	assert.True(t, res.FillPrice.Decimal.Equal(decimal.NewFromInt(100)))

	balances, err := p.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, "750", balances["GBP"].String())
	assert.Equal(t, "2.5", balances["BTC"].String())

	p.OnTick(types.Tick{Instrument: "BTC-GBP", Price: decimal.NewFromInt(110)})
	res, err = p.Submit(ctx, types.OrderRequest{
		ClientOrderID: "order_sell_s_BTC-GBP_2",
		Instrument:    "BTC-GBP",
		Side:          types.SideTypeSell,
		Amount:        types.BaseAmount(decimal.RequireFromString("2.5")),
	})
	require.NoError(t, err)
	require.True(t, res.Success, res.FailureReason)

	balances, err = p.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1025", balances["GBP"].String())
	assert.True(t, balances["BTC"].IsZero())
}

func TestPaper_Failures(t *testing.T) {
	tests := []struct {
		name   string
		req    types.OrderRequest
		reason string
	}{
		{
			name:   "insufficient funds",
			req:    types.OrderRequest{ClientOrderID: "a", Instrument: "BTC-GBP", Side: types.SideTypeBuy, Amount: types.QuoteAmount(decimal.NewFromInt(5000))},
			reason: ReasonInsufficientFunds,
		},
		{
			name:   "insufficient holdings",
			req:    types.OrderRequest{ClientOrderID: "b", Instrument: "BTC-GBP", Side: types.SideTypeSell, Amount: types.BaseAmount(decimal.NewFromInt(1))},
			reason: ReasonInsufficientBase,
		},
		{
			name:   "amount below one base step",
			req:    types.OrderRequest{ClientOrderID: "c", Instrument: "BTC-GBP", Side: types.SideTypeBuy, Amount: types.QuoteAmount(decimal.RequireFromString("0.0000000001"))},
			reason: ReasonInvalidAmount,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPaper(t)
			before, err := p.Balances(context.Background())
			require.NoError(t, err)

			res, err := p.Submit(context.Background(), tt.req)
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, tt.reason, res.FailureReason)
			assert.False(t, res.FillPrice.Valid)

			after, err := p.Balances(context.Background())
			require.NoError(t, err)
			assert.Equal(t, before, after)
		})
	}
}

func TestPaper_NoPriceYet(t *testing.T) {
	eth, err := types.NewInstrument("ETH-GBP", 2, 6, decimal.RequireFromString("0.0001"))
	require.NoError(t, err)
	p := NewPaper([]types.Instrument{eth}, map[string]decimal.Decimal{"GBP": decimal.NewFromInt(10)}, zerolog.Nop())

	res, err := p.Submit(context.Background(), types.OrderRequest{
		ClientOrderID: "x", Instrument: "ETH-GBP", Side: types.SideTypeBuy, Amount: types.QuoteAmount(decimal.NewFromInt(1)),
	})
	require.NoError(t, err)
	assert.Equal(t, ReasonNoPrice, res.FailureReason)
}

func TestPaper_Idempotent(t *testing.T) {
	ctx := context.Background()
	p := newTestPaper(t)
	req := types.OrderRequest{
		ClientOrderID: "order_buy_s_BTC-GBP_1",
		Instrument:    "BTC-GBP",
		Side:          types.SideTypeBuy,
		Amount:        types.QuoteAmount(decimal.NewFromInt(100)),
	}

	first, err := p.Submit(ctx, req)
	require.NoError(t, err)
	p.OnTick(types.Tick{Instrument: "BTC-GBP", Price: decimal.NewFromInt(50)})
	second, err := p.Submit(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	balances, err := p.Balances(ctx)
	require.NoError(t, err)
	assert.Equal(t, "900", balances["GBP"].String())
	assert.Equal(t, "1", balances["BTC"].String())
}

func TestPaper_RejectsBadRequests(t *testing.T) {
	p := newTestPaper(t)

	_, err := p.Submit(context.Background(), types.OrderRequest{Instrument: "BTC-GBP", Side: types.SideTypeBuy})
	assert.ErrorIs(t, err, ErrMissingOrderID)

	_, err = p.Submit(context.Background(), types.OrderRequest{ClientOrderID: "z", Instrument: "DOGE-GBP", Side: types.SideTypeBuy})
	assert.ErrorIs(t, err, ErrUnknownInstrument)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Submit(ctx, types.OrderRequest{ClientOrderID: "y", Instrument: "BTC-GBP"})
	assert.ErrorIs(t, err, context.Canceled)
}
