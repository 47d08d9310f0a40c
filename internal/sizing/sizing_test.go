package sizing

import (
	"testing"

	"tradebot/types"

	"github.com/shopspring/decimal"
)

func mockInstrument(t *testing.T, symbol string, buyPrec, sellPrec int32, min string) types.Instrument {
	t.Helper()
	inst, err := types.NewInstrument(symbol, buyPrec, sellPrec, decimal.RequireFromString(min))
	if err != nil {
		t.Fatalf("NewInstrument(%q) error = %v", symbol, err)
	}
	return inst
}

func TestBuy(t *testing.T) {
	btc := mockInstrument(t, "BTC-GBP", 2, 4, "0.0001")
	cfg := Config{BuyFraction: decimal.RequireFromString("0.3"), SellFraction: decimal.RequireFromString("0.3")}

	tests := []struct {
		name  string
		score float64
		cash  string
		want  types.Amount
	}{
		{
			name:  "regular amount",
			score: 0.75,
			cash:  "1000",
			want:  types.QuoteAmount(decimal.RequireFromString("225")),
		},
		{
			name:  "rounded to buy precision",
			score: 0.625,
			cash:  "123.45",
			want:  types.QuoteAmount(decimal.RequireFromString("23.15")),
		},
		{
			name:  "below one quote unit is clamped to one",
			score: 0.625,
			cash:  "2",
			want:  types.QuoteAmount(decimal.RequireFromString("1")),
		},
		{
			name:  "rounds to zero falls back to minimum base amount",
			score: 0.625,
			cash:  "0.01",
			want:  types.BaseAmount(decimal.RequireFromString("0.0001")),
		},
		{
			name:  "no cash",
			score: 1,
			cash:  "0",
			want:  types.BaseAmount(decimal.RequireFromString("0.0001")),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Buy(tt.score, decimal.RequireFromString(tt.cash), btc, cfg)
			if got.Unit != tt.want.Unit || !got.Value.Equal(tt.want.Value) {
				t.Errorf("Buy() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBuy_Floors(t *testing.T) {
	inst := mockInstrument(t, "ADA-GBP", 2, 6, "10")
	cfg := DefaultConfig()
	for _, cash := range []string{"0", "0.01", "0.5", "3", "10", "999.99", "50000"} {
		for _, score := range []float64{0.5625, 0.625, 0.75, 0.875, 1} {
			got := Buy(score, decimal.RequireFromString(cash), inst, cfg)
			switch got.Unit {
			case types.UnitQuote:
				if got.Value.LessThan(decimal.NewFromInt(1)) {
					t.Errorf("Buy(%v, %s) = %v, below one quote unit", score, cash, got)
				}
			case types.UnitBase:
				if !got.Value.Equal(inst.MinTradeAmount) {
					t.Errorf("Buy(%v, %s) = %v, base amount is not the minimum", score, cash, got)
				}
			default:
				t.Errorf("Buy(%v, %s) unit = %q", score, cash, got.Unit)
			}
		}
	}
}

func TestSell(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		name  string
		inst  types.Instrument
		score float64
		held  string
		want  string
	}{
		{"regular amount", mockInstrument(t, "BTC-GBP", 2, 4, "0.0001"), 0.25, "2", "0.15"},
		{"rounded to sell precision", mockInstrument(t, "BTC-GBP", 2, 4, "0.0001"), 0.375, "0.123456", "0.0139"},
		{"clamped to minimum", mockInstrument(t, "BTC-GBP", 2, 4, "0.0001"), 0.125, "0.001", "0.0001"},
		{"nothing held still sells the minimum", mockInstrument(t, "LINK-GBP", 2, 1, "0.1"), 0.25, "0", "0.1"},
		{"coarse precision", mockInstrument(t, "SHIB-GBP", 2, 6, "1000"), 0.25, "20000", "1500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sell(tt.score, decimal.RequireFromString(tt.held), tt.inst, cfg)
			if got.Unit != types.UnitBase {
				t.Errorf("Sell() unit = %q, want base", got.Unit)
			}
			if !got.Value.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Sell() = %v, want %s", got.Value, tt.want)
			}
			if got.Value.LessThan(tt.inst.MinTradeAmount) {
				t.Errorf("Sell() = %v, below minimum %v", got.Value, tt.inst.MinTradeAmount)
			}
		})
	}
}

func TestSizing_Deterministic(t *testing.T) {
	inst := mockInstrument(t, "ETH-GBP", 2, 6, "0.0001")
	cfg := DefaultConfig()
	cash := decimal.RequireFromString("4321.09")
	first := Buy(0.8125, cash, inst, cfg)
	for i := 0; i < 10; i++ {
		if got := Buy(0.8125, cash, inst, cfg); !got.Value.Equal(first.Value) || got.Unit != first.Unit {
			t.Fatalf("Buy() = %v on call %d, want %v", got, i, first)
		}
	}
}

func TestToBase(t *testing.T) {
	btc := mockInstrument(t, "BTC-GBP", 2, 4, "0.0001")
	tests := []struct {
		name   string
		amount types.Amount
		price  string
		want   string
	}{
		{"quote converted and truncated", types.QuoteAmount(decimal.RequireFromString("1000")), "30000", "0.03333333"},
		{"one quote unit at a high price", types.QuoteAmount(decimal.RequireFromString("1")), "30000", "0.00003333"},
		{"dust", types.QuoteAmount(decimal.RequireFromString("0.0000001")), "30000", "0"},
		{"exact", types.QuoteAmount(decimal.RequireFromString("1000")), "100", "10"},
		{"base passes through", types.BaseAmount(decimal.RequireFromString("0.0001")), "30000", "0.0001"},
		{"zero price", types.QuoteAmount(decimal.RequireFromString("1000")), "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ToBase(tt.amount, decimal.RequireFromString(tt.price), btc)
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ToBase() = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"zero buy", Config{BuyFraction: decimal.Zero, SellFraction: decimal.RequireFromString("0.1")}, true},
		{"sell above one", Config{BuyFraction: decimal.RequireFromString("0.1"), SellFraction: decimal.RequireFromString("1.5")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
