package indicator

import (
	"math"
	"testing"
	"time"

	"tradebot/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func mockSeries(prices ...float64) *types.PriceSeries {
	series := types.NewPriceSeries("BTC-GBP")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, p := range prices {
		_ = series.Append(types.Sample{Time: start.Add(time.Duration(i) * time.Minute), Price: decimal.NewFromFloat(p)})
	}
	return series
}

func flatPrices(n int, price float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = price
	}
	return out
}

func rampPrices(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + float64(i)
	}
	return out
}

func zigzagPrices(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100 + 5*math.Sin(float64(i)/3)
	}
	return out
}

func newTestEngine() *Engine {
	return NewEngine(DefaultConfig(), zerolog.Nop())
}

func TestCompute_WindowBoundaries(t *testing.T) {
	frame := newTestEngine().Compute(mockSeries(zigzagPrices(60)...))

	tests := []struct {
		name         string
		values       []float64
		firstDefined int
	}{
		{"sma", frame.SMA, 19},
		{"rsi", frame.RSI, 14},
		{"macd", frame.MACD, 25},
		{"macd signal", frame.MACDSignal, 25},
		{"macd diff", frame.MACDDiff, 25},
		{"bollinger high", frame.BollingerHigh, 19},
		{"bollinger low", frame.BollingerLow, 19},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i, v := range tt.values {
				if i < tt.firstDefined && !math.IsNaN(v) {
					t.Fatalf("index %d = %v, want NaN below window", i, v)
				}
				if i >= tt.firstDefined && (math.IsNaN(v) || math.IsInf(v, 0)) {
					t.Fatalf("index %d = %v, want finite value", i, v)
				}
			}
		})
	}
}

func TestCompute_ShortSeriesLeavesGroupsUndefined(t *testing.T) {
	tests := []struct {
		name        string
		samples     int
		wantMissing []Group
	}{
		{"single sample", 1, []Group{GroupSMA, GroupRSI, GroupMACD, GroupBollinger}},
		{"rsi only", 15, []Group{GroupSMA, GroupMACD, GroupBollinger}},
		{"no macd yet", 25, []Group{GroupMACD}},
		{"everything", 26, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := newTestEngine().Compute(mockSeries(rampPrices(tt.samples)...))
			if len(frame.Missing) != len(tt.wantMissing) {
				t.Fatalf("Missing = %v, want %v", frame.Missing, tt.wantMissing)
			}
			for i, g := range tt.wantMissing {
				if frame.Missing[i] != g {
					t.Errorf("Missing[%d] = %v, want %v", i, frame.Missing[i], g)
				}
			}
			if frame.Len() != tt.samples {
				t.Errorf("Len() = %d, want %d", frame.Len(), tt.samples)
			}
		})
	}
}

func TestCompute_FlatSeries(t *testing.T) {
	for _, price := range []float64{100, 100.1, 0.1, 0.3, 1.7, 27123.37} {
		frame := newTestEngine().Compute(mockSeries(flatPrices(30, price)...))
		row, ok := frame.Last()
		if !ok {
			t.Fatal("expected a last row")
		}
		if row.RSI != 50 {
			t.Errorf("price %v: RSI = %v, want 50", price, row.RSI)
		}
		if row.MACDDiff != 0 {
			t.Errorf("price %v: MACDDiff = %v, want 0", price, row.MACDDiff)
		}
		if row.SMA != row.Price {
			t.Errorf("price %v: SMA = %v, want %v", price, row.SMA, row.Price)
		}
		if row.BollingerLow != row.Price || row.BollingerHigh != row.Price {
			t.Errorf("price %v: bands [%v, %v], want both %v", price, row.BollingerLow, row.BollingerHigh, row.Price)
		}
	}
}

func TestCompute_FlatTailAfterMovement(t *testing.T) {
	prices := append(zigzagPrices(30), flatPrices(20, 100.1)...)
	frame := newTestEngine().Compute(mockSeries(prices...))
	row, _ := frame.Last()
	if row.SMA != 100.1 {
		t.Errorf("SMA = %v, want 100.1", row.SMA)
	}
	if row.BollingerLow != 100.1 || row.BollingerHigh != 100.1 {
		t.Errorf("bands [%v, %v], want both 100.1", row.BollingerLow, row.BollingerHigh)
	}
}

func TestCompute_RSIBounds(t *testing.T) {
	tests := []struct {
		name   string
		prices []float64
		want   float64
	}{
		{"only gains", rampPrices(40), 100},
		{"flat", flatPrices(40, 7), 50},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := newTestEngine().Compute(mockSeries(tt.prices...))
			row, _ := frame.Last()
			if row.RSI != tt.want {
				t.Errorf("RSI = %v, want %v", row.RSI, tt.want)
			}
		})
	}

	frame := newTestEngine().Compute(mockSeries(zigzagPrices(80)...))
	for i, v := range frame.RSI[14:] {
		if v < 0 || v > 100 {
			t.Fatalf("RSI[%d] = %v out of [0,100]", i+14, v)
		}
	}
}

func TestCompute_MACDSeeding(t *testing.T) {
	frame := newTestEngine().Compute(mockSeries(zigzagPrices(40)...))
	for i := 25; i < 40; i++ {
		want := i >= 33
		if frame.MACDSeeded[i] != want {
			t.Errorf("MACDSeeded[%d] = %v, want %v", i, frame.MACDSeeded[i], want)
		}
	}
	for i := 25; i < 40; i++ {
		if got := frame.MACD[i] - frame.MACDSignal[i]; math.Abs(got-frame.MACDDiff[i]) > 1e-12 {
			t.Errorf("MACDDiff[%d] = %v, want %v", i, frame.MACDDiff[i], got)
		}
	}
}

func TestCompute_BollingerAroundSMA(t *testing.T) {
	frame := newTestEngine().Compute(mockSeries(zigzagPrices(50)...))
	for i := 19; i < 50; i++ {
		if !(frame.BollingerLow[i] <= frame.SMA[i] && frame.SMA[i] <= frame.BollingerHigh[i]) {
			t.Fatalf("index %d: sma %v not inside [%v, %v]", i, frame.SMA[i], frame.BollingerLow[i], frame.BollingerHigh[i])
		}
		mid := (frame.BollingerHigh[i] + frame.BollingerLow[i]) / 2
		if math.Abs(mid-frame.SMA[i]) > 1e-9 {
			t.Fatalf("index %d: band midpoint %v != sma %v", i, mid, frame.SMA[i])
		}
	}
}

func TestGuard_PanicMarksGroupUnavailable(t *testing.T) {
	e := newTestEngine()
	frame := newFrame("BTC-GBP", rampPrices(30))
	ok := e.guard(&frame, GroupSMA, 30, 20, func() {
		frame.SMA[0] = 1
		panic("boom")
	})
	if ok {
		t.Fatal("guard returned ok after panic")
	}
	if !math.IsNaN(frame.SMA[0]) {
		t.Errorf("SMA[0] = %v, want NaN after reset", frame.SMA[0])
	}
	if len(frame.Missing) != 1 || frame.Missing[0] != GroupSMA {
		t.Errorf("Missing = %v, want [sma]", frame.Missing)
	}
}

func TestRowDefined(t *testing.T) {
	row := Row{SMA: 1, RSI: math.NaN(), MACD: 1, MACDSignal: 1, MACDDiff: math.NaN(), BollingerHigh: 2, BollingerLow: 1}
	tests := []struct {
		group Group
		want  bool
	}{
		{GroupSMA, true},
		{GroupRSI, false},
		{GroupMACD, false},
		{GroupBollinger, true},
		{Group("unknown"), false},
	}
	for _, tt := range tests {
		if got := row.Defined(tt.group); got != tt.want {
			t.Errorf("Defined(%s) = %v, want %v", tt.group, got, tt.want)
		}
	}
}
