package indicator

import "math"

// Group names one indicator family of a frame.
type Group string

const (
	GroupSMA       Group = "sma"
	GroupRSI       Group = "rsi"
	GroupMACD      Group = "macd"
	GroupBollinger Group = "bollinger"
)

// Frame is the indicator view of a price series, aligned by index. Undefined
// values are NaN.
type Frame struct {
	Instrument    string
	Price         []float64
	SMA           []float64
	RSI           []float64
	MACD          []float64
	MACDSignal    []float64
	MACDDiff      []float64
	BollingerHigh []float64
	BollingerLow  []float64
	// MACDSeeded is false while the signal line has less than a full window of MACD values behind it.
	MACDSeeded []bool
	// Missing lists groups that could not be computed for any row.
	Missing []Group
}

// Row is a single sample of a frame.
type Row struct {
	Index         int
	Price         float64
	SMA           float64
	RSI           float64
	MACD          float64
	MACDSignal    float64
	MACDDiff      float64
	BollingerHigh float64
	BollingerLow  float64
	MACDSeeded    bool
}

func newFrame(instrument string, prices []float64) Frame {
	n := len(prices)
	return Frame{
		Instrument:    instrument,
		Price:         prices,
		SMA:           nanSlice(n),
		RSI:           nanSlice(n),
		MACD:          nanSlice(n),
		MACDSignal:    nanSlice(n),
		MACDDiff:      nanSlice(n),
		BollingerHigh: nanSlice(n),
		BollingerLow:  nanSlice(n),
		MACDSeeded:    make([]bool, n),
	}
}

func (f Frame) Len() int {
	return len(f.Price)
}

func (f Frame) Row(i int) Row {
	return Row{
		Index:         i,
		Price:         f.Price[i],
		SMA:           f.SMA[i],
		RSI:           f.RSI[i],
		MACD:          f.MACD[i],
		MACDSignal:    f.MACDSignal[i],
		MACDDiff:      f.MACDDiff[i],
		BollingerHigh: f.BollingerHigh[i],
		BollingerLow:  f.BollingerLow[i],
		MACDSeeded:    f.MACDSeeded[i],
	}
}

// Last returns the most recent row.
func (f Frame) Last() (Row, bool) {
	if f.Len() == 0 {
		return Row{}, false
	}
	return f.Row(f.Len() - 1), true
}

// Defined reports whether every value of the group is available on this row.
func (r Row) Defined(g Group) bool {
	switch g {
	case GroupSMA:
		return defined(r.SMA)
	case GroupRSI:
		return defined(r.RSI)
	case GroupMACD:
		return defined(r.MACD) && defined(r.MACDSignal) && defined(r.MACDDiff)
	case GroupBollinger:
		return defined(r.BollingerHigh) && defined(r.BollingerLow)
	default:
		return false
	}
}

func defined(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}
