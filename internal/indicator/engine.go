// Package indicator computes trend, momentum and volatility indicators over a
// price series.
package indicator

import (
	"math"

	"tradebot/types"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"
)

type Config struct {
	SMAWindow           int     `yaml:"sma_window"`
	RSIWindow           int     `yaml:"rsi_window"`
	MACDFast            int     `yaml:"macd_fast"`
	MACDSlow            int     `yaml:"macd_slow"`
	MACDSignal          int     `yaml:"macd_signal"`
	BollingerWindow     int     `yaml:"bollinger_window"`
	BollingerDeviations float64 `yaml:"bollinger_deviations"`
}

func DefaultConfig() Config {
	return Config{
		SMAWindow:           20,
		RSIWindow:           14,
		MACDFast:            12,
		MACDSlow:            26,
		MACDSignal:          9,
		BollingerWindow:     20,
		BollingerDeviations: 2,
	}
}

// Engine recomputes a full Frame from a series on every call; it keeps no
// state between calls.
type Engine struct {
	cfg Config
	log zerolog.Logger
}

func NewEngine(cfg Config, log zerolog.Logger) *Engine {
	return &Engine{cfg: cfg, log: log}
}

// Compute never fails. Groups without enough history, or whose computation
// panics, stay NaN and are listed in Frame.Missing.
func (e *Engine) Compute(series *types.PriceSeries) Frame {
	closes := series.Closes()
	n := len(closes)
	frame := newFrame(series.Instrument, closes)

	e.guard(&frame, GroupSMA, n, e.cfg.SMAWindow, func() {
		for i := e.cfg.SMAWindow - 1; i < n; i++ {
			frame.SMA[i], _ = windowStats(closes, i, e.cfg.SMAWindow)
		}
	})

	e.guard(&frame, GroupRSI, n, e.cfg.RSIWindow+1, func() {
		copy(frame.RSI, wilderRSI(closes, e.cfg.RSIWindow))
	})

	e.guard(&frame, GroupMACD, n, e.cfg.MACDSlow, func() {
		macd, signal, diff, seeded := e.macd(closes)
		copy(frame.MACD, macd)
		copy(frame.MACDSignal, signal)
		copy(frame.MACDDiff, diff)
		copy(frame.MACDSeeded, seeded)
	})

	e.guard(&frame, GroupBollinger, n, e.cfg.BollingerWindow, func() {
		for i := e.cfg.BollingerWindow - 1; i < n; i++ {
			mean, std := windowStats(closes, i, e.cfg.BollingerWindow)
			frame.BollingerHigh[i] = mean + e.cfg.BollingerDeviations*std
			frame.BollingerLow[i] = mean - e.cfg.BollingerDeviations*std
		}
	})

	if len(frame.Missing) > 0 {
		e.log.Debug().
			Str("instrument", series.Instrument).
			Int("samples", n).
			Interface("missing", frame.Missing).
			Msg("insufficient data for indicators")
	}
	return frame
}

// guard runs fn when at least minSamples samples exist. A panic inside fn leaves the
// group's values undefined.
func (e *Engine) guard(frame *Frame, g Group, n, minSamples int, fn func()) (ok bool) {
	if minSamples < 1 || n < minSamples {
		frame.Missing = append(frame.Missing, g)
		return false
	}
	defer func() {
		if r := recover(); r != nil {
			e.log.Warn().
				Str("instrument", frame.Instrument).
				Str("indicator", string(g)).
				Interface("panic", r).
				Msg("indicator unavailable")
			resetGroup(frame, g)
			frame.Missing = append(frame.Missing, g)
			ok = false
		}
	}()
	fn()
	return true
}

// macd returns the MACD line from the slow EMA's first value onward. The
// signal line is seeded with the first MACD value, so it is defined as early
// as the MACD line but only flagged as seeded once a full signal window of
// MACD values exists.
func (e *Engine) macd(closes []float64) (macd, signal, diff []float64, seeded []bool) {
	n := len(closes)
	macd, signal, diff = nanSlice(n), nanSlice(n), nanSlice(n)
	seeded = make([]bool, n)

	// Both lines share the same offset, so it cancels in fast-slow and a flat
	// series stays at exactly zero.
	offsets := offsetsFrom(closes, closes[0])
	fast := talib.Ema(offsets, e.cfg.MACDFast)
	slow := talib.Ema(offsets, e.cfg.MACDSlow)
	start := e.cfg.MACDSlow - 1
	if e.cfg.MACDFast-1 > start {
		start = e.cfg.MACDFast - 1
	}

	k := 2.0 / float64(e.cfg.MACDSignal+1)
	for i := start; i < n; i++ {
		macd[i] = fast[i] - slow[i]
		if i == start {
			signal[i] = macd[i]
		} else {
			signal[i] = signal[i-1] + (macd[i]-signal[i-1])*k
		}
		diff[i] = macd[i] - signal[i]
		seeded[i] = i >= start+e.cfg.MACDSignal-1
	}
	return macd, signal, diff, seeded
}

// wilderRSI is defined once window price deltas exist. A window without any
// movement is neutral (50).
func wilderRSI(closes []float64, window int) []float64 {
	out := nanSlice(len(closes))
	if window < 1 || len(closes) <= window {
		return out
	}
	var avgGain, avgLoss float64
	for i := 1; i <= window; i++ {
		gain, loss := delta(closes[i-1], closes[i])
		avgGain += gain
		avgLoss += loss
	}
	avgGain /= float64(window)
	avgLoss /= float64(window)
	out[window] = rsiValue(avgGain, avgLoss)

	for i := window + 1; i < len(closes); i++ {
		gain, loss := delta(closes[i-1], closes[i])
		avgGain = (avgGain*float64(window-1) + gain) / float64(window)
		avgLoss = (avgLoss*float64(window-1) + loss) / float64(window)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func delta(prev, cur float64) (gain, loss float64) {
	d := cur - prev
	if d > 0 {
		return d, 0
	}
	return 0, -d
}

func rsiValue(avgGain, avgLoss float64) float64 {
	switch {
	case avgGain == 0 && avgLoss == 0:
		return 50
	case avgLoss == 0:
		return 100
	default:
		return 100 - 100/(1+avgGain/avgLoss)
	}
}

// windowStats returns the mean and population standard deviation of the
// window ending at i. Values are taken relative to closes[i], so a window of
// equal prices yields exactly that price and a zero deviation.
func windowStats(closes []float64, i, window int) (mean, std float64) {
	ref := closes[i]
	var sum float64
	for _, p := range closes[i-window+1 : i+1] {
		sum += p - ref
	}
	offset := sum / float64(window)

	var sq float64
	for _, p := range closes[i-window+1 : i+1] {
		d := p - ref - offset
		sq += d * d
	}
	return ref + offset, math.Sqrt(sq / float64(window))
}

func offsetsFrom(values []float64, ref float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v - ref
	}
	return out
}

func resetGroup(frame *Frame, g Group) {
	n := frame.Len()
	switch g {
	case GroupSMA:
		frame.SMA = nanSlice(n)
	case GroupRSI:
		frame.RSI = nanSlice(n)
	case GroupMACD:
		frame.MACD, frame.MACDSignal, frame.MACDDiff = nanSlice(n), nanSlice(n), nanSlice(n)
		frame.MACDSeeded = make([]bool, n)
	case GroupBollinger:
		frame.BollingerHigh, frame.BollingerLow = nanSlice(n), nanSlice(n)
	}
}
