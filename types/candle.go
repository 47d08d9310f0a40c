package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Candle struct {
	Ticker    string          `json:"ticker"`
	Open      decimal.Decimal `json:"open"`
	Close     decimal.Decimal `json:"close"`
	High      decimal.Decimal `json:"high" `
	Low       decimal.Decimal `json:"low"`
	Volume    decimal.Decimal `json:"volume"`
	Interval  Interval        `json:"interval"`
	Timestamp time.Time       `json:"timestamp"`
}

// SeriesFromCandles builds a price series from candle closes. Candles are
// expected in chronological order.
func SeriesFromCandles(instrument string, candles []Candle) (*PriceSeries, error) {
	series := NewPriceSeries(instrument)
	for _, c := range candles {
		if err := series.Append(Sample{Time: c.Timestamp, Price: c.Close}); err != nil {
			return nil, err
		}
	}
	return series, nil
}
