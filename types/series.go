package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrOutOfOrder = errors.New("sample timestamp before last sample")

// Sample is a single timestamped price observation.
type Sample struct {
	Time  time.Time
	Price decimal.Decimal
}

// Tick is a market data event as delivered by a feed.
type Tick struct {
	Instrument string
	Time       time.Time
	Price      decimal.Decimal
}

// PriceSeries is an append-only, time ordered list of samples for one instrument.
type PriceSeries struct {
	Instrument string
	samples    []Sample
}

func NewPriceSeries(instrument string) *PriceSeries {
	return &PriceSeries{Instrument: instrument}
}

// Append adds a sample. Timestamps must be non-decreasing.
func (s *PriceSeries) Append(sample Sample) error {
	if n := len(s.samples); n > 0 && sample.Time.Before(s.samples[n-1].Time) {
		return fmt.Errorf("%s at %s: %w", s.Instrument, sample.Time.Format(time.RFC3339), ErrOutOfOrder)
	}
	s.samples = append(s.samples, sample)
	return nil
}

func (s *PriceSeries) Len() int {
	return len(s.samples)
}

func (s *PriceSeries) At(i int) Sample {
	return s.samples[i]
}

// Last returns the most recent sample, false when the series is empty.
func (s *PriceSeries) Last() (Sample, bool) {
	if len(s.samples) == 0 {
		return Sample{}, false
	}
	return s.samples[len(s.samples)-1], true
}

// Snapshot returns a copy of the series that shares no storage with s.
func (s *PriceSeries) Snapshot() PriceSeries {
	out := make([]Sample, len(s.samples))
	copy(out, s.samples)
	return PriceSeries{Instrument: s.Instrument, samples: out}
}

// Closes returns the prices as float64 in insertion order.
func (s *PriceSeries) Closes() []float64 {
	out := make([]float64, len(s.samples))
	for i, sample := range s.samples {
		out[i] = sample.Price.InexactFloat64()
	}
	return out
}
