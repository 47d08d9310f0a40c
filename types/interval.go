package types

import (
	"errors"
	"fmt"
	"time"
)

var ErrUnknownInterval = errors.New("unknown interval")

// Interval is a candle width, written the way the candle store labels it.
type Interval string

const (
	OneMinute     Interval = "1"
	FiveMinutes   Interval = "5"
	ThirtyMinutes Interval = "30"
	Hour          Interval = "60"
	FourHours     Interval = "240"
	Day           Interval = "D"
	Week          Interval = "W"
)

var intervalDurations = map[Interval]time.Duration{
	OneMinute:     time.Minute,
	FiveMinutes:   5 * time.Minute,
	ThirtyMinutes: 30 * time.Minute,
	Hour:          time.Hour,
	FourHours:     4 * time.Hour,
	Day:           24 * time.Hour,
	Week:          7 * 24 * time.Hour,
}

func ParseInterval(s string) (Interval, error) {
	i := Interval(s)
	if _, ok := intervalDurations[i]; !ok {
		return "", fmt.Errorf("%q: %w", s, ErrUnknownInterval)
	}
	return i, nil
}

// Duration is the candle width, zero for an unknown interval.
func (i Interval) Duration() time.Duration {
	return intervalDurations[i]
}
