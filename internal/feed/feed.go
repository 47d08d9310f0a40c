// Package feed collects market ticks into price series.
package feed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tradebot/internal/metrics"
	"tradebot/types"

	"github.com/rs/zerolog"
)

var ErrCollectionFailed = errors.New("market data collection failed")

// Sink receives ticks as they are decoded.
type Sink interface {
	OnTick(types.Tick)
}

type SinkFunc func(types.Tick)

func (f SinkFunc) OnTick(t types.Tick) { f(t) }

// Tee forwards every tick to each sink in order.
func Tee(sinks ...Sink) Sink {
	return SinkFunc(func(t types.Tick) {
		for _, s := range sinks {
			s.OnTick(t)
		}
	})
}

// Feed streams ticks into sink for the duration d. Returning nil means the
// window elapsed normally.
type Feed interface {
	Collect(ctx context.Context, d time.Duration, sink Sink) error
}

const (
	DefaultAttempts = 5
	DefaultDelay    = 5 * time.Second
)

// Collector retries a failing feed a bounded number of times.
type Collector struct {
	feed     Feed
	attempts int
	delay    time.Duration
	log      zerolog.Logger
}

func NewCollector(feed Feed, attempts int, delay time.Duration, log zerolog.Logger) *Collector {
	if attempts < 1 {
		attempts = DefaultAttempts
	}
	if delay < 0 {
		delay = 0
	}
	return &Collector{feed: feed, attempts: attempts, delay: delay, log: log}
}

// Collect returns ErrCollectionFailed once every attempt has failed. Ticks
// delivered by failed attempts stay with the sink.
func (c *Collector) Collect(ctx context.Context, d time.Duration, sink Sink) error {
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		err := c.feed.Collect(ctx, d, sink)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err
		metrics.CollectionFailuresTotal.Inc()
		c.log.Warn().Err(err).Int("attempt", attempt).Int("attempts", c.attempts).Msg("collection failed")
		if attempt == c.attempts {
			break
		}
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrCollectionFailed, c.attempts, lastErr)
}
