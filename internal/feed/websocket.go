package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"tradebot/internal/metrics"
	"tradebot/types"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const DefaultURL = "wss://advanced-trade-ws.coinbase.com"

type subscribeMessage struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channel    string   `json:"channel"`
}

type tickerEnvelope struct {
	Channel   string        `json:"channel"`
	Timestamp string        `json:"timestamp"`
	Events    []tickerEvent `json:"events"`
}

type tickerEvent struct {
	Type    string        `json:"type"`
	Tickers []tickerEntry `json:"tickers"`
}

type tickerEntry struct {
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	Time      string `json:"time"`
}

// WebsocketFeed subscribes to the ticker and heartbeats channels and emits one
// tick per ticker entry of a configured product.
type WebsocketFeed struct {
	url      string
	products []string
	wanted   map[string]struct{}
	dialer   websocket.Dialer
	log      zerolog.Logger
}

func NewWebsocketFeed(url string, products []string, log zerolog.Logger) *WebsocketFeed {
	if url == "" {
		url = DefaultURL
	}
	wanted := make(map[string]struct{}, len(products))
	for _, p := range products {
		wanted[p] = struct{}{}
	}
	return &WebsocketFeed{
		url:      url,
		products: products,
		wanted:   wanted,
		dialer:   websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:      log,
	}
}

func (f *WebsocketFeed) Collect(ctx context.Context, d time.Duration, sink Sink) error {
	if len(f.products) == 0 {
		return errors.New("websocket feed requires at least one product")
	}
	window, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	conn, _, err := f.dialer.DialContext(window, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", f.url, err)
	}
	defer conn.Close()

	for _, channel := range []string{"ticker", "heartbeats"} {
		msg := subscribeMessage{Type: "subscribe", ProductIDs: f.products, Channel: channel}
		if err := conn.WriteJSON(msg); err != nil {
			return fmt.Errorf("subscribe %s: %w", channel, err)
		}
	}
	f.log.Info().Str("url", f.url).Strs("products", f.products).Dur("window", d).Msg("collecting market data")

	// Closing the connection unblocks ReadMessage when the window ends.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-window.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	conn.SetReadLimit(1 << 20)
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if window.Err() != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		for _, tick := range f.decode(message) {
			metrics.TicksTotal.WithLabelValues(tick.Instrument).Inc()
			sink.OnTick(tick)
		}
	}
}

// decode drops malformed ticker entries with a warning and never fails.
func (f *WebsocketFeed) decode(message []byte) []types.Tick {
	var env tickerEnvelope
	if err := json.Unmarshal(message, &env); err != nil {
		f.drop("decode", err, "")
		return nil
	}
	var ticks []types.Tick
	for _, event := range env.Events {
		for _, entry := range event.Tickers {
			if _, ok := f.wanted[entry.ProductID]; !ok {
				continue
			}
			tick, reason, err := parseTicker(entry, env.Timestamp)
			if err != nil {
				f.drop(reason, err, entry.ProductID)
				continue
			}
			ticks = append(ticks, tick)
		}
	}
	return ticks
}

func (f *WebsocketFeed) drop(reason string, err error, instrument string) {
	metrics.DroppedTicksTotal.WithLabelValues(reason).Inc()
	f.log.Warn().Err(err).Str("reason", reason).Str("instrument", instrument).Msg("dropping ticker")
}

func parseTicker(entry tickerEntry, fallback string) (types.Tick, string, error) {
	raw := entry.Time
	if raw == "" {
		raw = fallback
	}
	if raw == "" {
		return types.Tick{}, "no_time", errors.New("ticker without time")
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return types.Tick{}, "bad_time", err
	}
	price, err := decimal.NewFromString(entry.Price)
	if err != nil {
		return types.Tick{}, "bad_price", err
	}
	if !price.IsPositive() {
		return types.Tick{}, "bad_price", fmt.Errorf("non-positive price %s", price)
	}
	return types.Tick{Instrument: entry.ProductID, Time: ts, Price: price}, "", nil
}
