package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"tradebot/types"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka publishes events keyed by instrument, so one instrument's orders stay
// on one partition in order.
type Kafka struct {
	w messageWriter
}

func NewKafka(brokers []string, topic string) *Kafka {
	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      brokers,
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		Dialer:       dialer,
		BatchTimeout: 200 * time.Millisecond,
		RequiredAcks: int(kafka.RequireOne),
	})
	return &Kafka{w: w}
}

func (k *Kafka) Record(ctx context.Context, event types.OrderEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event.ClientOrderID, err)
	}
	msg := kafka.Message{Key: []byte(event.Instrument), Value: b, Time: event.Time}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.ClientOrderID, err)
	}
	return nil
}

func (k *Kafka) Close() error {
	return k.w.Close()
}
