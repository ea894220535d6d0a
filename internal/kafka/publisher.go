package kafka

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
)

type Config struct {
	Brokers      []string
	WriteTimeout time.Duration // default 10s
	BatchTimeout time.Duration // default 50ms
}

// Publisher is a thin wrapper around segmentio/kafka-go Writer. The topic
// comes from each message, so one writer serves every outbox row.
type Publisher struct {
	w *kafka.Writer
}

func NewPublisherFromConfig(c Config) *Publisher {
	wt := c.WriteTimeout
	if wt <= 0 {
		wt = 10 * time.Second
	}
	bt := c.BatchTimeout
	if bt <= 0 {
		bt = 50 * time.Millisecond
	}

	w := &kafka.Writer{
		Addr:         kafka.TCP(c.Brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		WriteTimeout: wt,
		BatchTimeout: bt,
	}

	return &Publisher{w: w}
}

func (p *Publisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	return p.w.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   key,
		Value: value,
	})
}

func (p *Publisher) Close() error { return p.w.Close() }
