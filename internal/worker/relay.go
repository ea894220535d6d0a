package worker

import (
	"context"
	"time"

	"github.com/driftlab/newsletter-service/internal/kafka"
	"github.com/driftlab/newsletter-service/internal/logger"
	"github.com/driftlab/newsletter-service/internal/metrics"
	"github.com/driftlab/newsletter-service/internal/repository"
	"go.uber.org/zap"
)

// Relay drains the outbox: it polls unpublished rows, publishes each to its
// Kafka topic keyed by aggregate id, and marks the batch published. Delivery
// is at-least-once; consumers deduplicate on the event id in the payload.
type Relay struct {
	Outbox    repository.OutboxRepository
	Publisher *kafka.Publisher

	PollInterval time.Duration
	BatchSize    int
}

// NewRelay builds a relay with sane defaults.
func NewRelay(outbox repository.OutboxRepository, pub *kafka.Publisher) *Relay {
	return &Relay{
		Outbox:       outbox,
		Publisher:    pub,
		PollInterval: time.Second,
		BatchSize:    100,
	}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	if r.PollInterval <= 0 {
		r.PollInterval = time.Second
	}
	if r.BatchSize <= 0 {
		r.BatchSize = 100
	}

	ticker := time.NewTicker(r.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := r.flush(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Log.Warn("outbox flush failed", zap.Error(err))
			}
		}
	}
}

func (r *Relay) flush(ctx context.Context) error {
	events, err := r.Outbox.FetchUnpublished(ctx, r.BatchSize)
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	var published, failed []int64
	for _, ev := range events {
		if err := r.Publisher.Publish(ctx, ev.Topic, []byte(ev.AggregateID), ev.Payload); err != nil {
			metrics.OutboxPublished.WithLabelValues("error").Inc()
			logger.Log.Warn("publish outbox event",
				zap.Int64("id", ev.ID),
				zap.String("topic", ev.Topic),
				zap.Error(err),
			)
			failed = append(failed, ev.ID)
			continue
		}
		metrics.OutboxPublished.WithLabelValues("ok").Inc()
		published = append(published, ev.ID)
	}

	if err := r.Outbox.MarkPublished(ctx, published); err != nil {
		return err
	}
	return r.Outbox.MarkFailed(ctx, failed)
}
