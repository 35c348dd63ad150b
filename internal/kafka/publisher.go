package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"reservation-service/internal/models"
	"reservation-service/internal/repository"
)

// Publisher handles publishing notification events to Kafka
type Publisher struct {
	writer *kafka.Writer
}

// NewPublisher creates a new Kafka publisher for the notifications topic.
// The hash balancer routes messages with the same key (item code) to the
// same partition so per-item ordering is preserved.
func NewPublisher(brokers []string, notificationsTopic string) *Publisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  notificationsTopic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		Async:                  false,
		AllowAutoTopicCreation: true,

		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    1,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
	}

	return &Publisher{writer: writer}
}

// PublishNotification publishes a notification event directly
func (p *Publisher) PublishNotification(ctx context.Context, event *models.NotificationEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification event: %w", err)
	}

	return p.publish(ctx, event.EventType, event.EventID, event.ItemCode, data)
}

// PublishOutboxEvent publishes an event drained from the outbox, carrying
// the payload bytes through unchanged
func (p *Publisher) PublishOutboxEvent(ctx context.Context, event *repository.OutboxEvent) error {
	return p.publish(ctx, event.EventType, fmt.Sprintf("%d", event.ID), event.Key, []byte(event.Payload))
}

func (p *Publisher) publish(ctx context.Context, eventType, eventID, key string, payload []byte) error {
	message := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(eventType)},
			{Key: "event-id", Value: []byte(eventID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Str("key", key).Msg("Failed to publish notification event")
		return fmt.Errorf("failed to publish notification event: %w", err)
	}

	log.Debug().Str("event_type", eventType).Str("key", key).Msg("Published notification event")
	return nil
}

// OutboxWorkerConfig tunes the outbox drain loop
type OutboxWorkerConfig struct {
	BatchSize    int
	PollInterval time.Duration
	LockKey      int64
}

// RunOutboxPublisher drains unpublished outbox events and publishes them in
// insertion order. The advisory lock keeps a single worker active across
// instances; SKIP LOCKED covers the rows themselves. Blocks until ctx is
// cancelled.
func (p *Publisher) RunOutboxPublisher(ctx context.Context, outboxRepo *repository.OutboxRepository, cfg OutboxWorkerConfig) {
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Outbox publisher stopping")
			return
		case <-ticker.C:
			if err := p.drainOutboxOnce(ctx, outboxRepo, cfg); err != nil {
				log.Error().Err(err).Msg("Outbox drain pass failed")
			}
		}
	}
}

func (p *Publisher) drainOutboxOnce(ctx context.Context, outboxRepo *repository.OutboxRepository, cfg OutboxWorkerConfig) error {
	acquired, err := outboxRepo.TryAcquireOutboxLock(ctx, cfg.LockKey)
	if err != nil {
		return err
	}
	if !acquired {
		return nil
	}
	defer func() {
		if err := outboxRepo.ReleaseOutboxLock(ctx, cfg.LockKey); err != nil {
			log.Error().Err(err).Msg("Failed to release outbox lock")
		}
	}()

	events, err := outboxRepo.FetchOutboxBatchOrdered(ctx, cfg.BatchSize)
	if err != nil {
		return err
	}

	var published []int64
	for i := range events {
		event := &events[i]
		if err := p.PublishOutboxEvent(ctx, event); err != nil {
			// Stop the batch here: publishing out of order would break the
			// per-item ordering the hash balancer provides.
			if attemptErr := outboxRepo.IncrementPublishAttempts(ctx, event.ID, err.Error()); attemptErr != nil {
				log.Error().Err(attemptErr).Int64("id", event.ID).Msg("Failed to record publish attempt")
			}
			break
		}
		published = append(published, event.ID)
	}

	if len(published) > 0 {
		if err := outboxRepo.MarkOutboxPublished(ctx, published); err != nil {
			return err
		}
	}

	return nil
}

// Close closes the Kafka writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}
