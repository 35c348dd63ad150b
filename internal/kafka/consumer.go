package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"reservation-service/internal/interfaces"
	"reservation-service/internal/models"
)

// fetchBackoff is how long the consumer waits after a fetch error before
// retrying, so a broker outage does not turn the loop into a hot spin
const fetchBackoff = time.Second

// messageReader is the slice of kafka.Reader the consumer loop needs
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads notification events for the dispatcher
type Consumer struct {
	reader  messageReader
	backoff time.Duration
}

// NewConsumer creates a new Kafka consumer bound to a consumer group.
// Offsets are committed only after the handler has seen the event.
func NewConsumer(brokers []string, notificationsTopic, groupID string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          notificationsTopic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0,
		StartOffset:    kafka.FirstOffset,
		MaxWait:        500 * time.Millisecond,
	})

	return &Consumer{reader: reader, backoff: fetchBackoff}
}

// ConsumeNotifications reads events until ctx is cancelled, handing each one
// to the handler. Malformed payloads and handler errors are logged and
// committed anyway; delivery is best-effort and must never wedge the
// partition.
func (c *Consumer) ConsumeNotifications(ctx context.Context, handler interfaces.NotificationHandler) error {
	log.Info().Msg("Starting notification consumer")

	for {
		message, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				log.Info().Msg("Notification consumer stopping")
				return nil
			}
			log.Error().Err(err).Msg("Failed to fetch message")
			select {
			case <-ctx.Done():
				log.Info().Msg("Notification consumer stopping")
				return nil
			case <-time.After(c.backoff):
			}
			continue
		}

		var event models.NotificationEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			log.Error().Err(err).
				Int64("offset", message.Offset).
				Int("partition", message.Partition).
				Msg("Failed to unmarshal notification event, skipping")
		} else if err := handler.HandleNotification(ctx, &event); err != nil {
			log.Error().Err(err).
				Str("event_id", event.EventID).
				Str("event_type", event.EventType).
				Msg("Notification handler failed")
		}

		if err := c.reader.CommitMessages(ctx, message); err != nil {
			log.Error().Err(err).Int64("offset", message.Offset).Msg("Failed to commit message")
		}
	}
}

// Close closes the Kafka reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
