package interfaces

import (
	"context"

	"reservation-service/internal/models"
)

// NotificationPublisher defines the contract for publishing notification
// events to the dispatcher's transport
type NotificationPublisher interface {
	PublishNotification(ctx context.Context, event *models.NotificationEvent) error
	Close() error
}

// NotificationHandler processes a delivered notification event. Delivery is
// best-effort; a handler error is logged by the consumer, never propagated
// back into the core.
type NotificationHandler interface {
	HandleNotification(ctx context.Context, event *models.NotificationEvent) error
}

// NotificationConsumer defines the contract for consuming notification events
type NotificationConsumer interface {
	ConsumeNotifications(ctx context.Context, handler NotificationHandler) error
	Close() error
}
