package notifier

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"reservation-service/internal/models"
)

// Dispatcher routes notification events to their audience. Delivery is
// best-effort: a failed dispatch is logged and the event is dropped, never
// retried into the core flow.
//
// The only channel wired today is the structured log; the per-type routing is
// where mail or chat transports would attach.
type Dispatcher struct {
	serviceName string
}

// NewDispatcher creates a new notification dispatcher
func NewDispatcher(serviceName string) *Dispatcher {
	return &Dispatcher{serviceName: serviceName}
}

// HandleNotification dispatches a single notification event
func (d *Dispatcher) HandleNotification(ctx context.Context, event *models.NotificationEvent) error {
	switch event.EventType {
	case models.EventTypeItemQuarantined:
		return d.dispatchQuarantine(event)
	case models.EventTypeReplacementRequested:
		return d.dispatchReplacement(event)
	case models.EventTypeLowStock:
		return d.dispatchLowStock(event)
	default:
		log.Warn().
			Str("event_id", event.EventID).
			Str("event_type", event.EventType).
			Msg("Unknown notification event type, dropping")
		return nil
	}
}

func (d *Dispatcher) dispatchQuarantine(event *models.NotificationEvent) error {
	log.Info().
		Str("event_id", event.EventID).
		Str("audience", event.Audience).
		Str("item_code", event.ItemCode).
		Str("reservation_id", reservationIDString(event)).
		Int("quantity", event.Quantity).
		Str("message", event.Message).
		Msg("Notify: item quarantined")
	return nil
}

func (d *Dispatcher) dispatchReplacement(event *models.NotificationEvent) error {
	log.Info().
		Str("event_id", event.EventID).
		Str("audience", event.Audience).
		Str("item_code", event.ItemCode).
		Str("reservation_id", reservationIDString(event)).
		Int("quantity", event.Quantity).
		Str("message", event.Message).
		Msg("Notify: priority replacement requested")
	return nil
}

func (d *Dispatcher) dispatchLowStock(event *models.NotificationEvent) error {
	if event.StockLevel == nil || event.ReorderLevel == nil {
		return fmt.Errorf("low stock event %s missing stock levels", event.EventID)
	}

	entry := log.Info()
	if *event.StockLevel == 0 {
		entry = log.Warn()
	}
	entry.
		Str("event_id", event.EventID).
		Str("audience", event.Audience).
		Str("item_code", event.ItemCode).
		Str("alert_level", event.AlertLevel).
		Int("stock_level", *event.StockLevel).
		Int("reorder_level", *event.ReorderLevel).
		Str("message", event.Message).
		Msg("Notify: low stock alert")
	return nil
}

func reservationIDString(event *models.NotificationEvent) string {
	if event.ReservationID == nil {
		return ""
	}
	return event.ReservationID.String()
}
