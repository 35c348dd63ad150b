package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"reservation-service/internal/interfaces"
	"reservation-service/internal/models"
)

// ReturnService applies the terminal return transition for a reservation.
// The status flip, ledger mutation, return record and staged notifications
// form a single transaction: partial application is impossible, and
// concurrent returns on the same reservation have exactly one winner.
//
// Not idempotent once applied. After a transient failure the caller must
// re-check reservation state instead of blindly resubmitting; a second apply
// would double-credit stock or double-quarantine.
type ReturnService struct {
	reservations interfaces.ReservationRepository
	items        interfaces.ItemRepository
	returns      interfaces.ReturnRepository
	outbox       interfaces.OutboxStore
	factory      *ReplacementFactory
	cache        interfaces.ItemCache
}

// NewReturnService creates a new return service
func NewReturnService(
	reservations interfaces.ReservationRepository,
	items interfaces.ItemRepository,
	returns interfaces.ReturnRepository,
	outbox interfaces.OutboxStore,
	factory *ReplacementFactory,
	cache interfaces.ItemCache,
) *ReturnService {
	return &ReturnService{
		reservations: reservations,
		items:        items,
		returns:      returns,
		outbox:       outbox,
		factory:      factory,
		cache:        cache,
	}
}

// Return transitions a reservation out of RESERVED according to the item's
// condition. Good items go back into stock; defective items are quarantined
// and may spawn a priority replacement request.
func (s *ReturnService) Return(ctx context.Context, reservationID uuid.UUID, req *models.ReturnRequest) (*models.ReturnOutcome, error) {
	condition, err := models.ParseItemCondition(req.ItemCondition)
	if err != nil {
		return nil, err
	}
	if req.QuantityReturned <= 0 {
		return nil, &models.ValidationError{Field: "quantity_returned", Message: fmt.Sprintf("quantity returned must be positive, got %d", req.QuantityReturned), Value: req.QuantityReturned}
	}
	if req.ReturnedBy == "" {
		return nil, &models.ValidationError{Field: "returned_by", Message: "returned_by is required"}
	}

	reservation, err := s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if reservation == nil {
		return nil, &models.NotFoundError{Resource: "reservation", ID: reservationID.String()}
	}
	if reservation.Status != models.ReservationStatusReserved {
		return nil, &models.ConflictError{
			Resource: "reservation",
			Reason:   fmt.Sprintf("reservation is %s, only RESERVED reservations can be returned", reservation.Status),
		}
	}
	if req.QuantityReturned > reservation.QuantityReserved {
		return nil, &models.ValidationError{
			Field:   "quantity_returned",
			Message: fmt.Sprintf("quantity returned %d exceeds quantity reserved %d", req.QuantityReturned, reservation.QuantityReserved),
			Value:   req.QuantityReturned,
		}
	}

	item, err := s.items.GetItem(ctx, reservation.ItemCode)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, &models.NotFoundError{Resource: "inventory item", ID: reservation.ItemCode}
	}

	tx, err := s.reservations.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// The conditional flip is the authoritative race arbiter: of any number
	// of concurrent return or cancel attempts, exactly one commits.
	won, err := s.reservations.TransitionStatus(ctx, tx, reservationID,
		models.ReservationStatusReserved, models.ReservationStatusReturned)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, &models.ConflictError{
			Resource: "reservation",
			Reason:   "reservation already left the RESERVED state",
		}
	}

	outcome := &models.ReturnOutcome{
		ReservationID:    reservationID,
		ItemCode:         reservation.ItemCode,
		QuantityReturned: req.QuantityReturned,
		ItemCondition:    condition,
		IsDefective:      condition == models.ItemConditionDefective,
		NeedsReplacement: condition == models.ItemConditionDefective && req.NeedsReplacement,
	}

	switch condition {
	case models.ItemConditionGood:
		if err := s.applyGoodReturn(ctx, tx, reservation, item, req, outcome); err != nil {
			return nil, err
		}
	case models.ItemConditionDefective:
		if err := s.applyDefectiveReturn(ctx, tx, reservation, item, req, outcome); err != nil {
			return nil, err
		}
	}

	returnedAt := time.Now()
	if req.DateReturned != nil {
		returnedAt = *req.DateReturned
	}

	record := &models.ReturnRecord{
		ID:               uuid.New(),
		ReservationID:    reservationID,
		ItemCondition:    condition,
		QuantityReturned: req.QuantityReturned,
		NeedsReplacement: outcome.NeedsReplacement,
		ReturnedBy:       req.ReturnedBy,
		ReturnedAt:       returnedAt,
		Notes:            req.Notes,
	}
	if err := s.returns.CreateReturnRecord(ctx, tx, record); err != nil {
		return nil, err
	}
	outcome.ReturnID = record.ID

	if err := tx.Commit(); err != nil {
		return nil, &models.TransientError{Op: "commit return transaction", Cause: err}
	}

	log.Info().
		Str("reservation_id", reservationID.String()).
		Str("item_code", reservation.ItemCode).
		Str("condition", string(condition)).
		Int("quantity_returned", req.QuantityReturned).
		Str("status", outcome.Status).
		Msg("Processed reservation return")

	s.invalidateCache(reservation.ItemCode)

	return outcome, nil
}

// applyGoodReturn credits the returned quantity back to the ledger and
// reinstates the item
func (s *ReturnService) applyGoodReturn(ctx context.Context, tx interfaces.Tx, reservation *models.Reservation, item *models.InventoryItem, req *models.ReturnRequest, outcome *models.ReturnOutcome) error {
	newStock, err := s.items.IncrementStock(ctx, tx, reservation.ItemCode, req.QuantityReturned)
	if err != nil {
		return err
	}

	if err := s.items.Reinstate(ctx, tx, reservation.ItemCode); err != nil {
		return err
	}

	reason := req.Notes
	if reason == "" {
		reason = "Returned in good condition"
	}
	txn := &models.StockTransaction{
		ItemCode:        reservation.ItemCode,
		TransactionType: models.TransactionTypeIn,
		Quantity:        req.QuantityReturned,
		PreviousStock:   newStock - req.QuantityReturned,
		NewStock:        newStock,
		ReferenceType:   "reservation_return",
		ReferenceID:     reservation.ID.String(),
		Reason:          reason,
		PerformedBy:     req.ReturnedBy,
	}
	if err := s.items.LogTransaction(ctx, tx, txn); err != nil {
		return err
	}

	if level := models.LowStockLevel(newStock, item.ReorderLevel); level != "" {
		stock := newStock
		reorder := item.ReorderLevel
		event := &models.NotificationEvent{
			EventID:      uuid.New().String(),
			EventType:    models.EventTypeLowStock,
			Audience:     models.AudienceAdmin,
			ItemCode:     item.ItemCode,
			ItemName:     item.ItemName,
			StockLevel:   &stock,
			ReorderLevel: &reorder,
			AlertLevel:   level,
			Message:      fmt.Sprintf("%s stock is %s: %d on hand, reorder level %d", item.ItemName, level, newStock, item.ReorderLevel),
			Timestamp:    time.Now(),
		}
		if err := s.outbox.StageNotification(ctx, tx, event); err != nil {
			return err
		}
	}

	outcome.Status = models.ReturnStatusAvailable
	outcome.NewStock = &newStock
	return nil
}

// applyDefectiveReturn quarantines the item, leaving the stock counter
// untouched, and optionally spawns a priority replacement request
func (s *ReturnService) applyDefectiveReturn(ctx context.Context, tx interfaces.Tx, reservation *models.Reservation, item *models.InventoryItem, req *models.ReturnRequest, outcome *models.ReturnOutcome) error {
	if err := s.items.Quarantine(ctx, tx, reservation.ItemCode, req.Notes); err != nil {
		return err
	}

	resID := reservation.ID
	quarantined := &models.NotificationEvent{
		EventID:       uuid.New().String(),
		EventType:     models.EventTypeItemQuarantined,
		Audience:      models.AudienceAdmin,
		ItemCode:      item.ItemCode,
		ItemName:      item.ItemName,
		ReservationID: &resID,
		Quantity:      req.QuantityReturned,
		Message:       fmt.Sprintf("%s returned defective and quarantined pending repair", item.ItemName),
		Timestamp:     time.Now(),
	}
	if err := s.outbox.StageNotification(ctx, tx, quarantined); err != nil {
		return err
	}

	if req.NeedsReplacement {
		requestID, err := s.factory.CreateReplacement(ctx, tx, reservation.ItemCode, req.QuantityReturned, reservation.ID, req.ReturnedBy)
		if err != nil {
			return err
		}
		outcome.ReplacementRequestID = &requestID

		replacement := &models.NotificationEvent{
			EventID:       uuid.New().String(),
			EventType:     models.EventTypeReplacementRequested,
			Audience:      models.AudienceAdmin,
			ItemCode:      item.ItemCode,
			ItemName:      item.ItemName,
			ReservationID: &resID,
			Quantity:      req.QuantityReturned,
			Message:       fmt.Sprintf("Priority replacement requested for %s (%d pcs)", item.ItemName, req.QuantityReturned),
			Timestamp:     time.Now(),
		}
		if err := s.outbox.StageNotification(ctx, tx, replacement); err != nil {
			return err
		}
	}

	outcome.Status = models.ReturnStatusQuarantined
	outcome.NewStock = nil
	return nil
}

// invalidateCache drops the item's cached availability after a ledger
// mutation. Best-effort and off the request path, like every cache write.
func (s *ReturnService) invalidateCache(itemCode string) {
	if s.cache == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := s.cache.DeleteItem(ctx, itemCode); err != nil {
			log.Error().Err(err).Str("item_code", itemCode).Msg("Failed to invalidate item cache after return")
		}
	}()
}
