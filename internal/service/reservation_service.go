package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"reservation-service/internal/interfaces"
	"reservation-service/internal/models"
)

// ServiceConfig holds service configuration
type ServiceConfig struct {
	MaxQuantityPerReservation int
}

// Validate validates the service configuration
func (c ServiceConfig) Validate() error {
	if c.MaxQuantityPerReservation < 1 {
		return fmt.Errorf("max quantity per reservation must be positive, got %d", c.MaxQuantityPerReservation)
	}
	return nil
}

// ReservationService owns the reservation lifecycle: idempotent creation
// against the store's dedup index, and cancellation.
type ReservationService struct {
	reservations interfaces.ReservationRepository
	items        interfaces.ItemRepository
	config       ServiceConfig
}

// NewReservationService creates a new reservation service
func NewReservationService(reservations interfaces.ReservationRepository, items interfaces.ItemRepository, config ServiceConfig) (*ReservationService, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid service configuration: %w", err)
	}

	return &ReservationService{
		reservations: reservations,
		items:        items,
		config:       config,
	}, nil
}

// Reserve claims stock for a maintenance task. Idempotent under retries and
// concurrent duplicates: every caller with the same (item_code, task_id)
// receives the same reservation id, exactly one of them with Created=true.
// Safe to retry on transient failures.
func (s *ReservationService) Reserve(ctx context.Context, req *models.ReserveRequest) (*models.ReserveResponse, error) {
	if err := s.validateReserveRequest(req); err != nil {
		return nil, err
	}

	item, err := s.items.GetItem(ctx, req.ItemCode)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, &models.NotFoundError{Resource: "inventory item", ID: req.ItemCode}
	}
	if !item.IsActive {
		// The quarantine gate applies to fresh creation only. A retried
		// reserve whose slot is already held must still absorb the duplicate,
		// even when the item was quarantined in between.
		existing, err := s.reservations.FindActive(ctx, req.ItemCode, req.TaskID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			log.Debug().
				Str("reservation_id", existing.ID.String()).
				Str("item_code", existing.ItemCode).
				Str("task_id", existing.TaskID).
				Msg("Duplicate reserve on quarantined item absorbed, returning existing reservation")
			return &models.ReserveResponse{ReservationID: existing.ID, Created: false}, nil
		}
		return nil, &models.ConflictError{Resource: "inventory item", Reason: fmt.Sprintf("item %s is quarantined pending repair", req.ItemCode)}
	}

	reservation := &models.Reservation{
		ID:               uuid.New(),
		ItemCode:         req.ItemCode,
		TaskID:           req.TaskID,
		QuantityReserved: req.Quantity,
		Status:           models.ReservationStatusReserved,
		ReservedBy:       req.ReservedBy,
	}

	winner, created, err := s.reservations.FindOrCreate(ctx, reservation)
	if err != nil {
		return nil, err
	}

	if created {
		log.Info().
			Str("reservation_id", winner.ID.String()).
			Str("item_code", winner.ItemCode).
			Str("task_id", winner.TaskID).
			Int("quantity", winner.QuantityReserved).
			Msg("Created reservation")
	} else {
		log.Debug().
			Str("reservation_id", winner.ID.String()).
			Str("item_code", winner.ItemCode).
			Str("task_id", winner.TaskID).
			Msg("Duplicate reserve absorbed, returning existing reservation")
	}

	return &models.ReserveResponse{
		ReservationID: winner.ID,
		Created:       created,
	}, nil
}

// Cancel transitions Reserved -> Cancelled. No ledger effect. Concurrent
// cancel/return attempts race for a single winner on the conditional update;
// the loser gets a conflict.
func (s *ReservationService) Cancel(ctx context.Context, reservationID uuid.UUID) error {
	won, err := s.reservations.TransitionStatus(ctx, nil, reservationID,
		models.ReservationStatusReserved, models.ReservationStatusCancelled)
	if err != nil {
		return err
	}
	if won {
		log.Info().Str("reservation_id", reservationID.String()).Msg("Cancelled reservation")
		return nil
	}

	reservation, err := s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		return err
	}
	if reservation == nil {
		return &models.NotFoundError{Resource: "reservation", ID: reservationID.String()}
	}
	return &models.ConflictError{
		Resource: "reservation",
		Reason:   fmt.Sprintf("reservation is %s, only RESERVED reservations can be cancelled", reservation.Status),
	}
}

// GetReservation retrieves a reservation so callers can inspect its state,
// e.g. before retrying a return after a transient failure
func (s *ReservationService) GetReservation(ctx context.Context, reservationID uuid.UUID) (*models.Reservation, error) {
	reservation, err := s.reservations.GetReservation(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	if reservation == nil {
		return nil, &models.NotFoundError{Resource: "reservation", ID: reservationID.String()}
	}
	return reservation, nil
}

func (s *ReservationService) validateReserveRequest(req *models.ReserveRequest) error {
	if req.ItemCode == "" {
		return &models.ValidationError{Field: "item_code", Message: "item code is required"}
	}
	if req.TaskID == "" {
		return &models.ValidationError{Field: "task_id", Message: "task ID is required"}
	}
	if req.ReservedBy == "" {
		return &models.ValidationError{Field: "reserved_by", Message: "reserved_by is required"}
	}
	if req.Quantity <= 0 {
		return &models.ValidationError{Field: "quantity", Message: fmt.Sprintf("quantity must be positive, got %d", req.Quantity), Value: req.Quantity}
	}
	if req.Quantity > s.config.MaxQuantityPerReservation {
		return &models.ValidationError{Field: "quantity", Message: fmt.Sprintf("quantity %d exceeds maximum allowed %d", req.Quantity, s.config.MaxQuantityPerReservation), Value: req.Quantity}
	}
	return nil
}
