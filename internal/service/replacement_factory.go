package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"reservation-service/internal/interfaces"
	"reservation-service/internal/models"
)

// ReplacementFactory builds priority procurement requests for defective
// returns. Pure creation: it writes the request inside the caller's
// transaction and nothing else. Notification is the return processor's job,
// staged only after this factory succeeds, so a failed notification never
// rolls back a created request and a failed creation never notifies.
type ReplacementFactory struct {
	returns interfaces.ReturnRepository
}

// NewReplacementFactory creates a new replacement request factory
func NewReplacementFactory(returns interfaces.ReturnRepository) *ReplacementFactory {
	return &ReplacementFactory{returns: returns}
}

// CreateReplacement creates a priority replacement request linked back to the
// originating reservation and returns its id
func (f *ReplacementFactory) CreateReplacement(ctx context.Context, tx interfaces.Tx, itemCode string, quantity int, originatingReservationID uuid.UUID, requestedBy string) (uuid.UUID, error) {
	if quantity <= 0 {
		return uuid.Nil, &models.ValidationError{Field: "quantity", Message: fmt.Sprintf("replacement quantity must be positive, got %d", quantity), Value: quantity}
	}

	request := &models.ReplacementRequest{
		ID:             uuid.New(),
		ItemCode:       itemCode,
		Quantity:       quantity,
		ReplacementFor: originatingReservationID,
		IsPriority:     true,
		Status:         "pending",
		RequestedBy:    requestedBy,
	}

	if err := f.returns.CreateReplacementRequest(ctx, tx, request); err != nil {
		return uuid.Nil, err
	}

	log.Info().
		Str("request_id", request.ID.String()).
		Str("item_code", itemCode).
		Str("reservation_id", originatingReservationID.String()).
		Int("quantity", quantity).
		Msg("Created priority replacement request")

	return request.ID, nil
}
