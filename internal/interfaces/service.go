package interfaces

import (
	"context"

	"github.com/google/uuid"

	"reservation-service/internal/models"
)

// ReservationManager owns the reservation lifecycle
type ReservationManager interface {
	// Reserve is idempotent under retries and concurrent duplicate calls:
	// all callers with the same (item_code, task_id) receive the same
	// reservation id, exactly one of them with Created=true.
	Reserve(ctx context.Context, req *models.ReserveRequest) (*models.ReserveResponse, error)

	// Cancel transitions Reserved -> Cancelled with no ledger effect
	Cancel(ctx context.Context, reservationID uuid.UUID) error

	GetReservation(ctx context.Context, reservationID uuid.UUID) (*models.Reservation, error)
}

// ReturnProcessor applies the terminal return transition. Not idempotent once
// applied: callers must re-check reservation state instead of blindly
// retrying after a transient failure.
type ReturnProcessor interface {
	Return(ctx context.Context, reservationID uuid.UUID, req *models.ReturnRequest) (*models.ReturnOutcome, error)
}

// ItemReader serves the cached read path of the item ledger
type ItemReader interface {
	GetAvailability(ctx context.Context, itemCode string) (*models.ItemAvailability, error)
	ListTransactions(ctx context.Context, itemCode string, limit int) ([]models.StockTransaction, error)
}
