package interfaces

import (
	"context"

	"github.com/google/uuid"

	"reservation-service/internal/models"
)

// Tx is an open storage transaction. Repositories accept it so that a service
// can compose several writes into one atomic unit; correctness comes from the
// storage layer, not from application-level locking.
type Tx interface {
	Commit() error
	Rollback() error
}

// ReservationRepository defines the contract for reservation storage
type ReservationRepository interface {
	BeginTx(ctx context.Context) (Tx, error)

	// FindOrCreate atomically creates the reservation or returns the active
	// reservation already holding the (item_code, task_id) slot. It is a
	// single conditional write, never a read followed by an insert.
	FindOrCreate(ctx context.Context, reservation *models.Reservation) (*models.Reservation, bool, error)

	GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error)

	// FindActive returns the RESERVED reservation holding the
	// (item_code, task_id) slot, or (nil, nil) when the slot is free
	FindActive(ctx context.Context, itemCode, taskID string) (*models.Reservation, error)

	// TransitionStatus flips a reservation from one status to another and
	// reports whether this call won the transition. A false return with a nil
	// error means the reservation was not in the expected source status.
	TransitionStatus(ctx context.Context, tx Tx, id uuid.UUID, from, to models.ReservationStatus) (bool, error)
}

// ItemRepository defines the contract for the item ledger
type ItemRepository interface {
	GetItem(ctx context.Context, itemCode string) (*models.InventoryItem, error)

	// IncrementStock applies an atomic read-modify-write to the stock counter
	// and returns the resulting level. Deltas that would drive the counter
	// negative are rejected.
	IncrementStock(ctx context.Context, tx Tx, itemCode string, delta int) (int, error)

	// Quarantine marks the item needs_repair and inactive. Idempotent:
	// quarantining an already-quarantined item is a no-op.
	Quarantine(ctx context.Context, tx Tx, itemCode, notes string) error

	// Reinstate marks the item available and active again
	Reinstate(ctx context.Context, tx Tx, itemCode string) error

	LogTransaction(ctx context.Context, tx Tx, txn *models.StockTransaction) error
	ListTransactions(ctx context.Context, itemCode string, limit int) ([]models.StockTransaction, error)
}

// ReturnRepository defines the contract for return records and the
// replacement requests they spawn
type ReturnRepository interface {
	CreateReturnRecord(ctx context.Context, tx Tx, record *models.ReturnRecord) error
	CreateReplacementRequest(ctx context.Context, tx Tx, request *models.ReplacementRequest) error
	GetReturnByReservation(ctx context.Context, reservationID uuid.UUID) (*models.ReturnRecord, error)
}

// OutboxStore stages notification events inside the owning transaction so
// they become visible to the publisher only after commit
type OutboxStore interface {
	StageNotification(ctx context.Context, tx Tx, event *models.NotificationEvent) error
}

// ItemCache defines the contract for the availability cache
type ItemCache interface {
	GetItem(ctx context.Context, itemCode string) (*models.InventoryItem, error)
	SetItem(ctx context.Context, item *models.InventoryItem) error
	DeleteItem(ctx context.Context, itemCode string) error
	Close() error
}
