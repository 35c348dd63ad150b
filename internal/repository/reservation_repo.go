package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"reservation-service/internal/interfaces"
	"reservation-service/internal/models"
)

// findOrCreateAttempts bounds the conflict/re-read loop in FindOrCreate. More
// than one retry only happens when the winning reservation is returned or
// cancelled in the window between our insert and our re-read.
const findOrCreateAttempts = 3

// ReservationRepository handles database operations for reservations
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository creates a new reservation repository
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

// BeginTx starts a new database transaction
func (r *ReservationRepository) BeginTx(ctx context.Context) (interfaces.Tx, error) {
	return beginTx(ctx, r.db)
}

// FindOrCreate atomically claims the (item_code, task_id) active-reservation
// slot. The insert races against concurrent duplicates on the partial unique
// index reservations_active_dedup; the loser re-reads the winning row instead
// of erroring. A plain read-then-insert would leave a window where two callers
// both observe no existing reservation and both insert.
func (r *ReservationRepository) FindOrCreate(ctx context.Context, reservation *models.Reservation) (*models.Reservation, bool, error) {
	insert := `INSERT INTO reservations (id, item_code, task_id, quantity_reserved, status, reserved_by, created_at, updated_at)
			   VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
			   ON CONFLICT (item_code, task_id) WHERE status = 'RESERVED' DO NOTHING
			   RETURNING id, item_code, task_id, quantity_reserved, status, reserved_by, created_at, updated_at`

	for attempt := 0; attempt < findOrCreateAttempts; attempt++ {
		var created models.Reservation
		err := r.db.GetContext(ctx, &created, insert,
			reservation.ID, reservation.ItemCode, reservation.TaskID,
			reservation.QuantityReserved, models.ReservationStatusReserved, reservation.ReservedBy)
		if err == nil {
			return &created, true, nil
		}
		if err != sql.ErrNoRows {
			if isUniqueViolation(err) {
				// Constraint fired outside the ON CONFLICT inference path;
				// fall through to the winner re-read.
				log.Debug().Str("item_code", reservation.ItemCode).Str("task_id", reservation.TaskID).
					Msg("Reservation insert lost unique-index race")
			} else {
				log.Error().Err(err).Str("item_code", reservation.ItemCode).Msg("Failed to insert reservation")
				return nil, false, &models.TransientError{Op: "create reservation", Cause: err}
			}
		}

		// Insert was suppressed by the dedup index: an active reservation
		// already holds the slot. Return it.
		existing, err := r.FindActive(ctx, reservation.ItemCode, reservation.TaskID)
		if err != nil {
			return nil, false, err
		}
		if existing != nil {
			return existing, false, nil
		}
		// The winner left RESERVED between our insert and re-read; try again.
	}

	return nil, false, &models.TransientError{
		Op:    "find-or-create reservation",
		Cause: fmt.Errorf("contention exhausted after %d attempts", findOrCreateAttempts),
	}
}

// FindActive looks up the RESERVED reservation holding the (item_code,
// task_id) slot. Returns (nil, nil) when no active reservation holds it.
func (r *ReservationRepository) FindActive(ctx context.Context, itemCode, taskID string) (*models.Reservation, error) {
	var reservation models.Reservation
	query := `SELECT id, item_code, task_id, quantity_reserved, status, reserved_by, created_at, updated_at
			  FROM reservations
			  WHERE item_code = $1 AND task_id = $2 AND status = $3`

	err := r.db.GetContext(ctx, &reservation, query, itemCode, taskID, models.ReservationStatusReserved)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		log.Error().Err(err).Str("item_code", itemCode).Str("task_id", taskID).Msg("Failed to find active reservation")
		return nil, &models.TransientError{Op: "find active reservation", Cause: err}
	}

	return &reservation, nil
}

// GetReservation retrieves a reservation by ID. Returns (nil, nil) when the
// reservation does not exist.
func (r *ReservationRepository) GetReservation(ctx context.Context, id uuid.UUID) (*models.Reservation, error) {
	var reservation models.Reservation
	query := `SELECT id, item_code, task_id, quantity_reserved, status, reserved_by, created_at, updated_at
			  FROM reservations WHERE id = $1`

	err := r.db.GetContext(ctx, &reservation, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		log.Error().Err(err).Str("reservation_id", id.String()).Msg("Failed to get reservation")
		return nil, &models.TransientError{Op: "get reservation", Cause: err}
	}

	return &reservation, nil
}

// TransitionStatus conditionally flips a reservation's status. The WHERE
// clause on the source status makes concurrent transitions race for a single
// winner: exactly one caller sees true, every other sees false.
func (r *ReservationRepository) TransitionStatus(ctx context.Context, tx interfaces.Tx, id uuid.UUID, from, to models.ReservationStatus) (bool, error) {
	ext, err := executor(r.db, tx)
	if err != nil {
		return false, err
	}

	query := `UPDATE reservations SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`

	result, err := ext.ExecContext(ctx, query, id, from, to)
	if err != nil {
		log.Error().Err(err).Str("reservation_id", id.String()).Msg("Failed to transition reservation status")
		return false, &models.TransientError{Op: "transition reservation status", Cause: err}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, &models.TransientError{Op: "transition reservation status", Cause: err}
	}

	return rowsAffected == 1, nil
}
