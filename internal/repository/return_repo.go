package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"reservation-service/internal/interfaces"
	"reservation-service/internal/models"
)

// ReturnRepository handles database operations for return records and
// replacement requests
type ReturnRepository struct {
	db *sqlx.DB
}

// NewReturnRepository creates a new return repository
func NewReturnRepository(db *sqlx.DB) *ReturnRepository {
	return &ReturnRepository{db: db}
}

// CreateReturnRecord inserts the 1:1 return record for a reservation. The
// unique constraint on reservation_id backs the single-terminal-transition
// guarantee: a reservation can never own two return records.
func (r *ReturnRepository) CreateReturnRecord(ctx context.Context, tx interfaces.Tx, record *models.ReturnRecord) error {
	ext, err := executor(r.db, tx)
	if err != nil {
		return err
	}

	query := `INSERT INTO return_records (id, reservation_id, item_condition, quantity_returned,
			                              needs_replacement, returned_by, returned_at, notes)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = ext.ExecContext(ctx, query, record.ID, record.ReservationID, record.ItemCondition,
		record.QuantityReturned, record.NeedsReplacement, record.ReturnedBy, record.ReturnedAt, record.Notes)
	if err != nil {
		if isUniqueViolation(err) {
			return &models.ConflictError{Resource: "reservation", Reason: "a return record already exists for this reservation"}
		}
		log.Error().Err(err).Str("reservation_id", record.ReservationID.String()).Msg("Failed to create return record")
		return &models.TransientError{Op: "create return record", Cause: err}
	}

	return nil
}

// CreateReplacementRequest inserts a priority procurement request
func (r *ReturnRepository) CreateReplacementRequest(ctx context.Context, tx interfaces.Tx, request *models.ReplacementRequest) error {
	ext, err := executor(r.db, tx)
	if err != nil {
		return err
	}

	query := `INSERT INTO replacement_requests (id, item_code, quantity, replacement_for, is_priority,
			                                    status, requested_by, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`

	_, err = ext.ExecContext(ctx, query, request.ID, request.ItemCode, request.Quantity,
		request.ReplacementFor, request.IsPriority, request.Status, request.RequestedBy)
	if err != nil {
		log.Error().Err(err).Str("item_code", request.ItemCode).Msg("Failed to create replacement request")
		return &models.TransientError{Op: "create replacement request", Cause: err}
	}

	return nil
}

// GetReturnByReservation retrieves the return record owned by a reservation.
// Returns (nil, nil) when no return has been recorded.
func (r *ReturnRepository) GetReturnByReservation(ctx context.Context, reservationID uuid.UUID) (*models.ReturnRecord, error) {
	var record models.ReturnRecord
	query := `SELECT id, reservation_id, item_condition, quantity_returned, needs_replacement,
			         returned_by, returned_at, notes
			  FROM return_records WHERE reservation_id = $1`

	err := r.db.GetContext(ctx, &record, query, reservationID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		log.Error().Err(err).Str("reservation_id", reservationID.String()).Msg("Failed to get return record")
		return nil, &models.TransientError{Op: "get return record", Cause: err}
	}

	return &record, nil
}
