package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"reservation-service/internal/interfaces"
	"reservation-service/internal/models"
)

// OutboxEvent represents an event in the outbox table
type OutboxEvent struct {
	ID              int64     `db:"id" json:"id"`
	EventType       string    `db:"event_type" json:"event_type"`
	Key             string    `db:"key" json:"key"`
	Payload         string    `db:"payload" json:"payload"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	Published       bool      `db:"published" json:"published"`
	PublishAttempts int       `db:"publish_attempts" json:"publish_attempts"`
	LastError       *string   `db:"last_error" json:"last_error,omitempty"`
}

// OutboxRepository handles outbox operations with advisory locking. Events
// are staged in the same transaction as the domain write they describe, so a
// notification can only ever be published for a committed transition.
type OutboxRepository struct {
	db *sqlx.DB
}

// NewOutboxRepository creates a new outbox repository
func NewOutboxRepository(db *sqlx.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// StageNotification inserts a notification event into the outbox, keyed by
// item code so the publisher preserves per-item ordering
func (r *OutboxRepository) StageNotification(ctx context.Context, tx interfaces.Tx, event *models.NotificationEvent) error {
	ext, err := executor(r.db, tx)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return &models.TransientError{Op: "marshal notification event", Cause: err}
	}

	query := `INSERT INTO outbox (event_type, key, payload, created_at) VALUES ($1, $2, $3, NOW())`

	_, err = ext.ExecContext(ctx, query, event.EventType, event.ItemCode, string(payload))
	if err != nil {
		log.Error().Err(err).
			Str("event_type", event.EventType).
			Str("item_code", event.ItemCode).
			Msg("Failed to stage notification event")
		return &models.TransientError{Op: "stage notification event", Cause: err}
	}

	log.Debug().
		Str("event_type", event.EventType).
		Str("item_code", event.ItemCode).
		Msg("Staged notification event")

	return nil
}

// TryAcquireOutboxLock attempts to acquire a PostgreSQL advisory lock.
// Returns true if the lock was acquired, false if another worker has it.
func (r *OutboxRepository) TryAcquireOutboxLock(ctx context.Context, lockKey int64) (bool, error) {
	var acquired bool
	query := "SELECT pg_try_advisory_lock($1)"

	err := r.db.QueryRowContext(ctx, query, lockKey).Scan(&acquired)
	if err != nil && err != sql.ErrNoRows {
		log.Error().Err(err).Int64("lock_key", lockKey).Msg("Failed to acquire advisory lock")
		return false, &models.TransientError{Op: "acquire advisory lock", Cause: err}
	}

	return acquired, nil
}

// ReleaseOutboxLock releases the PostgreSQL advisory lock
func (r *OutboxRepository) ReleaseOutboxLock(ctx context.Context, lockKey int64) error {
	query := "SELECT pg_advisory_unlock($1)"

	var released bool
	err := r.db.QueryRowContext(ctx, query, lockKey).Scan(&released)
	if err != nil {
		log.Error().Err(err).Int64("lock_key", lockKey).Msg("Failed to release advisory lock")
		return &models.TransientError{Op: "release advisory lock", Cause: err}
	}

	if !released {
		log.Warn().Int64("lock_key", lockKey).Msg("Advisory lock was not held when trying to release")
	}

	return nil
}

// FetchOutboxBatchOrdered fetches unpublished events in insertion order.
// FOR UPDATE SKIP LOCKED keeps concurrent workers off each other's rows.
func (r *OutboxRepository) FetchOutboxBatchOrdered(ctx context.Context, limit int) ([]OutboxEvent, error) {
	query := `
		SELECT id, event_type, key, payload, created_at, published, publish_attempts, last_error
		FROM outbox
		WHERE published = false
		ORDER BY id ASC
		FOR UPDATE SKIP LOCKED
		LIMIT $1
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, &models.TransientError{Op: "begin outbox transaction", Cause: err}
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			log.Error().Err(err).Msg("Failed to rollback outbox transaction")
		}
	}()

	rows, err := tx.QueryxContext(ctx, query, limit)
	if err != nil {
		return nil, &models.TransientError{Op: "query outbox events", Cause: err}
	}
	defer rows.Close()

	var events []OutboxEvent
	for rows.Next() {
		var event OutboxEvent
		if err := rows.StructScan(&event); err != nil {
			return nil, &models.TransientError{Op: "scan outbox event", Cause: err}
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, &models.TransientError{Op: "iterate outbox rows", Cause: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &models.TransientError{Op: "commit outbox transaction", Cause: err}
	}

	return events, nil
}

// MarkOutboxPublished marks events as successfully published
func (r *OutboxRepository) MarkOutboxPublished(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		UPDATE outbox
		SET published = true,
		    published_at = NOW()
		WHERE id = ANY($1)
	`

	result, err := r.db.ExecContext(ctx, query, pq.Array(ids))
	if err != nil {
		log.Error().Err(err).Interface("ids", ids).Msg("Failed to mark outbox events as published")
		return &models.TransientError{Op: "mark outbox published", Cause: err}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return &models.TransientError{Op: "mark outbox published", Cause: err}
	}

	log.Debug().
		Int64("rows_affected", rowsAffected).
		Msg("Marked outbox events as published")

	return nil
}

// IncrementPublishAttempts increments the publish attempts counter and
// records the delivery error
func (r *OutboxRepository) IncrementPublishAttempts(ctx context.Context, id int64, lastError string) error {
	query := `
		UPDATE outbox
		SET publish_attempts = publish_attempts + 1,
		    last_error = $2,
		    updated_at = NOW()
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, lastError)
	if err != nil {
		log.Error().Err(err).Int64("id", id).Msg("Failed to increment publish attempts")
		return &models.TransientError{Op: "increment publish attempts", Cause: err}
	}

	return nil
}
