package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"reservation-service/internal/interfaces"
	"reservation-service/internal/models"
)

// ItemRepository handles database operations for the item ledger
type ItemRepository struct {
	db *sqlx.DB
}

// NewItemRepository creates a new item ledger repository
func NewItemRepository(db *sqlx.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// GetItem retrieves a ledger entry by item code. Returns (nil, nil) when the
// item does not exist.
func (r *ItemRepository) GetItem(ctx context.Context, itemCode string) (*models.InventoryItem, error) {
	var item models.InventoryItem
	query := `SELECT item_code, item_name, building_id, current_stock, reorder_level, status, is_active,
			         condition_notes, last_restocked_at, created_at, updated_at
			  FROM inventory_items WHERE item_code = $1`

	err := r.db.GetContext(ctx, &item, query, itemCode)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		log.Error().Err(err).Str("item_code", itemCode).Msg("Failed to get inventory item")
		return nil, &models.TransientError{Op: "get inventory item", Cause: err}
	}

	return &item, nil
}

// IncrementStock applies an atomic delta to the stock counter and returns the
// new level. The read-modify-write happens inside the UPDATE itself, so
// concurrent increments serialize on the row without an optimistic retry. The
// current_stock CHECK constraint rejects negative results; that cannot happen
// on the increment-only return path but the contract holds for future
// decrement callers.
func (r *ItemRepository) IncrementStock(ctx context.Context, tx interfaces.Tx, itemCode string, delta int) (int, error) {
	ext, err := executor(r.db, tx)
	if err != nil {
		return 0, err
	}

	query := `UPDATE inventory_items
			  SET current_stock = current_stock + $2,
			      last_restocked_at = CASE WHEN $2 > 0 THEN NOW() ELSE last_restocked_at END,
			      updated_at = NOW()
			  WHERE item_code = $1
			  RETURNING current_stock`

	var newStock int
	err = ext.QueryRowxContext(ctx, query, itemCode, delta).Scan(&newStock)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, &models.NotFoundError{Resource: "inventory item", ID: itemCode}
		}
		if isCheckViolation(err) {
			return 0, &models.ValidationError{Field: "quantity", Message: "stock adjustment would drive current_stock negative", Value: delta}
		}
		log.Error().Err(err).Str("item_code", itemCode).Int("delta", delta).Msg("Failed to increment stock")
		return 0, &models.TransientError{Op: "increment stock", Cause: err}
	}

	return newStock, nil
}

// Quarantine marks an item needs_repair and inactive. Idempotent: the CASE on
// condition_notes keeps the first quarantine's notes, so repeating the call
// leaves ledger state identical to calling it once.
func (r *ItemRepository) Quarantine(ctx context.Context, tx interfaces.Tx, itemCode, notes string) error {
	ext, err := executor(r.db, tx)
	if err != nil {
		return err
	}

	query := `UPDATE inventory_items
			  SET condition_notes = CASE WHEN status = $2 THEN condition_notes ELSE $3 END,
			      status = $2,
			      is_active = FALSE,
			      updated_at = NOW()
			  WHERE item_code = $1`

	result, err := ext.ExecContext(ctx, query, itemCode, models.ItemStatusNeedsRepair, notes)
	if err != nil {
		log.Error().Err(err).Str("item_code", itemCode).Msg("Failed to quarantine item")
		return &models.TransientError{Op: "quarantine item", Cause: err}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return &models.TransientError{Op: "quarantine item", Cause: err}
	}
	if rowsAffected == 0 {
		return &models.NotFoundError{Resource: "inventory item", ID: itemCode}
	}

	return nil
}

// Reinstate marks an item available and active again after a good return
func (r *ItemRepository) Reinstate(ctx context.Context, tx interfaces.Tx, itemCode string) error {
	ext, err := executor(r.db, tx)
	if err != nil {
		return err
	}

	query := `UPDATE inventory_items
			  SET status = $2, is_active = TRUE, condition_notes = '', updated_at = NOW()
			  WHERE item_code = $1`

	result, err := ext.ExecContext(ctx, query, itemCode, models.ItemStatusAvailable)
	if err != nil {
		log.Error().Err(err).Str("item_code", itemCode).Msg("Failed to reinstate item")
		return &models.TransientError{Op: "reinstate item", Cause: err}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return &models.TransientError{Op: "reinstate item", Cause: err}
	}
	if rowsAffected == 0 {
		return &models.NotFoundError{Resource: "inventory item", ID: itemCode}
	}

	return nil
}

// LogTransaction appends an audit row for a ledger mutation
func (r *ItemRepository) LogTransaction(ctx context.Context, tx interfaces.Tx, txn *models.StockTransaction) error {
	ext, err := executor(r.db, tx)
	if err != nil {
		return err
	}

	query := `INSERT INTO stock_transactions (item_code, transaction_type, quantity, previous_stock, new_stock,
			                                  reference_type, reference_id, reason, performed_by, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`

	_, err = ext.ExecContext(ctx, query, txn.ItemCode, txn.TransactionType, txn.Quantity,
		txn.PreviousStock, txn.NewStock, txn.ReferenceType, txn.ReferenceID, txn.Reason, txn.PerformedBy)
	if err != nil {
		log.Error().Err(err).Str("item_code", txn.ItemCode).Msg("Failed to log stock transaction")
		return &models.TransientError{Op: "log stock transaction", Cause: err}
	}

	return nil
}

// ListTransactions returns the most recent ledger mutations for an item
func (r *ItemRepository) ListTransactions(ctx context.Context, itemCode string, limit int) ([]models.StockTransaction, error) {
	var transactions []models.StockTransaction
	query := `SELECT id, item_code, transaction_type, quantity, previous_stock, new_stock,
			         reference_type, reference_id, reason, performed_by, created_at
			  FROM stock_transactions
			  WHERE item_code = $1
			  ORDER BY created_at DESC
			  LIMIT $2`

	err := r.db.SelectContext(ctx, &transactions, query, itemCode, limit)
	if err != nil {
		log.Error().Err(err).Str("item_code", itemCode).Msg("Failed to list stock transactions")
		return nil, &models.TransientError{Op: "list stock transactions", Cause: err}
	}

	return transactions, nil
}
