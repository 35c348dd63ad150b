package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"reservation-service/internal/interfaces"
	"reservation-service/internal/models"
)

// sqlTx adapts *sqlx.Tx to the interfaces.Tx handle services hold
type sqlTx struct {
	tx *sqlx.Tx
}

func (t *sqlTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqlTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && err != sql.ErrTxDone {
		return err
	}
	return nil
}

func beginTx(ctx context.Context, db *sqlx.DB) (interfaces.Tx, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, &models.TransientError{Op: "begin transaction", Cause: err}
	}
	return &sqlTx{tx: tx}, nil
}

// executor resolves the query target: the transaction when one is open,
// otherwise the pool itself.
func executor(db *sqlx.DB, tx interfaces.Tx) (sqlx.ExtContext, error) {
	if tx == nil {
		return db, nil
	}
	st, ok := tx.(*sqlTx)
	if !ok {
		return nil, fmt.Errorf("unexpected transaction type %T", tx)
	}
	return st.tx, nil
}

// isUniqueViolation reports whether err is a PostgreSQL unique constraint
// violation (SQLSTATE 23505)
func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

// isCheckViolation reports whether err is a PostgreSQL check constraint
// violation (SQLSTATE 23514)
func isCheckViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23514"
	}
	return false
}
