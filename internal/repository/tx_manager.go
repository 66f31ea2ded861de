package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type contextKey string

const txKey contextKey = "gorm_tx"

// TransactionManager manages database transactions via context injection.
type TransactionManager interface {
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type transactionManager struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// NewTransactionManager returns a manager whose transactions run at READ COMMITTED
// and give up waiting for a row lock after lockTimeout (0 keeps the server default).
func NewTransactionManager(db *gorm.DB, lockTimeout time.Duration) TransactionManager {
	return &transactionManager{db: db, lockTimeout: lockTimeout}
}

func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if t.lockTimeout > 0 {
			// SET LOCAL does not accept bind parameters.
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", t.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return fmt.Errorf("failed to set lock timeout: %w", err)
			}
		}
		txCtx := context.WithValue(ctx, txKey, tx)
		return fn(txCtx)
	}, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	return ClassifyError(err)
}

// GetDB extracts the transaction DB from context if present, otherwise returns root DB.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txKey).(*gorm.DB); ok {
		return tx.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}
