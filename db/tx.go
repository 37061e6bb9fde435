package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"Gin_postgres_redis_library/metrics"

	"gorm.io/gorm"
)

// Transactor runs fn inside one database transaction. The tx handle is only
// valid for the duration of fn.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// TxManager begins READ COMMITTED transactions on the shared pool.
type TxManager struct {
	DB *gorm.DB
}

func NewTxManager(gdb *gorm.DB) *TxManager { return &TxManager{DB: gdb} }

// WithinTx commits when fn returns nil and rolls back otherwise. A panic in fn
// rolls back and is re-raised. Errors returned by fn are passed through
// unwrapped so callers can match domain errors.
//
// Cancelling ctx does not abort a transaction that has already begun; only its
// values reach the statements.
func (m *TxManager) WithinTx(ctx context.Context, fn func(tx *gorm.DB) error) (err error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	tx := m.DB.WithContext(context.WithoutCancel(ctx)).Begin(&sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if tx.Error != nil {
		return fmt.Errorf("begin tx: %w", tx.Error)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback().Error; rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				slog.Error("rollback after panic failed", "error", rbErr)
			}
			metrics.ObserveTx(start, false)
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		metrics.ObserveTx(start, false)
		if rbErr := tx.Rollback().Error; rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			slog.Error("rollback failed", "error", rbErr, "cause", err)
			return fmt.Errorf("%w (rollback failed: %w)", err, rbErr)
		}
		return err
	}

	if err = tx.Commit().Error; err != nil {
		metrics.ObserveTx(start, false)
		return fmt.Errorf("commit tx: %w", err)
	}
	metrics.ObserveTx(start, true)
	return nil
}

// WithinTxAll runs every fn in order inside a single transaction.
func (m *TxManager) WithinTxAll(ctx context.Context, fns ...func(tx *gorm.DB) error) error {
	return m.WithinTx(ctx, func(tx *gorm.DB) error {
		for _, fn := range fns {
			if err := fn(tx); err != nil {
				return err
			}
		}
		return nil
	})
}

// InTx is WithinTx for closures that produce a value.
func InTx[T any](ctx context.Context, t Transactor, fn func(tx *gorm.DB) (T, error)) (T, error) {
	var out T
	err := t.WithinTx(ctx, func(tx *gorm.DB) error {
		v, err := fn(tx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return out, nil
}
