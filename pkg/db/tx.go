package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/soledrop/soledrop-backend/pkg/config"
	pkgerrors "github.com/soledrop/soledrop-backend/pkg/errors"
)

const (
	pgQueryCanceled     = "57014"
	pgLockNotAvailable  = "55P03"
	pgUniqueViolation   = "23505"
	pgForeignKeyViolate = "23503"
)

// TxOptions bounds a transactional scope. MaxWait limits how long opening the
// transaction (and, on Postgres, any single lock wait) may take; Timeout limits
// the work done inside it.
type TxOptions struct {
	MaxWait time.Duration
	Timeout time.Duration
}

// TxOptionsFromConfig maps the configured budget onto TxOptions.
func TxOptionsFromConfig(cfg config.TxConfig) TxOptions {
	return TxOptions{MaxWait: cfg.MaxWait, Timeout: cfg.Timeout}
}

// WithBoundedTx runs fn inside a transaction that is rolled back and reported as
// TRANSACTION_TIMEOUT once its budget (or the caller's deadline) runs out.
func (c *Client) WithBoundedTx(ctx context.Context, opts TxOptions, fn func(tx *gorm.DB) error) error {
	if opts.MaxWait <= 0 && opts.Timeout <= 0 {
		return c.WithTx(ctx, fn)
	}

	txCtx, cancel := context.WithTimeout(ctx, opts.MaxWait+opts.Timeout)
	defer cancel()

	started := time.Now()
	tx := c.conn.WithContext(txCtx).Begin()
	if tx.Error != nil {
		if txCtx.Err() != nil {
			return abortError(txCtx, tx.Error, "begin")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, tx.Error, "db: begin transaction")
	}
	if waited := time.Since(started); opts.MaxWait > 0 && waited > opts.MaxWait {
		_ = tx.Rollback()
		return pkgerrors.New(pkgerrors.CodeTxTimeout, fmt.Sprintf("waited %s for a transaction, budget %s", waited.Round(time.Millisecond), opts.MaxWait))
	}

	execCtx := txCtx
	if opts.Timeout > 0 {
		var execCancel context.CancelFunc
		execCtx, execCancel = context.WithTimeout(txCtx, opts.Timeout)
		defer execCancel()
	}
	tx = tx.WithContext(execCtx)

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if c.Dialect() == config.DriverPostgres {
		if err := applyLocalTimeouts(tx, opts); err != nil {
			_ = tx.Rollback()
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: set transaction timeouts")
		}
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if execCtx.Err() != nil {
			return abortError(execCtx, err, "execute")
		}
		if isPgTimeout(err) {
			return pkgerrors.Wrap(pkgerrors.CodeTxTimeout, err, "transaction exceeded its lock or statement budget")
		}
		return err
	}

	if execCtx.Err() != nil {
		_ = tx.Rollback()
		return abortError(execCtx, execCtx.Err(), "execute")
	}

	if err := tx.Commit().Error; err != nil {
		if execCtx.Err() != nil {
			return abortError(execCtx, err, "commit")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: commit transaction")
	}
	return nil
}

func applyLocalTimeouts(tx *gorm.DB, opts TxOptions) error {
	if opts.Timeout > 0 {
		if err := tx.Exec(fmt.Sprintf("SET LOCAL statement_timeout = %d", opts.Timeout.Milliseconds())).Error; err != nil {
			return err
		}
	}
	if opts.MaxWait > 0 {
		if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = %d", opts.MaxWait.Milliseconds())).Error; err != nil {
			return err
		}
	}
	return nil
}

func abortError(ctx context.Context, cause error, stage string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return pkgerrors.Wrap(pkgerrors.CodeTxTimeout, cause, fmt.Sprintf("transaction budget exceeded during %s", stage))
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, cause, fmt.Sprintf("transaction aborted during %s", stage))
}

func isPgTimeout(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgQueryCanceled || pgErr.Code == pgLockNotAvailable
	}
	return false
}

// IsTimeout reports whether err was produced by an exhausted transaction budget.
func IsTimeout(err error) bool {
	return pkgerrors.IsCode(err, pkgerrors.CodeTxTimeout)
}

// ErrNotFound is re-exported so services don't need to import gorm for lookups.
var ErrNotFound = gorm.ErrRecordNotFound
