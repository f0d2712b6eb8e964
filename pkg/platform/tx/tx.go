package tx

import (
	"context"
	"database/sql"
	"time"

	dErrors "onekyc/pkg/domain-errors"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

const defaultTxTimeout = 5 * time.Second

// Runner opens a transaction, exposes it through the context and commits when
// fn returns nil. Stores pick the transaction up via From.
type Runner struct {
	db      *sql.DB
	timeout time.Duration
}

// NewRunner builds a Runner over db. A zero timeout uses the default.
func NewRunner(db *sql.DB, timeout time.Duration) *Runner {
	if timeout <= 0 {
		timeout = defaultTxTimeout
	}
	return &Runner{db: db, timeout: timeout}
}

// RunInTx executes fn inside a single database transaction.
func (r *Runner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	sqlTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// NoopRunner runs fn directly. Used with in-memory stores, where each store
// call is already atomic.
type NoopRunner struct{}

func (NoopRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return fn(ctx)
}
