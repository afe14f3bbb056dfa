package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// TxManager runs fn inside a transaction. The transaction travels on the context
// handed to fn; a nested call joins the outer transaction instead of opening another.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// TxOptions configures PostgresTxManager.
type TxOptions struct {
	Isolation   sql.IsolationLevel
	LockTimeout time.Duration
	// MaxRetries bounds how many times a serialization failure or deadlock is retried.
	MaxRetries int
}

type PostgresTxManager struct {
	db   *sql.DB
	opts TxOptions
}

func NewTxManager(db *sql.DB, opts TxOptions) *PostgresTxManager {
	if opts.Isolation == sql.LevelDefault {
		opts.Isolation = sql.LevelSerializable
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	return &PostgresTxManager{db: db, opts: opts}
}

func (m *PostgresTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}

	var err error
	for attempt := 0; attempt <= m.opts.MaxRetries; attempt++ {
		err = m.run(ctx, fn)
		if err == nil || !isRetryable(err) || ctx.Err() != nil {
			break
		}
	}
	return Classify(err)
}

func (m *PostgresTxManager) run(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tx, err := m.db.BeginTx(ctx, &sql.TxOptions{Isolation: m.opts.Isolation})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if m.opts.LockTimeout > 0 {
		// SET does not accept bind parameters.
		stmt := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", m.opts.LockTimeout.Milliseconds())
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("set lock_timeout: %w", err)
		}
	}

	if err = fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		if errors.Is(err, sql.ErrTxDone) && ctx.Err() != nil {
			err = ctx.Err()
		}
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
