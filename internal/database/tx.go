package database

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"

	"gorm.io/gorm"
)

type TxOptions struct {
	IsolationLevel sql.IsolationLevel
	ReadOnly       bool
	MaxRetries     int
}

func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel: sql.LevelDefault,
		ReadOnly:       false,
		MaxRetries:     3,
	}
}

func (o TxOptions) sqlOptions() []*sql.TxOptions {
	if o.IsolationLevel == sql.LevelDefault && !o.ReadOnly {
		return nil
	}
	return []*sql.TxOptions{{Isolation: o.IsolationLevel, ReadOnly: o.ReadOnly}}
}

// WithTransaction runs fn inside a single transaction.
func WithTransaction(ctx context.Context, db *gorm.DB, opts TxOptions, fn func(tx *gorm.DB) error) error {
	return db.WithContext(ctx).Transaction(fn, opts.sqlOptions()...)
}

// WithRetry runs fn inside a transaction and retries it with exponential backoff
// while the failure is classified as transient.
func WithRetry(ctx context.Context, db *gorm.DB, opts TxOptions, fn func(tx *gorm.DB) error) error {
	var lastErr error
	backoff := 50 * time.Millisecond

	for attempt := 0; attempt <= opts.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err := WithTransaction(ctx, db, opts, fn)
		if err == nil {
			return nil
		}

		if !IsRetryable(err) {
			return err
		}

		if attempt == opts.MaxRetries {
			return fmt.Errorf("max retries (%d) exceeded: %w", opts.MaxRetries, err)
		}

		lastErr = err

		jitter := time.Duration(rand.Int63n(int64(backoff / 4)))
		select {
		case <-time.After(backoff + jitter):
		case <-ctx.Done():
			return ctx.Err()
		}

		backoff *= 2
	}

	return lastErr
}
