package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type contextKey string

const connKey contextKey = "db_conn"

// ConnFromContext returns the transaction bound to the context by
// WithTx, or nil when the caller is not inside one. Repositories
// fall back to their pool in that case.
func ConnFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(connKey).(pgx.Tx)
	return tx
}

// WithTx runs fn inside a transaction. Repository calls made with
// the context passed to fn share that transaction; fn returning an
// error rolls everything back.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(context.WithValue(ctx, connKey, tx)); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
