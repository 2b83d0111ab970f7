package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type txKey struct{}

func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

func pgErrCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// isExclusionViolation matches the btree_gist no-overlap constraint on
// bookings; a racing insert that slipped past the row lock fails here.
func isExclusionViolation(err error) bool {
	return pgErrCode(err) == "23P01"
}

func isForeignKeyViolation(err error) bool {
	return pgErrCode(err) == "23503"
}

func isInvalidUUID(err error) bool {
	return pgErrCode(err) == "22P02"
}

// isTxConflict matches serialization failures and deadlocks, the storage
// aborts the service layer retries once.
func isTxConflict(err error) bool {
	code := pgErrCode(err)
	return code == "40001" || code == "40P01"
}
