package db

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// ErrTxConflict is returned when a transaction keeps losing to
// concurrent writers after every retry attempt. Callers may retry the
// whole operation; the datastore is unchanged.
var ErrTxConflict = errors.New("transaction conflict: retries exhausted")

// maxTxAttempts bounds serialization-conflict retries.
const maxTxAttempts = 3

// SQLSTATE codes that mark a transaction as retryable.
const (
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// RunInTx executes fn inside a transaction, committing on nil error and
// rolling back otherwise. Serialization failures and deadlocks are
// retried a bounded number of times before surfacing ErrTxConflict.
func RunInTx(ctx context.Context, pool *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	var lastErr error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err := pgx.BeginTxFunc(ctx, pool, pgx.TxOptions{}, fn)
		if err == nil {
			return nil
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Msg("Retrying transaction after serialization conflict")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
		}
	}
	return errors.Join(ErrTxConflict, lastErr)
}

func retryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeSerializationFailure || pgErr.Code == codeDeadlockDetected
}
