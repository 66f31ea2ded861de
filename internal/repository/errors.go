package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrLockTimeout means a row lock could not be acquired before lock_timeout expired.
	ErrLockTimeout = errors.New("lock wait timeout")
	// ErrDeadlock means the transaction was chosen as a deadlock or serialization victim.
	ErrDeadlock = errors.New("transaction deadlock")
)

// PostgreSQL SQLSTATE codes that signal row-lock contention.
const (
	pgLockNotAvailable     = "55P03"
	pgDeadlockDetected     = "40P01"
	pgSerializationFailure = "40001"
	pgQueryCanceled        = "57014"
)

// ClassifyError tags lock contention errors with ErrLockTimeout or ErrDeadlock so
// callers can report them as retryable. Other errors are returned unchanged.
func ClassifyError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrLockTimeout) || errors.Is(err, ErrDeadlock) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable, pgQueryCanceled:
			return fmt.Errorf("%w: %w", ErrLockTimeout, err)
		case pgDeadlockDetected, pgSerializationFailure:
			return fmt.Errorf("%w: %w", ErrDeadlock, err)
		}
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrLockTimeout, err)
	}
	return err
}

// Scope restricts queries to one tenant branch.
type Scope struct {
	TenantID uuid.UUID
	BranchID uuid.UUID
}
