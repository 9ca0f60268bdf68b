package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// schedulerLockKey is the fixed advisory-lock identifier for the
// scheduling pass. Every process uses the same key, so at most one pass
// runs against a given database at a time.
const schedulerLockKey int64 = 0x1c5a_ec71

// AdvisoryPassLock serializes scheduling passes across processes using a
// Postgres session advisory lock. Overlapping passes would each observe
// "no open instance" for the same template and double-create, so a second
// trigger while a pass holds the lock is skipped rather than queued.
type AdvisoryPassLock struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewAdvisoryPassLock creates a pass lock backed by the given database
func NewAdvisoryPassLock(db *sql.DB, logger *slog.Logger) *AdvisoryPassLock {
	if logger == nil {
		logger = slog.Default()
	}

	return &AdvisoryPassLock{
		db:     db,
		logger: logger,
	}
}

// TryAcquire attempts to take the pass lock without blocking. On success
// it returns a release func bound to the same session; when the lock is
// held elsewhere it returns acquired=false and a nil release.
func (l *AdvisoryPassLock) TryAcquire(ctx context.Context) (release func(), acquired bool, err error) {
	// Session advisory locks belong to a connection, so the lock and its
	// release must share one.
	conn, err := l.db.Conn(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to get connection for pass lock: %w", err)
	}

	var got bool
	if err := conn.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, schedulerLockKey).Scan(&got); err != nil {
		conn.Close()
		return nil, false, fmt.Errorf("failed to acquire pass lock: %w", err)
	}

	if !got {
		conn.Close()
		return nil, false, nil
	}

	release = func() {
		if _, err := conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, schedulerLockKey); err != nil {
			l.logger.Warn("failed to release pass lock", slog.String("error", err.Error()))
		}
		conn.Close()
	}

	return release, true, nil
}
