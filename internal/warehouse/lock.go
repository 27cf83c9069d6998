package warehouse

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// RunLockKey is the advisory lock key shared by every pipeline run.
const RunLockKey int64 = 0x6f727369 // "orsi"

// SessionConn is a single connection that holds session-level advisory locks.
// *pgxpool.Conn satisfies it.
type SessionConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// RunLock is a held session advisory lock.
type RunLock struct {
	conn    SessionConn
	key     int64
	release func()
}

// TryLock takes the advisory lock on conn without waiting. It returns
// ErrRunInProgress if another session holds it.
func TryLock(ctx context.Context, conn SessionConn, key int64) (*RunLock, error) {
	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&ok); err != nil {
		return nil, fmt.Errorf("failed to take run lock: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	return &RunLock{conn: conn, key: key}, nil
}

// Unlock releases the advisory lock and the connection holding it.
func (l *RunLock) Unlock(ctx context.Context) error {
	defer func() {
		if l.release != nil {
			l.release()
		}
	}()
	if _, err := l.conn.Exec(ctx, `SELECT pg_advisory_unlock($1)`, l.key); err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	return nil
}

// AcquireRunLock dedicates one pooled connection to the run lock for the
// duration of the run.
func (db *DB) AcquireRunLock(ctx context.Context) (*RunLock, error) {
	if db.raw == nil {
		return nil, ErrNoPool
	}
	conn, err := db.raw.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock connection: %w", err)
	}
	lock, err := TryLock(ctx, conn, RunLockKey)
	if err != nil {
		conn.Release()
		return nil, err
	}
	lock.release = conn.Release
	db.logger.Debug("run lock acquired", "key", RunLockKey)
	return lock, nil
}
