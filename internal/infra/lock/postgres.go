package lock

import (
	"context"
	"encoding/binary"
	"log/slog"
	"sync"
	"time"

	"redemption-guard/internal/pkg/errs"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	advisoryLockSQL   = `SELECT pg_advisory_lock($1)`
	advisoryUnlockSQL = `SELECT pg_advisory_unlock($1)`

	unlockTimeout = 5 * time.Second
)

// AdvisoryLocker serializes callers across instances with session-level
// Postgres advisory locks. Each held lock pins one pooled connection.
type AdvisoryLocker struct {
	pool *pgxpool.Pool
}

func NewAdvisoryLocker(pool *pgxpool.Pool) *AdvisoryLocker {
	return &AdvisoryLocker{pool: pool}
}

func (l *AdvisoryLocker) Lock(ctx context.Context, key uuid.UUID) (func(), error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return nil, errs.Wrap(err, "failed to acquire connection for advisory lock")
	}

	id := advisoryKey(key)
	if _, err := conn.Exec(ctx, advisoryLockSQL, id); err != nil {
		// a cancelled lock wait leaves the session in an unknown state
		_ = conn.Conn().Close(context.Background())
		conn.Release()
		return nil, errs.Wrapf(err, "failed to take advisory lock for %s", key)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			uctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
			defer cancel()
			if _, err := conn.Exec(uctx, advisoryUnlockSQL, id); err != nil {
				slog.Warn("advisory unlock failed, dropping connection", "key", key.String(), "error", err.Error())
				_ = conn.Conn().Close(uctx)
			}
			conn.Release()
		})
	}, nil
}

// advisoryKey folds the uuid into the bigint keyspace of pg_advisory_lock.
func advisoryKey(key uuid.UUID) int64 {
	hi := binary.BigEndian.Uint64(key[:8])
	lo := binary.BigEndian.Uint64(key[8:])
	// #nosec G115 -- wraparound is the intended fold
	return int64(hi ^ lo)
}
