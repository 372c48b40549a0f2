package pg

import (
	"context"
	"errors"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LockKey maps a namespaced name onto the int64 key space of pg_advisory_lock.
func LockKey(namespace, name string) int64 {
	return int64(xxhash.Sum64String(namespace + ":" + name))
}

// AdvisoryLock takes a session-level advisory lock on a connection pinned
// from the pool and blocks until it is granted or ctx is done. The returned
// unlock func releases the lock and gives the connection back; it is safe to
// call more than once.
func AdvisoryLock(ctx context.Context, pool *pgxpool.Pool, key int64) (func(), error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, errors.Join(ErrLockNotAcquired, err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", key); err != nil {
		// A cancelled lock wait leaves the session in an unknown state.
		_ = conn.Conn().Close(context.Background())
		conn.Release()
		return nil, errors.Join(ErrLockNotAcquired, err)
	}

	released := false
	return func() {
		if released {
			return
		}
		released = true

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", key); err != nil {
			// Closing the session drops every lock it holds.
			_ = conn.Conn().Close(ctx)
		}
		conn.Release()
	}, nil
}
