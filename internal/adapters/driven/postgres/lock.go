package postgres

import (
	"context"
	"hash/fnv"
	"time"

	"github.com/cdm-corpus/corpus/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.DistributedLock = (*AdvisoryLock)(nil)

// AdvisoryLock implements DistributedLock using PostgreSQL advisory locks to
// serialize the indexing pipeline (spec.md §5) across corpus-engine
// processes that share one Postgres-backed namespace.
//
// IMPORTANT LIMITATIONS:
// - Advisory locks are connection-scoped, not TTL-based
// - If the connection is lost, the lock is automatically released
// - TTL parameter is ignored (locks don't expire automatically)
// - Extend is a no-op since locks don't have TTL
//
// A crashed holder still frees the lock, since it drops the connection the
// lock was taken on; Redis locks (internal/adapters/driven/redis) are
// preferred where available because they honor the caller-supplied TTL.
// This adapter is the fallback for namespaces with no Redis configured.
type AdvisoryLock struct {
	db *DB
}

// NewAdvisoryLock creates a new PostgreSQL advisory lock adapter.
func NewAdvisoryLock(db *DB) *AdvisoryLock {
	return &AdvisoryLock{db: db}
}

// hashLockName converts a lock name — "indexing:<batch-key>" for the
// document or manifest batch a pipeline run is working through (spec.md
// §5) — into the 64-bit integer PostgreSQL advisory locks key on. Uses
// FNV-1a for consistent, well-distributed values.
func hashLockName(name string) int64 {
	h := fnv.New64a()
	h.Write([]byte("cdm-corpus:lock:" + name))
	return int64(h.Sum64())
}

// Acquire attempts to acquire a named advisory lock for the indexing batch
// named name. Uses pg_try_advisory_lock which returns immediately without
// blocking, so a busy batch fails fast rather than queuing.
//
// Note: The TTL parameter is ignored - PostgreSQL advisory locks don't have TTL.
// The lock is held until explicitly released or the connection closes.
func (l *AdvisoryLock) Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	lockID := hashLockName(name)

	var acquired bool
	err := l.db.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", lockID).Scan(&acquired)
	if err != nil {
		return false, err
	}
	return acquired, nil
}

// Release releases a named advisory lock.
// Uses pg_advisory_unlock to release the lock.
// Safe to call even if the lock is not held (returns false but no error).
func (l *AdvisoryLock) Release(ctx context.Context, name string) error {
	lockID := hashLockName(name)

	var released bool
	err := l.db.QueryRowContext(ctx, "SELECT pg_advisory_unlock($1)", lockID).Scan(&released)
	if err != nil {
		return err
	}
	// Note: released=false means lock wasn't held, but that's not an error
	return nil
}

// Extend is a no-op for PostgreSQL advisory locks since they don't have TTL:
// an indexing batch holds the lock for as long as its connection is open,
// regardless of how long the pipeline run takes.
func (l *AdvisoryLock) Extend(ctx context.Context, name string, ttl time.Duration) error {
	return nil
}

// Ping checks if the PostgreSQL backend is healthy.
func (l *AdvisoryLock) Ping(ctx context.Context) error {
	return l.db.PingContext(ctx)
}
