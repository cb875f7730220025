package driven

import (
	"context"
	"time"
)

// DistributedLock serializes the indexing pipeline (spec.md §5) across
// multiple corpus-engine processes that share one backing store. A
// single-process corpus can run without one; it is optional infrastructure
// layered on top of the in-process serialization the spec requires.
type DistributedLock interface {
	Acquire(ctx context.Context, name string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, name string) error
	Extend(ctx context.Context, name string, ttl time.Duration) error
	Ping(ctx context.Context) error
}
