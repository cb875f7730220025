package driven

import (
	"context"
	"time"
)

// CachedResolution is the serializable payload stored under a cache-key
// engine fingerprint (spec.md §4.7): enough to recover which document's
// declaration answered a resolution, without pinning down a live
// *domain.Definition pointer.
type CachedResolution struct {
	DocumentPath string
	DeclaredPath string
	ObjectType   int
}

// ResolutionCache stores cache-key engine fingerprints. Implementations
// must treat Get on an unknown key as a cache miss, not an error.
type ResolutionCache interface {
	Get(ctx context.Context, key string) (CachedResolution, bool, error)
	Set(ctx context.Context, key string, value CachedResolution, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}
