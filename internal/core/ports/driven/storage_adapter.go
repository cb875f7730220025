// Package driven declares the collaborator contracts the corpus engine
// consumes but does not implement: storage, persistence, caching, and
// cross-process locking (spec.md §1 "Out of scope (external
// collaborators)", §6 "Adapter contract").
package driven

import (
	"context"
	"time"
)

// StorageAdapter is the §6 adapter contract, bound to exactly one
// namespace by the storage registry. It never sees a full corpus path —
// the registry has already stripped the "namespace:" prefix.
type StorageAdapter interface {
	// Read returns the raw bytes at path.
	Read(ctx context.Context, path string) ([]byte, error)

	// ComputeLastModifiedTime returns the last-modified timestamp of path.
	ComputeLastModifiedTime(ctx context.Context, path string) (time.Time, error)

	// ListChildren lists the immediate child names (folders and
	// documents) under path.
	ListChildren(ctx context.Context, path string) ([]string, error)
}
