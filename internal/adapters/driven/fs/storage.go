// Package fs implements driven.StorageAdapter over the local filesystem,
// the simplest binding of the §6 adapter contract and the one most example
// fixtures and the development RUN_MODE reach for.
package fs

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/cdm-corpus/corpus/internal/core/domain"
	"github.com/cdm-corpus/corpus/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.StorageAdapter = (*StorageAdapter)(nil)

// StorageAdapter serves corpus paths rooted at a local directory. No
// example repo in the retrieval pack ships a filesystem source adapter
// with a richer API than direct os/io-fs calls, and the §6 contract here
// is three thin methods, so this one is stdlib-only by design rather than
// a dropped dependency.
type StorageAdapter struct {
	root string
}

// NewStorageAdapter binds root as the namespace's filesystem root.
func NewStorageAdapter(root string) *StorageAdapter {
	return &StorageAdapter{root: filepath.Clean(root)}
}

func (a *StorageAdapter) resolve(p string) string {
	return filepath.Join(a.root, filepath.FromSlash(p))
}

// Read implements driven.StorageAdapter.
func (a *StorageAdapter) Read(ctx context.Context, p string) ([]byte, error) {
	b, err := os.ReadFile(a.resolve(p))
	if os.IsNotExist(err) {
		return nil, domain.ErrNotFound
	}
	return b, err
}

// ComputeLastModifiedTime implements driven.StorageAdapter.
func (a *StorageAdapter) ComputeLastModifiedTime(ctx context.Context, p string) (time.Time, error) {
	info, err := os.Stat(a.resolve(p))
	if os.IsNotExist(err) {
		return time.Time{}, domain.ErrNotFound
	}
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// ListChildren implements driven.StorageAdapter.
func (a *StorageAdapter) ListChildren(ctx context.Context, p string) ([]string, error) {
	entries, err := os.ReadDir(a.resolve(p))
	if os.IsNotExist(err) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
