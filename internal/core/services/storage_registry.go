package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/cdm-corpus/corpus/internal/core/domain"
	"github.com/cdm-corpus/corpus/internal/core/ports/driven"
)

// StorageRegistry maps a namespace to the StorageAdapter that serves it,
// and exposes one root Folder per registered namespace (spec.md §4.1).
// Grounded on services/source.go's provider-factory-by-key pattern
// (map[ProviderType]Factory), generalized to map[namespace]StorageAdapter.
type StorageRegistry struct {
	mu               sync.RWMutex
	adapters         map[string]driven.StorageAdapter
	roots            map[string]*domain.Folder
	defaultNamespace string
}

// NewStorageRegistry builds a registry with the given default namespace
// (spec.md §4.1).
func NewStorageRegistry(defaultNamespace string) *StorageRegistry {
	return &StorageRegistry{
		adapters:         make(map[string]driven.StorageAdapter),
		roots:            make(map[string]*domain.Folder),
		defaultNamespace: defaultNamespace,
	}
}

// Register binds a namespace to an adapter and creates its root folder.
func (r *StorageRegistry) Register(namespace string, adapter driven.StorageAdapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[namespace] = adapter
	r.roots[namespace] = domain.NewFolder(namespace, namespace, namespace+":/", nil)
}

// Adapter returns the adapter registered for namespace, or
// ErrUnknownNamespace.
func (r *StorageRegistry) Adapter(namespace string) (driven.StorageAdapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.adapters[namespace]
	if !ok {
		return nil, fmt.Errorf("%s: %w", namespace, domain.ErrUnknownNamespace)
	}
	return a, nil
}

// Root returns the root folder for namespace, or ErrUnknownNamespace.
func (r *StorageRegistry) Root(namespace string) (*domain.Folder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	root, ok := r.roots[namespace]
	if !ok {
		return nil, fmt.Errorf("%s: %w", namespace, domain.ErrUnknownNamespace)
	}
	return root, nil
}

// Split splits an absolute or relative corpus path into (namespace, path),
// defaulting to this registry's default namespace, and validates that the
// namespace is registered (spec.md §4.1).
func (r *StorageRegistry) Split(path string) (namespace, rest string, err error) {
	namespace, rest = domain.SplitNamespace(path, r.defaultNamespace)
	if _, err := r.Adapter(namespace); err != nil {
		return "", "", err
	}
	return namespace, rest, nil
}

// Rebase rebases a relative path against an anchor document, substituting
// this registry's default namespace when the anchor has none.
func (r *StorageRegistry) Rebase(relative string, anchorDoc *domain.Document) string {
	ns := r.defaultNamespace
	folderPath := ""
	if anchorDoc != nil {
		ns = anchorDoc.Namespace
		if f := anchorDoc.Folder(); f != nil {
			folderPath = f.Path[len(ns)+1:] // strip "namespace:" prefix
		}
	}
	return domain.RebasePath(relative, ns, folderPath)
}

// Ping is used by health checks (SPEC_FULL.md §4 "Health check surface").
func (r *StorageRegistry) Ping(ctx context.Context, namespace string) error {
	a, err := r.Adapter(namespace)
	if err != nil {
		return err
	}
	_, err = a.ComputeLastModifiedTime(ctx, "/")
	return err
}
