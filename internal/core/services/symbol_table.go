package services

import (
	"sync"

	"github.com/cdm-corpus/corpus/internal/core/domain"
)

// SymbolTable is the process-wide "name -> documents that declare it" index,
// plus the per-object dependency sets the resolver records while it works
// (spec.md §3 "Symbol table", §4.6 "dependency recording"). Grounded on
// services/search.go's indexed-lookup shape (map[string][]*X), generalized
// from one flat index into two maps serving distinct stages of the
// pipeline.
type SymbolTable struct {
	mu sync.RWMutex

	byName map[string]map[*domain.Document]bool
	deps   map[*domain.Definition]map[string]bool
}

// NewSymbolTable builds an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		byName: make(map[string]map[*domain.Document]bool),
		deps:   make(map[*domain.Definition]map[string]bool),
	}
}

// Declare records that doc declares a definition named name (spec.md §4.5
// step 3 "Declare").
func (t *SymbolTable) Declare(name string, doc *domain.Document) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.byName[name]
	if !ok {
		set = make(map[*domain.Document]bool)
		t.byName[name] = set
	}
	set[doc] = true
}

// Forget removes doc from name's declaring-document set, used to undeclare
// a document's symbols before it is re-indexed.
func (t *SymbolTable) Forget(name string, doc *domain.Document) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.byName[name]
	if !ok {
		return
	}
	delete(set, doc)
	if len(set) == 0 {
		delete(t.byName, name)
	}
}

// ForgetDocument removes doc from each of names by calling Forget once per
// name.
func (t *SymbolTable) ForgetDocument(names []string, doc *domain.Document) {
	for _, name := range names {
		t.Forget(name, doc)
	}
}

// DocumentsDeclaring returns the documents that declare name, in no
// particular order; the caller ranks them by import priority.
func (t *SymbolTable) DocumentsDeclaring(name string) []*domain.Document {
	t.mu.RLock()
	defer t.mu.RUnlock()
	set, ok := t.byName[name]
	if !ok {
		return nil
	}
	out := make([]*domain.Document, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	return out
}

// RecordDependency notes that resolving owner touched the symbol name sym,
// growing owner's dependency-symbol set used later for cache-key
// fingerprinting (spec.md §4.6 "record dependency", §4.7). The first time
// an owner is seen, callers should seed this set with the owner's own
// declared name (spec.md §4.7).
func (t *SymbolTable) RecordDependency(owner *domain.Definition, sym string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	set, ok := t.deps[owner]
	if !ok {
		set = make(map[string]bool)
		t.deps[owner] = set
	}
	set[sym] = true
}

// DependenciesOf returns owner's recorded dependency-symbol set.
func (t *SymbolTable) DependenciesOf(owner *domain.Definition) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	set, ok := t.deps[owner]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	return out
}

// ResetDependencies clears owner's dependency set ahead of re-resolution.
func (t *SymbolTable) ResetDependencies(owner *domain.Definition) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.deps, owner)
}
