package services

import (
	"fmt"

	"github.com/cdm-corpus/corpus/internal/core/domain"
)

// ResolveImportFunc rebases and looks up the document an import points to,
// from the perspective of the document declaring the import.
type ResolveImportFunc func(importPath string, from *domain.Document) (*domain.Document, error)

// ImportGraphBuilder computes a document's priority-list + moniker-map
// (spec.md §4.3). Grounded on the explicit-visited-set, update-pass shape
// of other_examples' cue-lang gopls metadata graph (reference material
// only — CDM's moniker/priority rules are specific to this spec and are
// not present in that reference).
type ImportGraphBuilder struct {
	resolveImport ResolveImportFunc
}

// NewImportGraphBuilder builds a graph builder using resolveImport to turn
// import paths into already-loaded documents.
func NewImportGraphBuilder(resolveImport ResolveImportFunc) *ImportGraphBuilder {
	return &ImportGraphBuilder{resolveImport: resolveImport}
}

// Build computes doc's import priorities per spec.md §4.3:
//  1. self -> 0.
//  2. Monikered imports of doc contribute to moniker-map (first writer
//     wins); their documents are not inlined into the priority list.
//  3. Non-monikered imports are expanded depth-first in declaration order;
//     each newly seen document gets the next integer. Monikered
//     sub-imports of a non-monikered import stay local to that
//     sub-document and never enter doc's own moniker-map.
//  4. Ties are broken by declaration order (the DFS visitation order IS
//     the tie-break, since the first declared path to reach a document
//     assigns its integer).
func (b *ImportGraphBuilder) Build(doc *domain.Document) (*domain.ImportPriorities, error) {
	order := []domain.PriorityEntry{{Document: doc, Priority: 0}}
	byDoc := map[*domain.Document]int{doc: 0}
	monikerMap := make(map[string]*domain.Document)

	for _, imp := range doc.Imports {
		if imp.Moniker == "" {
			continue
		}
		target, err := b.resolveImport(imp.Path, doc)
		if err != nil {
			continue // an unloaded/failed monikered import simply contributes no moniker
		}
		if _, exists := monikerMap[imp.Moniker]; !exists {
			monikerMap[imp.Moniker] = target
		}
	}

	visited := map[*domain.Document]bool{doc: true}
	var expand func(d *domain.Document) error
	expand = func(d *domain.Document) error {
		for _, imp := range d.Imports {
			if imp.Moniker != "" {
				continue
			}
			target, err := b.resolveImport(imp.Path, d)
			if err != nil {
				continue
			}
			if visited[target] {
				continue
			}
			visited[target] = true
			idx := len(order)
			byDoc[target] = idx
			order = append(order, domain.PriorityEntry{Document: target, Priority: idx})
			if err := expand(target); err != nil {
				return err
			}
		}
		return nil
	}
	if err := expand(doc); err != nil {
		return nil, fmt.Errorf("building import priorities for %s: %w", doc.Path, err)
	}

	return &domain.ImportPriorities{Order: order, ByDocument: byDoc, MonikerMap: monikerMap}, nil
}
