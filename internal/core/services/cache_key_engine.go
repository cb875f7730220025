package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cdm-corpus/corpus/internal/core/domain"
)

// CacheKeyEngine computes resolution-result fingerprints (spec.md §4.7).
// Grounded on services/cachekey.go's sorted-ids-plus-kind join pattern,
// generalized to CDM's dependency-symbol-set witness.
type CacheKeyEngine struct {
	resolver *Resolver
	symbols  *SymbolTable
}

// NewCacheKeyEngine builds an engine sharing resolver's symbol table.
func NewCacheKeyEngine(resolver *Resolver, symbols *SymbolTable) *CacheKeyEngine {
	return &CacheKeyEngine{resolver: resolver, symbols: symbols}
}

// Key computes owner's fingerprint with respect to wrtDoc, or
// ErrNotCacheable if owner's dependency set has never been seeded (spec.md
// §4.7). Callers seed the set by recording owner's own declared name as a
// dependency at declaration time (spec.md §4.5 step 3).
func (e *CacheKeyEngine) Key(owner *domain.Definition, wrtDoc *domain.Document, directives domain.DirectiveSet, extra string) (string, error) {
	deps := e.symbols.DependenciesOf(owner)
	if len(deps) == 0 {
		return "", domain.ErrNotCacheable
	}

	docIDs := make(map[string]bool, len(deps))
	for _, sym := range deps {
		best, ok := e.resolver.BestCandidateDocument(sym, wrtDoc)
		if !ok {
			continue
		}
		docIDs[best.Path] = true
	}

	sortedIDs := make([]string, 0, len(docIDs))
	for id := range docIDs {
		sortedIDs = append(sortedIDs, id)
	}
	sort.Strings(sortedIDs)

	kind := owner.ObjectType().String()
	idOrName := owner.DeclaredName()
	if idOrName == "" {
		idOrName = strconv.FormatInt(owner.ID(), 10)
	}

	key := fmt.Sprintf("%s-%s-%s-(%s)", strings.Join(sortedIDs, ","), kind, idOrName, directives.Tag())
	if extra != "" {
		key += "-" + extra
	}
	return key, nil
}

// Seed records owner's own declared name as its first dependency, making it
// cacheable from the moment it is declared (spec.md §4.7 "the first time an
// object is seen, its dependency set is seeded with its own declared
// name").
func (e *CacheKeyEngine) Seed(owner *domain.Definition) {
	e.symbols.RecordDependency(owner, owner.DeclaredName())
}
