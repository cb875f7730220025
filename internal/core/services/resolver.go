package services

import (
	"errors"
	"fmt"

	"github.com/cdm-corpus/corpus/internal/core/domain"
)

// Resolver implements the symbol-resolution algorithm of spec.md §4.6.
// Grounded on services/resolve.go's lookup-then-rank shape, generalized
// from a single flat namespace into CDM's moniker-aware, priority-ranked
// lookup.
type Resolver struct {
	symbols *SymbolTable
}

// NewResolver builds a resolver backed by the given symbol table.
func NewResolver(symbols *SymbolTable) *Resolver {
	return &Resolver{symbols: symbols}
}

// ResolveRequest carries the inputs to one resolution call (spec.md §4.6
// "resolution options").
type ResolveRequest struct {
	Symbol       string
	ExpectedType domain.ObjectType
	WrtDoc       *domain.Document
	// FromDoc anchors moniker lookups; defaults to WrtDoc when nil.
	FromDoc *domain.Document
	// Retry enables the "transitively visible from the best document"
	// fallback of step 5.
	Retry bool
	// Owner, when non-nil, has Symbol added to its dependency-symbol set
	// (spec.md §4.6 step 4, consumed later by the cache-key engine).
	Owner *domain.Definition
}

// Resolve runs the full lookup -> moniker-split -> best-document ->
// dependency-record -> retry -> type-gate pipeline.
func (r *Resolver) Resolve(req ResolveRequest) (*domain.Definition, *domain.Document, error) {
	if req.WrtDoc == nil {
		return nil, nil, fmt.Errorf("resolve %q: %w", req.Symbol, domain.ErrUnresolvedSymbol)
	}
	fromDoc := req.FromDoc
	if fromDoc == nil {
		fromDoc = req.WrtDoc
	}
	if req.Owner != nil {
		r.symbols.RecordDependency(req.Owner, req.Symbol)
	}

	def, doc, err := r.resolveSymbol(req.Symbol, req.WrtDoc, fromDoc, req.Retry)
	if err != nil {
		return nil, nil, err
	}
	if req.ExpectedType != domain.Error && def.ObjectType() != req.ExpectedType {
		return nil, nil, fmt.Errorf("%s: expected %s, got %s: %w",
			req.Symbol, req.ExpectedType, def.ObjectType(), domain.ErrExpectedTypeMismatch)
	}
	return def, doc, nil
}

func (r *Resolver) resolveSymbol(symbol string, wrtDoc, fromDoc *domain.Document, retry bool) (*domain.Definition, *domain.Document, error) {
	if prefix, rest, ok := domain.SplitMoniker(symbol); ok {
		return r.resolveMoniker(prefix, rest, wrtDoc, fromDoc, retry)
	}
	return r.resolvePlain(symbol, wrtDoc, fromDoc, retry)
}

// resolveMoniker implements step 2, including the chained-moniker
// recursion (rest may itself contain "/") and the "move wrt down one
// level" retry, which runs when the moniker was found via wrt-doc or when
// resolution started from wrt-doc itself (fromDoc == wrtDoc).
func (r *Resolver) resolveMoniker(prefix, rest string, wrtDoc, fromDoc *domain.Document, retry bool) (*domain.Definition, *domain.Document, error) {
	monikerDoc, viaWrt, err := lookupMonikerDoc(prefix, wrtDoc, fromDoc)
	if err != nil {
		return nil, nil, err
	}

	def, doc, err := r.resolveSymbol(rest, wrtDoc, monikerDoc, retry)
	if err != nil && (viaWrt || fromDoc == wrtDoc) && errors.Is(err, domain.ErrUnresolvedSymbol) {
		return r.resolveSymbol(rest, monikerDoc, monikerDoc, retry)
	}
	return def, doc, err
}

// lookupMonikerDoc checks from-doc's moniker-map first, then wrt-doc's,
// reporting whether the hit came from wrt-doc (spec.md §4.6 step 2).
func lookupMonikerDoc(prefix string, wrtDoc, fromDoc *domain.Document) (doc *domain.Document, viaWrt bool, err error) {
	if p := fromDoc.Priorities(); p != nil {
		if d, ok := p.MonikerMap[prefix]; ok {
			return d, false, nil
		}
	}
	if p := wrtDoc.Priorities(); p != nil {
		if d, ok := p.MonikerMap[prefix]; ok {
			return d, true, nil
		}
	}
	return nil, false, fmt.Errorf("%s: %w", prefix, domain.ErrMonikerNotFound)
}

// resolvePlain implements steps 1 and 3-5 for a bare (non-monikered)
// symbol.
func (r *Resolver) resolvePlain(symbol string, wrtDoc, fromDoc *domain.Document, retry bool) (*domain.Definition, *domain.Document, error) {
	candidates := r.symbols.DocumentsDeclaring(symbol)
	best, ok := bestByPriority(candidates, wrtDoc.Priorities())
	if !ok {
		return nil, nil, fmt.Errorf("%s: %w", symbol, domain.ErrUnresolvedSymbol)
	}

	def, ok := best.DeclarationAt(symbol)
	if !ok {
		if retry {
			return r.resolvePlain(symbol, wrtDoc, best, false)
		}
		return nil, nil, fmt.Errorf("%s: %w", symbol, domain.ErrUnresolvedSymbol)
	}
	return def, best, nil
}

// bestByPriority picks the candidate with the smallest priority integer in
// priorities (spec.md §4.6 step 3 "ties cannot occur").
func bestByPriority(candidates []*domain.Document, priorities *domain.ImportPriorities) (*domain.Document, bool) {
	if priorities == nil {
		return nil, false
	}
	var best *domain.Document
	bestPriority := -1
	for _, c := range candidates {
		pr, ok := priorities.PriorityOf(c)
		if !ok {
			continue
		}
		if best == nil || pr < bestPriority {
			best, bestPriority = c, pr
		}
	}
	return best, best != nil
}

// CandidateDocuments returns every document in wrtDoc's priority list that
// declares symbol, without triggering a full resolve's side effects
// (dependency recording, type gate). The cache-key engine (spec.md §4.7)
// calls BestCandidateDocument rather than this function.
func (r *Resolver) CandidateDocuments(symbol string, wrtDoc *domain.Document) []*domain.Document {
	all := r.symbols.DocumentsDeclaring(symbol)
	priorities := wrtDoc.Priorities()
	if priorities == nil {
		return nil
	}
	out := make([]*domain.Document, 0, len(all))
	for _, c := range all {
		if _, ok := priorities.PriorityOf(c); ok {
			out = append(out, c)
		}
	}
	return out
}

// BestCandidateDocument is CandidateDocuments narrowed to the single
// highest-priority (lowest integer) document, if any.
func (r *Resolver) BestCandidateDocument(symbol string, wrtDoc *domain.Document) (*domain.Document, bool) {
	return bestByPriority(r.symbols.DocumentsDeclaring(symbol), wrtDoc.Priorities())
}
