package services

import (
	"sync"

	"github.com/cdm-corpus/corpus/internal/core/domain"
)

type libraryEntry struct {
	folder   *domain.Folder
	document *domain.Document
}

// loadGate coordinates "at most one concurrent load per path" (spec.md
// §4.4, §8 "Load at-most-once"): the first caller for a path becomes the
// leader and performs the load; everyone else waits on done.
type loadGate struct {
	done chan struct{}
	doc  *domain.Document
	err  error
}

// DocumentLibrary is the canonical (path -> document) registry plus the
// "needs loading" / "needs indexing" queues (spec.md §4.2). Grounded on
// services/document.go's CRUD-shaped wrapper, but backed by an in-process,
// mutex-guarded map rather than a store: the spec explicitly keeps this
// process-local state (§9 "make it a field on the corpus, not a global").
type DocumentLibrary struct {
	mu sync.Mutex

	byPath     map[string]libraryEntry // normalized (lowercase) path -> entry
	notLoaded  map[string]bool
	notIndexed map[*domain.Document]bool
	loading    map[string]*loadGate
}

// NewDocumentLibrary builds an empty library.
func NewDocumentLibrary() *DocumentLibrary {
	return &DocumentLibrary{
		byPath:     make(map[string]libraryEntry),
		notLoaded:  make(map[string]bool),
		notIndexed: make(map[*domain.Document]bool),
		loading:    make(map[string]*loadGate),
	}
}

// Add registers a newly loaded document under path, records folder as its
// folder, and marks it dirty (spec.md §4.2 "add"). It does not attach the
// document to folder; the loader does that before calling Add.
func (l *DocumentLibrary) Add(path string, folder *domain.Folder, doc *domain.Document) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := domain.NormalizeForLookup(path)
	l.byPath[key] = libraryEntry{folder: folder, document: doc}
	delete(l.notLoaded, key)
	doc.MarkNeedsIndexing()
	l.notIndexed[doc] = true
}

// Remove drops a document from the library (spec.md §4.2 "remove").
func (l *DocumentLibrary) Remove(path string, folder *domain.Folder, doc *domain.Document) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := domain.NormalizeForLookup(path)
	delete(l.byPath, key)
	delete(l.notIndexed, doc)
	if folder != nil {
		folder.RemoveDocument(doc)
	}
}

// Lookup returns the (folder, document) registered at path, if any.
func (l *DocumentLibrary) Lookup(path string) (*domain.Folder, *domain.Document, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.byPath[domain.NormalizeForLookup(path)]
	if !ok {
		return nil, nil, false
	}
	return entry.folder, entry.document, true
}

// MarkForIndexing flags doc dirty (spec.md §4.2 "mark-for-indexing").
func (l *DocumentLibrary) MarkForIndexing(doc *domain.Document) {
	l.mu.Lock()
	defer l.mu.Unlock()
	doc.MarkNeedsIndexing()
	l.notIndexed[doc] = true
}

// MarkAsIndexed clears the dirty flag (spec.md §4.2 "mark-as-indexed").
func (l *DocumentLibrary) MarkAsIndexed(doc *domain.Document) {
	l.mu.Lock()
	defer l.mu.Unlock()
	doc.FinishIndexing()
	delete(l.notIndexed, doc)
}

// FetchAndMarkForIndexing looks up path and, if found, marks the document
// dirty before returning it (spec.md §4.2
// "fetch-and-mark-for-indexing").
func (l *DocumentLibrary) FetchAndMarkForIndexing(path string) (*domain.Document, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.byPath[domain.NormalizeForLookup(path)]
	if !ok {
		return nil, false
	}
	entry.document.MarkNeedsIndexing()
	l.notIndexed[entry.document] = true
	return entry.document, true
}

// NeedToLoad reports whether path is neither already registered nor
// already queued to load, and if so enqueues it (spec.md §4.2
// "need-to-load").
func (l *DocumentLibrary) NeedToLoad(path string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := domain.NormalizeForLookup(path)
	if _, ok := l.byPath[key]; ok {
		return false
	}
	if l.notLoaded[key] {
		return false
	}
	l.notLoaded[key] = true
	return true
}

// BeginLoad attempts to become the load leader for path. If another
// goroutine is already loading it, isLeader is false and the caller should
// wait on gate.done, then read gate.doc/gate.err.
func (l *DocumentLibrary) BeginLoad(path string) (gate *loadGate, isLeader bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	key := domain.NormalizeForLookup(path)
	if g, ok := l.loading[key]; ok {
		return g, false
	}
	g := &loadGate{done: make(chan struct{})}
	l.loading[key] = g
	return g, true
}

// FinishLoad completes a load this goroutine led, handing doc and err to
// every waiter and dropping path from the pending set (spec.md §4.4). No
// failure mark is kept: after a failed load, NeedToLoad accepts the path
// again.
func (l *DocumentLibrary) FinishLoad(path string, doc *domain.Document, err error) {
	l.mu.Lock()
	key := domain.NormalizeForLookup(path)
	gate, ok := l.loading[key]
	if !ok {
		l.mu.Unlock()
		return
	}
	gate.doc, gate.err = doc, err
	delete(l.loading, key)
	delete(l.notLoaded, key)
	l.mu.Unlock()
	close(gate.done)
}

// NotIndexedSnapshot returns the documents currently flagged dirty.
func (l *DocumentLibrary) NotIndexedSnapshot() []*domain.Document {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*domain.Document, 0, len(l.notIndexed))
	for d := range l.notIndexed {
		out = append(out, d)
	}
	return out
}
