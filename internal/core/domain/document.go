package domain

import "sync"

// Import is one entry in a document's ordered import list: a corpus path
// plus an optional moniker (spec.md §3 "Document").
type Import struct {
	Path    string
	Moniker string // empty when the import is not monikered
}

// Document owns an ordered list of imports, an ordered list of top-level
// definitions, and indexing state flags (spec.md §3 "Document").
type Document struct {
	mu sync.RWMutex

	Name      string // e.g. "Foo.cdm.json"
	Path      string // absolute corpus path, e.g. "local:/schema/Foo.cdm.json"
	Namespace string
	folder    *Folder

	Imports     []*Import
	Definitions []*Definition

	internalDeclarations map[string]*Definition // dotted path -> definition

	needsIndexing     bool
	currentlyIndexing bool
	importsIndexed    bool

	priorities *ImportPriorities
}

// NewDocument constructs a document that still needs indexing.
func NewDocument(namespace, name, path string) *Document {
	return &Document{
		Namespace:             namespace,
		Name:                  name,
		Path:                  path,
		internalDeclarations:  make(map[string]*Definition),
		needsIndexing:         true,
	}
}

// Folder returns the folder this document was attached to.
func (d *Document) Folder() *Folder {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.folder
}

// NeedsIndexing reports whether this document is queued for (re)indexing.
func (d *Document) NeedsIndexing() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.needsIndexing
}

// MarkNeedsIndexing flips the document dirty, invalidating its cached
// import priorities (spec.md §3 invariant 4).
func (d *Document) MarkNeedsIndexing() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.needsIndexing = true
	d.importsIndexed = false
	d.priorities = nil
}

// CurrentlyIndexing reports whether this document is mid-pipeline (spec.md
// §3 invariant 3).
func (d *Document) CurrentlyIndexing() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.currentlyIndexing
}

// SetCurrentlyIndexing toggles the in-progress flag.
func (d *Document) SetCurrentlyIndexing(v bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.currentlyIndexing = v
}

// ImportsIndexed reports whether this document has been finalized by
// FinishIndexing since it last went dirty.
func (d *Document) ImportsIndexed() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.importsIndexed
}

// FinishIndexing flips the document's flags to "clean" (spec.md §4.5 step
// 8 "Finalize").
func (d *Document) FinishIndexing() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.currentlyIndexing = false
	d.importsIndexed = true
	d.needsIndexing = false
}

// Priorities returns the cached import priorities, if computed.
func (d *Document) Priorities() *ImportPriorities {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.priorities
}

// SetPriorities installs freshly computed import priorities.
func (d *Document) SetPriorities(p *ImportPriorities) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.priorities = p
}

// DeclareAt registers a definition under a dotted declared path inside
// this document (spec.md §4.5 step 3). Returns ErrDuplicateDeclaration if
// the path is already taken.
func (d *Document) DeclareAt(declaredPath string, def *Definition) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, exists := d.internalDeclarations[declaredPath]; exists {
		return ErrDuplicateDeclaration
	}
	d.internalDeclarations[declaredPath] = def
	return nil
}

// DeclarationAt looks up a definition by its dotted declared path inside
// this document.
func (d *Document) DeclarationAt(declaredPath string) (*Definition, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	def, ok := d.internalDeclarations[declaredPath]
	return def, ok
}

// DeclaredPaths returns a snapshot of this document's internal declaration
// paths, used to reset state before re-indexing.
func (d *Document) DeclaredPaths() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	paths := make([]string, 0, len(d.internalDeclarations))
	for p := range d.internalDeclarations {
		paths = append(paths, p)
	}
	return paths
}

// ResetDeclarations clears the internal declaration map ahead of a fresh
// "Declare" pass (spec.md §4.5 step 1 "Prepare").
func (d *Document) ResetDeclarations() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.internalDeclarations = make(map[string]*Definition)
}

// PriorityEntry pairs a document with its priority integer in another
// document's priority-list (spec.md §3 "Import priorities").
type PriorityEntry struct {
	Document *Document
	Priority int
}

// ImportPriorities is the memoised result of computing one document's
// import visibility ranking (spec.md §4.3).
type ImportPriorities struct {
	// Order is the priority list in ascending-priority (depth-first
	// import) order; Order[0] is always the owning document itself (priority 0).
	Order []PriorityEntry

	// ByDocument maps a document to its priority integer for O(1)
	// membership + tie-break lookups.
	ByDocument map[*Document]int

	// MonikerMap maps a moniker string to the first document imported
	// under that moniker.
	MonikerMap map[string]*Document
}

// PriorityOf returns the priority integer of doc within this priority
// list, or (-1, false) if doc is not reachable.
func (p *ImportPriorities) PriorityOf(doc *Document) (int, bool) {
	pr, ok := p.ByDocument[doc]
	if !ok {
		return -1, false
	}
	return pr, true
}
