package domain

import "sync"

// Folder is a node in the per-namespace folder tree (spec.md §3). It owns
// an ordered set of child folders and documents.
type Folder struct {
	mu sync.RWMutex

	Name      string
	Namespace string
	Path      string // corpus path of this folder, e.g. "local:/schema/sub"
	Parent    *Folder

	childFolders []*Folder
	documents    []*Document
}

// NewFolder constructs a root or child folder.
func NewFolder(namespace, name, path string, parent *Folder) *Folder {
	return &Folder{Namespace: namespace, Name: name, Path: path, Parent: parent}
}

// AddChildFolder appends a child folder, preserving declaration order.
func (f *Folder) AddChildFolder(child *Folder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.childFolders = append(f.childFolders, child)
}

// ChildFolder returns the existing child folder with the given name, if
// any.
func (f *Folder) ChildFolder(name string) *Folder {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, c := range f.childFolders {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildFolders returns a snapshot of this folder's children.
func (f *Folder) ChildFolders() []*Folder {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*Folder, len(f.childFolders))
	copy(out, f.childFolders)
	return out
}

// AddDocument attaches a loaded document to this folder.
func (f *Folder) AddDocument(doc *Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.documents = append(f.documents, doc)
	doc.folder = f
}

// RemoveDocument detaches a document from this folder (spec.md §3
// invariant 5: relationship-extraction shadows are removed on exit).
func (f *Folder) RemoveDocument(doc *Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, d := range f.documents {
		if d == doc {
			f.documents = append(f.documents[:i], f.documents[i+1:]...)
			return
		}
	}
}

// Documents returns a snapshot of this folder's documents.
func (f *Folder) Documents() []*Document {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*Document, len(f.documents))
	copy(out, f.documents)
	return out
}

// Document looks up an immediate child document by name.
func (f *Folder) Document(name string) *Document {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, d := range f.documents {
		if d.Name == name {
			return d
		}
	}
	return nil
}
