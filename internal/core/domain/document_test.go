package domain

import "testing"

func TestDocumentDeclareAtRejectsDuplicate(t *testing.T) {
	doc := NewDocument("local", "Foo.cdm.json", "local:/Foo.cdm.json")
	ids := &IDGenerator{}
	first := NewDefinition(ids, Entity, "Foo", doc)
	second := NewDefinition(ids, Entity, "Foo", doc)

	if err := doc.DeclareAt("Foo", first); err != nil {
		t.Fatalf("unexpected error on first declaration: %v", err)
	}
	if err := doc.DeclareAt("Foo", second); err != ErrDuplicateDeclaration {
		t.Fatalf("expected ErrDuplicateDeclaration, got %v", err)
	}
}

func TestDocumentMarkNeedsIndexingInvalidatesPriorities(t *testing.T) {
	doc := NewDocument("local", "Foo.cdm.json", "local:/Foo.cdm.json")
	doc.SetPriorities(&ImportPriorities{ByDocument: map[*Document]int{doc: 0}})
	doc.FinishIndexing()

	if doc.Priorities() == nil {
		t.Fatal("expected priorities to be set")
	}

	doc.MarkNeedsIndexing()

	if doc.Priorities() != nil {
		t.Fatal("expected priorities to be cleared on MarkNeedsIndexing")
	}
	if !doc.NeedsIndexing() {
		t.Fatal("expected needsIndexing to be true")
	}
	if doc.ImportsIndexed() {
		t.Fatal("expected importsIndexed to be reset to false")
	}
}

func TestDocumentFinishIndexingFlipsFlags(t *testing.T) {
	doc := NewDocument("local", "Foo.cdm.json", "local:/Foo.cdm.json")
	doc.SetCurrentlyIndexing(true)

	doc.FinishIndexing()

	if doc.NeedsIndexing() {
		t.Error("expected needsIndexing false after FinishIndexing")
	}
	if doc.CurrentlyIndexing() {
		t.Error("expected currentlyIndexing false after FinishIndexing")
	}
	if !doc.ImportsIndexed() {
		t.Error("expected importsIndexed true after FinishIndexing")
	}
}

func TestFolderAddRemoveDocument(t *testing.T) {
	folder := NewFolder("local", "schema", "local:/schema", nil)
	doc := NewDocument("local", "Foo.cdm.json", "local:/schema/Foo.cdm.json")

	folder.AddDocument(doc)
	if got := folder.Document("Foo.cdm.json"); got != doc {
		t.Fatalf("expected to find document, got %v", got)
	}
	if doc.Folder() != folder {
		t.Fatal("expected document's folder back-reference to be set")
	}

	folder.RemoveDocument(doc)
	if got := folder.Document("Foo.cdm.json"); got != nil {
		t.Fatalf("expected document to be removed, got %v", got)
	}
}
