package services

import (
	"context"
	"errors"
	"testing"

	"github.com/cdm-corpus/corpus/internal/core/domain"
)

func newPipelineFixture() (*IndexingPipeline, *DocumentLibrary, *SymbolTable, *Resolver) {
	library := NewDocumentLibrary()
	symbols := NewSymbolTable()
	resolver := NewResolver(symbols)
	cacheKeys := NewCacheKeyEngine(resolver, symbols)
	graphBuilder := NewImportGraphBuilder(func(importPath string, from *domain.Document) (*domain.Document, error) {
		_, doc, ok := library.Lookup(importPath)
		if !ok {
			return nil, domain.ErrNotFound
		}
		return doc, nil
	})
	pipeline := NewIndexingPipeline(IndexingPipelineConfig{
		Library:      library,
		Symbols:      symbols,
		GraphBuilder: graphBuilder,
		Resolver:     resolver,
		CacheKeys:    cacheKeys,
	})
	return pipeline, library, symbols, resolver
}

func TestIndexingPipelineDeclareAndResolveAcrossDocuments(t *testing.T) {
	pipeline, library, _, _ := newPipelineFixture()
	ids := &domain.IDGenerator{}

	typesDoc := domain.NewDocument("local", "Types.cdm.json", "local:/Types.cdm.json")
	stringType := domain.NewDefinition(ids, domain.DataType, "string", typesDoc)
	typesDoc.Definitions = []*domain.Definition{stringType}
	folder := domain.NewFolder("local", "root", "local:/", nil)
	library.Add(typesDoc.Path, folder, typesDoc)

	customerDoc := domain.NewDocument("local", "Customer.cdm.json", "local:/Customer.cdm.json")
	customerDoc.Imports = []*domain.Import{{Path: "local:/Types.cdm.json"}}
	param := domain.NewDefinition(ids, domain.Parameter, "idType", customerDoc)
	param.DataTypeRef = domain.NewNamedReference("string", domain.Error, customerDoc)
	entity := domain.NewDefinition(ids, domain.Entity, "Customer", customerDoc)
	entity.Parameters = []*domain.Definition{param}
	customerDoc.Definitions = []*domain.Definition{entity}
	library.Add(customerDoc.Path, folder, customerDoc)

	stage, err := pipeline.Run(context.Background(), domain.Finished, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stage != domain.Finished {
		t.Fatalf("expected Finished, got %v", stage)
	}

	if customerDoc.NeedsIndexing() {
		t.Fatal("expected customerDoc to be marked indexed")
	}
	if !param.DataTypeRef.IsExplicit() {
		def, ok := param.DataTypeRef.FetchObjectDefinition()
		if !ok || def != stringType {
			t.Fatalf("expected idType's data type to resolve to Types.cdm.json's string, got %v ok=%v", def, ok)
		}
	}
}

func TestIndexingPipelineDuplicateDeclarationFails(t *testing.T) {
	pipeline, library, _, _ := newPipelineFixture()
	ids := &domain.IDGenerator{}
	doc := domain.NewDocument("local", "A.cdm.json", "local:/A.cdm.json")
	a1 := domain.NewDefinition(ids, domain.Entity, "Dup", doc)
	a2 := domain.NewDefinition(ids, domain.Entity, "Dup", doc)
	doc.Definitions = []*domain.Definition{a1, a2}
	folder := domain.NewFolder("local", "root", "local:/", nil)
	library.Add(doc.Path, folder, doc)

	_, err := pipeline.Run(context.Background(), domain.Finished, false)
	if !errors.Is(err, domain.ErrDuplicateDeclaration) {
		t.Fatalf("expected ErrDuplicateDeclaration, got %v", err)
	}
}

func TestIndexingPipelineStopsAtRequestedStage(t *testing.T) {
	pipeline, library, _, _ := newPipelineFixture()
	ids := &domain.IDGenerator{}
	doc := domain.NewDocument("local", "A.cdm.json", "local:/A.cdm.json")
	entity := domain.NewDefinition(ids, domain.Entity, "Thing", doc)
	doc.Definitions = []*domain.Definition{entity}
	folder := domain.NewFolder("local", "root", "local:/", nil)
	library.Add(doc.Path, folder, doc)

	stage, err := pipeline.Run(context.Background(), domain.MinimumForResolving, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stage != domain.MinimumForResolving {
		t.Fatalf("expected MinimumForResolving, got %v", stage)
	}
	if !doc.NeedsIndexing() {
		t.Fatal("expected doc to remain dirty when stopping short of Finished")
	}
}

func TestIndexingPipelineEmitsCorpusErrorForUnresolvedReference(t *testing.T) {
	pipeline, library, _, _ := newPipelineFixture()
	ids := &domain.IDGenerator{}
	doc := domain.NewDocument("local", "A.cdm.json", "local:/A.cdm.json")
	entity := domain.NewDefinition(ids, domain.Entity, "Order", doc)
	entity.EntityReference = domain.NewNamedReference("Missing", domain.Entity, doc)
	doc.Definitions = []*domain.Definition{entity}
	folder := domain.NewFolder("local", "root", "local:/", nil)
	library.Add(doc.Path, folder, doc)

	var got domain.Event
	pipeline.SetEventCallback(func(ev domain.Event) { got = ev }, domain.SeverityInfo)

	if _, err := pipeline.Run(context.Background(), domain.Finished, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.CorpusPath != doc.Path {
		t.Fatalf("expected corpus path %s, got %s", doc.Path, got.CorpusPath)
	}
	if !errors.Is(got.Err, domain.ErrUnresolvedSymbol) {
		t.Fatalf("expected errors.Is to find ErrUnresolvedSymbol through the delivered event, got %v", got.Err)
	}
	var cerr *domain.CorpusError
	if !errors.As(got.Err, &cerr) {
		t.Fatalf("expected event error to be a *domain.CorpusError, got %T", got.Err)
	}
}

func TestIndexingPipelineResumesFromRequestedStage(t *testing.T) {
	pipeline, library, _, _ := newPipelineFixture()
	ids := &domain.IDGenerator{}
	doc := domain.NewDocument("local", "A.cdm.json", "local:/A.cdm.json")
	entity := domain.NewDefinition(ids, domain.Entity, "Thing", doc)
	doc.Definitions = []*domain.Definition{entity}
	folder := domain.NewFolder("local", "root", "local:/", nil)
	library.Add(doc.Path, folder, doc)

	stage, err := pipeline.RunFrom(context.Background(), domain.Start, domain.MinimumForResolving, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stage != domain.MinimumForResolving {
		t.Fatalf("expected MinimumForResolving, got %v", stage)
	}
	if !doc.NeedsIndexing() {
		t.Fatal("expected doc to remain dirty before the driver resumes it")
	}

	stage, err = pipeline.RunFrom(context.Background(), domain.MinimumForResolving, domain.Finished, false)
	if err != nil {
		t.Fatalf("unexpected error resuming: %v", err)
	}
	if stage != domain.Finished {
		t.Fatalf("expected Finished, got %v", stage)
	}
	if doc.NeedsIndexing() {
		t.Fatal("expected doc to be marked indexed after the driver carries it through Finished")
	}
}
