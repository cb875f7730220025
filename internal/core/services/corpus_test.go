package services

import (
	"context"
	"testing"

	"github.com/cdm-corpus/corpus/internal/core/domain"
	"github.com/cdm-corpus/corpus/internal/core/ports/driving"
)

func TestCorpusFetchObjectReportsUndeclaredEntity(t *testing.T) {
	corpus := NewCorpus(fakeMaterializer{}, CorpusConfig{DefaultNamespace: "local"})
	adapter := newFakeAdapter()
	corpus.RegisterStorage("local", adapter)
	adapter.put("/Customer.cdm.json", []byte(`{"imports":[]}`))

	def, err := corpus.FetchObject(context.Background(), "local:/Customer.cdm.json/Customer", nil, false)
	if err == nil {
		t.Fatalf("expected unresolved symbol for an object the fake materializer never declares, got %v", def)
	}
}

func TestCorpusFetchObjectRejectsMalformedPath(t *testing.T) {
	corpus := NewCorpus(fakeMaterializer{}, CorpusConfig{DefaultNamespace: "local"})
	_, err := corpus.FetchObject(context.Background(), "../escape", nil, false)
	if err == nil {
		t.Fatal("expected a path-format error")
	}
}

func TestCorpusCalculateEntityGraphAndRelationshipLookup(t *testing.T) {
	corpus := NewCorpus(fakeMaterializer{}, CorpusConfig{DefaultNamespace: "local"})
	ids := &domain.IDGenerator{}

	orderDoc := domain.NewDocument("local", "Orders.cdm.json", "local:/Orders.cdm.json")
	customerDoc := domain.NewDocument("local", "Customer.cdm.json", "local:/Customer.cdm.json")
	customerEntity := domain.NewDefinition(ids, domain.Entity, "Customer", customerDoc)
	customerDoc.Definitions = []*domain.Definition{customerEntity}

	fkAttr := domain.NewDefinition(ids, domain.EntityAttribute, "Customer", orderDoc)
	fkAttr.EntityReference = domain.NewExplicitReference(customerEntity, domain.Entity, orderDoc)
	fkTrait := domain.NewTraitReference("is.identifiedBy", orderDoc)
	fkTrait.Arguments = []*domain.ArgumentValue{
		{ParameterName: "attribute", Value: domain.NewNamedReference("Customer/CustomerId", domain.Error, orderDoc)},
	}
	fkAttr.AppliedTraits = []*domain.TraitReference{fkTrait}

	orderEntity := domain.NewDefinition(ids, domain.Entity, "Order", orderDoc)
	orderEntity.Attributes = []*domain.Definition{fkAttr}
	orderDoc.Definitions = []*domain.Definition{orderEntity}
	orderDoc.Imports = []*domain.Import{{Path: "local:/Customer.cdm.json"}}

	folder := domain.NewFolder("local", "root", "local:/", nil)
	corpus.library.Add(orderDoc.Path, folder, orderDoc)
	corpus.library.Add(customerDoc.Path, folder, customerDoc)

	if err := corpus.CalculateEntityGraph(context.Background(), "local:/Orders.cdm.json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := corpus.FetchOutgoingRelationships(orderEntity.LogicalEntityPath)
	if len(out) != 1 {
		t.Fatalf("expected 1 outgoing relationship for Order, got %d", len(out))
	}
	if out[0].ToEntity != customerDoc.Path {
		t.Errorf("expected relationship to point at Customer.cdm.json, got %s", out[0].ToEntity)
	}

	in := corpus.FetchIncomingRelationships(customerDoc.Path)
	if len(in) != 1 {
		t.Fatalf("expected 1 incoming relationship for Customer, got %d", len(in))
	}
}

var _ = driving.FetchAnchor{}
