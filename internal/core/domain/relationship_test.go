package domain

import "testing"

func TestRelationshipGraphAddMirrorsIncoming(t *testing.T) {
	g := NewRelationshipGraph()
	rel := &Relationship{
		FromEntity:    "local:/schema/Order.cdm.json/Order",
		FromAttribute: "CustomerId",
		ToEntity:      "local:/schema/Customer.cdm.json/Customer",
		ToAttribute:   "CustomerId",
	}

	g.Add(rel)

	out := g.Outgoing(rel.FromEntity)
	if len(out) != 1 || out[0] != rel {
		t.Fatalf("expected outgoing to contain rel, got %v", out)
	}

	in := g.Incoming(rel.ToEntity)
	if len(in) != 1 || in[0] != rel {
		t.Fatalf("expected incoming to contain rel, got %v", in)
	}
}

func TestRelationshipGraphResetForManifestIsIdempotent(t *testing.T) {
	g := NewRelationshipGraph()
	rel := &Relationship{FromEntity: "Order", FromAttribute: "CustomerId", ToEntity: "Customer", ToAttribute: "CustomerId"}

	g.Add(rel)
	g.ResetForManifest([]string{"Order"})
	g.Add(rel)

	if out := g.Outgoing("Order"); len(out) != 1 {
		t.Fatalf("expected exactly one relationship after reset+re-add, got %d", len(out))
	}
	if in := g.Incoming("Customer"); len(in) != 1 {
		t.Fatalf("expected exactly one incoming relationship after reset+re-add, got %d", len(in))
	}
}
