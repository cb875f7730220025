package domain

import "sync"

// Relationship is an end-to-end foreign-key relationship inferred from an
// attribute-context tree plus is.identifiedBy (spec.md §3 "Relationship").
type Relationship struct {
	FromEntity    string
	FromAttribute string
	ToEntity      string
	ToAttribute   string
}

// RelationshipGraph accumulates outgoing/incoming relationship maps for a
// corpus (spec.md §4.8 step 4). Mutations happen only under the corpus
// serial boundary (spec.md §5), but the maps are guarded anyway since the
// HTTP veneer reads them concurrently with extraction.
type RelationshipGraph struct {
	mu       sync.RWMutex
	outgoing map[string][]*Relationship // keyed by from-entity
	incoming map[string][]*Relationship // keyed by to-entity
}

// NewRelationshipGraph builds an empty graph.
func NewRelationshipGraph() *RelationshipGraph {
	return &RelationshipGraph{
		outgoing: make(map[string][]*Relationship),
		incoming: make(map[string][]*Relationship),
	}
}

// Add appends a relationship to both the outgoing map (keyed by
// from-entity) and the incoming map (keyed by to-entity).
func (g *RelationshipGraph) Add(rel *Relationship) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.outgoing[rel.FromEntity] = append(g.outgoing[rel.FromEntity], rel)
	g.incoming[rel.ToEntity] = append(g.incoming[rel.ToEntity], rel)
}

// Outgoing returns the relationships recorded for entity as the
// from-entity.
func (g *RelationshipGraph) Outgoing(entity string) []*Relationship {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := g.outgoing[entity]
	cp := make([]*Relationship, len(out))
	copy(cp, out)
	return cp
}

// Incoming returns the relationships recorded for entity as the
// to-entity.
func (g *RelationshipGraph) Incoming(entity string) []*Relationship {
	g.mu.RLock()
	defer g.mu.RUnlock()
	in := g.incoming[entity]
	cp := make([]*Relationship, len(in))
	copy(cp, in)
	return cp
}

// ResetForManifest clears any relationships previously recorded for
// entities under the given manifest's outgoing keys, so that re-running
// calculate-entity-graph for a manifest is idempotent (spec.md §8
// "Relationship idempotence") rather than accumulative.
func (g *RelationshipGraph) ResetForManifest(entityPaths []string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, e := range entityPaths {
		for _, rel := range g.outgoing[e] {
			g.incoming[rel.ToEntity] = removeRelationship(g.incoming[rel.ToEntity], rel)
		}
		delete(g.outgoing, e)
	}
}

func removeRelationship(list []*Relationship, target *Relationship) []*Relationship {
	out := list[:0]
	for _, r := range list {
		if r != target {
			out = append(out, r)
		}
	}
	return out
}
