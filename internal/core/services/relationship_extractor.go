package services

import (
	"strings"

	"github.com/cdm-corpus/corpus/internal/core/domain"
)

// RelationshipExtractor walks a resolved entity's attribute-context tree
// and derives end-to-end foreign-key relationships (spec.md §4.8).
// Grounded on services/graph.go's tree-walk-plus-accumulate shape.
type RelationshipExtractor struct {
	graph *domain.RelationshipGraph
}

// NewRelationshipExtractor builds an extractor that records into graph.
func NewRelationshipExtractor(graph *domain.RelationshipGraph) *RelationshipExtractor {
	return &RelationshipExtractor{graph: graph}
}

// ExtractEntity walks entity's resolved attribute-context tree (spec.md
// §4.8 steps 2-4), appending every relationship it finds to the graph and
// also returning them. entity.ResolvedAttributeContext must already be
// populated; entities without one contribute nothing.
func (x *RelationshipExtractor) ExtractEntity(entity *domain.Definition) []*domain.Relationship {
	if entity == nil || entity.ResolvedAttributeContext == nil {
		return nil
	}

	var found []*domain.Relationship
	entity.ResolvedAttributeContext.VisitPreOrder(func(n *domain.AttributeContextNode) {
		if n.Type != domain.ContextTypeEntityReference || n.Definition == nil || n.EntityReference == nil {
			return
		}
		rel := x.buildRelationship(entity, n)
		if rel == nil {
			return
		}
		found = append(found, rel)
		x.graph.Add(rel)
	})
	return found
}

// ExtractManifest resets the graph's entries for entities (spec.md §8
// "relationship idempotence") and re-extracts each.
func (x *RelationshipExtractor) ExtractManifest(entities []*domain.Definition) []*domain.Relationship {
	paths := make([]string, 0, len(entities))
	for _, e := range entities {
		paths = append(paths, logicalEntityPath(e))
	}
	x.graph.ResetForManifest(paths)

	var all []*domain.Relationship
	for _, e := range entities {
		all = append(all, x.ExtractEntity(e)...)
	}
	return all
}

func (x *RelationshipExtractor) buildRelationship(entity *domain.Definition, n *domain.AttributeContextNode) *domain.Relationship {
	toAttribute, ok := identifiedByAttribute(n.Definition)
	if !ok {
		return nil
	}

	genNode := nearestGeneratedAttributeSet(n)
	if genNode == nil {
		return nil
	}
	idNode := genNode.FindAddedAttributeIdentity()
	if idNode == nil || len(idNode.Children) == 0 {
		return nil
	}
	fromChild := idNode.Children[0]
	fromAttribute := lastSegmentWithoutPrefix(fromChild.NamedReference, fromChild.Name+"_")

	toEntity := referencedEntityPath(n.EntityReference)
	if toEntity == "" {
		return nil
	}

	return &domain.Relationship{
		FromEntity:    logicalEntityPath(entity),
		FromAttribute: fromAttribute,
		ToEntity:      toEntity,
		ToAttribute:   toAttribute,
	}
}

// identifiedByAttribute extracts the to-attribute from def's single
// is.identifiedBy applied trait (spec.md §4.8 step 3).
func identifiedByAttribute(def *domain.Definition) (string, bool) {
	var matches []*domain.TraitReference
	for _, tr := range def.AppliedTraits {
		if tr.NamedReference == "is.identifiedBy" {
			matches = append(matches, tr)
		}
	}
	if len(matches) != 1 {
		return "", false
	}
	tr := matches[0]
	if len(tr.Arguments) == 0 || tr.Arguments[0].Value == nil {
		return "", false
	}
	return lastSegment(tr.Arguments[0].Value.NamedReference), true
}

// nearestGeneratedAttributeSet scans n's ancestors, closest first, for a
// `_generatedAttributeSet` node (spec.md §4.8 step 3).
func nearestGeneratedAttributeSet(n *domain.AttributeContextNode) *domain.AttributeContextNode {
	for _, anc := range n.Ancestors() {
		if anc.Type == domain.ContextTypeGeneratedAttributeSet {
			return anc
		}
	}
	return nil
}

func referencedEntityPath(ref *domain.Reference) string {
	if def, ok := ref.FetchObjectDefinition(); ok && def != nil && def.Document() != nil {
		return def.Document().Path
	}
	return ref.NamedReference
}

// logicalEntityPath strips a leading wrtSelf_, which attribute-context
// construction never currently emits; kept so a "from the owning entity
// itself" context built elsewhere still reports a clean path.
func logicalEntityPath(entity *domain.Definition) string {
	return strings.TrimPrefix(entity.LogicalEntityPath, "wrtSelf_")
}

func lastSegment(symbol string) string {
	idx := strings.LastIndexByte(symbol, '/')
	if idx < 0 {
		return symbol
	}
	return symbol[idx+1:]
}

func lastSegmentWithoutPrefix(symbol, prefix string) string {
	return strings.TrimPrefix(lastSegment(symbol), prefix)
}
