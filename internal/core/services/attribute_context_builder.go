package services

import (
	"github.com/cdm-corpus/corpus/internal/core/domain"
)

// buildAttributeContexts implements the "resolve traits, attributes,
// foreign-keys" pass of spec.md §4.5 step 7 for every top-level entity in
// a dirty document: it produces each entity's resolved attribute-context
// tree, the structure the relationship extractor later walks (spec.md
// §4.8). This is a deliberately narrowed rendition of CDM's full attribute
// resolution (projections, polymorphic sources, and array expansion are
// out of scope) — it builds just enough of the tree shape to support
// entity-reference foreign-key discovery.
func (p *IndexingPipeline) buildAttributeContexts(dirty []*domain.Document) {
	for _, doc := range dirty {
		for _, def := range doc.Definitions {
			if def.ObjectType() == domain.Entity {
				p.buildEntityAttributeContext(doc, def)
			}
		}
	}
}

func (p *IndexingPipeline) buildEntityAttributeContext(doc *domain.Document, entity *domain.Definition) {
	entity.LogicalEntityPath = doc.Path + "/" + entity.DeclaredName()

	root := domain.NewAttributeContextNode(entity.DeclaredName(), domain.ContextTypeEntity, nil)
	genSet := domain.NewAttributeContextNode("_generatedAttributeSet", domain.ContextTypeGeneratedAttributeSet, root)

	for _, attr := range entity.Attributes {
		if attr.ObjectType() != domain.EntityAttribute || attr.EntityReference == nil {
			domain.NewAttributeContextNode(attr.DeclaredName(), "typeAttribute", root)
			continue
		}

		refDef, ok := attr.EntityReference.FetchObjectDefinition()
		if !ok {
			continue
		}
		if toAttr, ok := identifiedByAttribute(attr); ok {
			idNode := domain.NewAttributeContextNode("AddedAttributeIdentity", domain.ContextTypeAddedAttributeIdentity, genSet)
			child := domain.NewAttributeContextNode(refDef.DeclaredName(), "attributeDefinition", idNode)
			child.NamedReference = refDef.DeclaredName() + "/" + refDef.DeclaredName() + "_" + toAttr
		}

		refNode := domain.NewAttributeContextNode(attr.DeclaredName(), domain.ContextTypeEntityReference, genSet)
		refNode.Definition = attr
		refNode.EntityReference = attr.EntityReference
	}

	entity.ResolvedAttributeContext = root
}
