// Package jsoncdm implements the driven.Materializer contract for the
// CDM-JSON document format: a document body of imports plus a flat list of
// top-level definitions, each optionally nesting attributes, parameters,
// and applied traits.
package jsoncdm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cdm-corpus/corpus/internal/core/domain"
	"github.com/cdm-corpus/corpus/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.Materializer = (*Materializer)(nil)

// Materializer decodes CDM-JSON bytes into a *domain.Document. Grounded on
// ports/driven/normaliser.go's single-method transform-port shape; stdlib
// encoding/json is used rather than a third-party decoder because the wire
// format here is a small, fully-controlled schema with no need for
// streaming, schema validation, or non-JSON encodings — none of which the
// retrieval pack's JSON libraries (all pulled in transitively, none
// imported directly by any example for hand-rolled document formats) add
// over the standard decoder for this shape.
type Materializer struct{}

// NewMaterializer builds a Materializer. It holds no state.
func NewMaterializer() *Materializer {
	return &Materializer{}
}

type wireDocument struct {
	JSONSchemaSemanticVersion string          `json:"jsonSchemaSemanticVersion"`
	Imports                   []wireImport    `json:"imports"`
	Definitions               []wireDefinition `json:"definitions"`
}

type wireImport struct {
	CorpusPath string `json:"corpusPath"`
	Moniker    string `json:"moniker,omitempty"`
}

// UnmarshalJSON accepts both the object form {"corpusPath": "...", "moniker": "..."}
// and the bare-string shorthand "corpusPath".
func (i *wireImport) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		i.CorpusPath = s
		return nil
	}
	type alias wireImport
	var a alias
	if err := json.Unmarshal(b, &a); err != nil {
		return err
	}
	*i = wireImport(a)
	return nil
}

type wireDefinition struct {
	Kind             string            `json:"kind"`
	Name             string            `json:"name"`
	DataTypeName     string            `json:"dataTypeReference,omitempty"`
	EntityReference  string            `json:"entityReference,omitempty"`
	Required         bool              `json:"required,omitempty"`
	DefaultValue     string            `json:"defaultValue,omitempty"`
	HasAttributes    []wireDefinition  `json:"hasAttributes,omitempty"`
	HasParameters    []wireDefinition  `json:"hasParameters,omitempty"`
	AppliedTraits    []wireTrait       `json:"appliedTraits,omitempty"`
}

type wireTrait struct {
	TraitReference string          `json:"traitReference"`
	Arguments      []wireArgument  `json:"arguments,omitempty"`
}

type wireArgument struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

var kindToObjectType = map[string]domain.ObjectType{
	"entity":          domain.Entity,
	"trait":           domain.Trait,
	"purpose":         domain.Purpose,
	"dataType":        domain.DataType,
	"parameter":       domain.Parameter,
	"typeAttribute":   domain.TypeAttribute,
	"entityAttribute": domain.EntityAttribute,
	"attributeGroup":  domain.AttributeGroup,
	"constantEntity":  domain.ConstantEntity,
}

// Materialize implements driven.Materializer.
func (m *Materializer) Materialize(ctx context.Context, bytes []byte, format string, doc *domain.Document, ids *domain.IDGenerator) error {
	var wire wireDocument
	if err := json.Unmarshal(bytes, &wire); err != nil {
		return fmt.Errorf("%s: %w", doc.Path, domain.ErrParseError)
	}

	for _, imp := range wire.Imports {
		if imp.CorpusPath == "" {
			return fmt.Errorf("%s: empty import path: %w", doc.Path, domain.ErrParseError)
		}
		doc.Imports = append(doc.Imports, &domain.Import{Path: imp.CorpusPath, Moniker: imp.Moniker})
	}

	defs := make([]*domain.Definition, 0, len(wire.Definitions))
	for _, wd := range wire.Definitions {
		def, err := buildDefinition(ids, doc, wd)
		if err != nil {
			return err
		}
		defs = append(defs, def)
	}
	doc.Definitions = defs
	return nil
}

func buildDefinition(ids *domain.IDGenerator, doc *domain.Document, wd wireDefinition) (*domain.Definition, error) {
	kind, ok := kindToObjectType[wd.Kind]
	if !ok {
		return nil, fmt.Errorf("%s: unknown definition kind %q: %w", doc.Path, wd.Kind, domain.ErrParseError)
	}
	def := domain.NewDefinition(ids, kind, wd.Name, doc)
	def.Required = wd.Required

	if wd.DataTypeName != "" {
		def.DataTypeRef = domain.NewNamedReference(wd.DataTypeName, domain.Error, doc)
	}
	if wd.DefaultValue != "" {
		def.DefaultValue = domain.NewNamedReference(wd.DefaultValue, domain.Error, doc)
	}
	if wd.EntityReference != "" {
		def.EntityReference = domain.NewNamedReference(wd.EntityReference, domain.Entity, doc)
	}

	for _, wt := range wd.AppliedTraits {
		tr := domain.NewTraitReference(wt.TraitReference, doc)
		for _, arg := range wt.Arguments {
			tr.Arguments = append(tr.Arguments, &domain.ArgumentValue{
				ParameterName: arg.Name,
				Value:         domain.NewNamedReference(arg.Value, domain.Error, doc),
			})
		}
		def.AppliedTraits = append(def.AppliedTraits, tr)
	}

	for _, wa := range wd.HasAttributes {
		attr, err := buildDefinition(ids, doc, wa)
		if err != nil {
			return nil, err
		}
		def.Attributes = append(def.Attributes, attr)
	}
	for _, wp := range wd.HasParameters {
		param, err := buildDefinition(ids, doc, wp)
		if err != nil {
			return nil, err
		}
		def.Parameters = append(def.Parameters, param)
	}

	return def, nil
}
