package domain

import "sync/atomic"

var nextObjectID int64

// NewObjectID returns a process-unique, monotonically increasing id. Each
// corpus should route its definitions through one counter instance so
// multiple corpora in a process never collide (spec.md §9 "make it a field
// on the corpus, not a global") — callers own an *IDGenerator per corpus
// and pass it in rather than relying on this package-level fallback, which
// exists only for definitions built outside a corpus (e.g. in tests).
func NewObjectID() int64 {
	return atomic.AddInt64(&nextObjectID, 1)
}

// IDGenerator hands out process-unique ids scoped to one corpus instance.
type IDGenerator struct {
	counter int64
}

// Next returns the next id for this generator.
func (g *IDGenerator) Next() int64 {
	return atomic.AddInt64(&g.counter, 1)
}

// VisitFunc is called for each definition node during a Visit.
// Returning true stops the traversal at that node (a conventional
// "visited and handled" signal matching CDM's own visitor contract).
type VisitFunc func(node *Definition) bool

// Definition is a tagged sum over ObjectType (spec.md §3 "Definition").
// Rather than a deep inheritance hierarchy, every kind of declaration is
// represented by this one struct; fields only meaningful to some kinds are
// left zero-valued for the rest (spec.md §9 design notes).
type Definition struct {
	id           int64
	objectType   ObjectType
	declaredName string
	doc          *Document

	// DeclaredPath is the dotted path this definition was registered under
	// inside its document (spec.md §4.5 step 3).
	DeclaredPath string

	// Attributes holds nested attribute/entity-attribute/type-attribute
	// definitions for Entity, AttributeGroup, and EntityAttribute kinds.
	Attributes []*Definition

	// AppliedTraits holds trait references attached to this definition
	// (spec.md §4.5 steps 6–7).
	AppliedTraits []*TraitReference

	// Parameters holds declared parameters for Trait, Purpose, and
	// DataType kinds.
	Parameters []*Definition

	// DataTypeRef is the declared data type of a Parameter definition.
	DataTypeRef *Reference

	// Required marks a Parameter definition as mandatory in trait
	// invocations (spec.md §7 "MissingRequiredArgument").
	Required bool

	// DefaultValue is a Parameter's default value, coerced to a reference
	// of DataTypeRef's kind during indexing (spec.md §4.5 step 5).
	DefaultValue *Reference

	// EntityReference is set on an EntityAttribute definition that is
	// itself a reference to another entity (the foreign-key shape the
	// relationship extractor walks, spec.md §4.8).
	EntityReference *Reference

	// ResolvedAttributeContext is populated only on a resolved entity
	// shadow (spec.md §4.8 step 1): the root of its attribute-context
	// tree.
	ResolvedAttributeContext *AttributeContextNode

	// LogicalEntityPath records the unresolved corpus path a resolved
	// entity shadow was produced from, used to recover "from-entity" in
	// relationship extraction (spec.md §4.8 step 3, §9 open question).
	LogicalEntityPath string

	// validateFn lets callers (and tests) inject validation behavior
	// without subclassing; nil means "always valid".
	validateFn func(*Definition) bool
}

// NewDefinition constructs a Definition of the given kind, owned by doc.
func NewDefinition(ids *IDGenerator, objectType ObjectType, name string, doc *Document) *Definition {
	var id int64
	if ids != nil {
		id = ids.Next()
	} else {
		id = NewObjectID()
	}
	return &Definition{
		id:           id,
		objectType:   objectType,
		declaredName: name,
		doc:          doc,
	}
}

func (d *Definition) ID() int64             { return d.id }
func (d *Definition) ObjectType() ObjectType { return d.objectType }
func (d *Definition) DeclaredName() string  { return d.declaredName }
func (d *Definition) Document() *Document   { return d.doc }

// SetValidator installs custom validation logic (used by the persistence
// layer's concrete definition types, and by tests).
func (d *Definition) SetValidator(fn func(*Definition) bool) {
	d.validateFn = fn
}

// Validate runs this definition's validator, defaulting to "valid" when
// none is installed (spec.md §4.5 step 2 "Integrity").
func (d *Definition) Validate() bool {
	if d.validateFn == nil {
		return true
	}
	return d.validateFn(d)
}

// Visit walks this definition, then its nested attributes, then its
// parameters, in declaration order, calling pre before descending and post after.
// Either callback may be nil. Matches the "visit(pre, post)" contract of
// spec.md §3.
func (d *Definition) Visit(pre, post VisitFunc) bool {
	if pre != nil && pre(d) {
		return true
	}
	for _, attr := range d.Attributes {
		if attr.Visit(pre, post) {
			return true
		}
	}
	for _, param := range d.Parameters {
		if param.Visit(pre, post) {
			return true
		}
	}
	if post != nil && post(d) {
		return true
	}
	return false
}
