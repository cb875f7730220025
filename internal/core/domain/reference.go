package domain

// Reference is a polymorphic pointer to a declaration: either a symbolic
// NamedReference (a plain symbol or a "moniker/symbol" form) or an inline
// Explicit definition, constrained to resolve to ExpectedType (spec.md §3
// "Reference"). Error as ExpectedType means "no type gate".
type Reference struct {
	NamedReference string
	Explicit       *Definition
	ExpectedType   ObjectType

	// InDocument is the reference's owning document, used as the default
	// wrt-doc when resolving it during indexing.
	InDocument *Document

	resolved         *Definition
	resolvedDocument *Document
	found            bool
}

// NewNamedReference builds a symbolic reference.
func NewNamedReference(symbol string, expected ObjectType, inDoc *Document) *Reference {
	return &Reference{NamedReference: symbol, ExpectedType: expected, InDocument: inDoc}
}

// NewExplicitReference wraps an inline definition as a reference that is
// already resolved to it.
func NewExplicitReference(def *Definition, expected ObjectType, inDoc *Document) *Reference {
	r := &Reference{Explicit: def, ExpectedType: expected, InDocument: inDoc}
	if def != nil {
		r.resolved = def
		r.resolvedDocument = def.Document()
		r.found = true
	}
	return r
}

// IsExplicit reports whether this reference carries an inline definition
// rather than a symbolic name.
func (r *Reference) IsExplicit() bool {
	return r.Explicit != nil
}

// FetchObjectDefinition returns the definition this reference is bound to
// (spec.md §1 "fetch-object-definition" contract). It does not resolve an
// unbound reference itself; it returns nil, false until Bind has recorded
// a successful resolution.
func (r *Reference) FetchObjectDefinition() (*Definition, bool) {
	return r.resolved, r.found
}

// Bind records the resolution outcome for this reference.
func (r *Reference) Bind(def *Definition, doc *Document) {
	r.resolved = def
	r.resolvedDocument = doc
	r.found = def != nil
}

// ResolvedDocument returns the document this reference was bound to, if
// any.
func (r *Reference) ResolvedDocument() *Document {
	return r.resolvedDocument
}

// ArgumentValue binds a trait invocation argument to the parameter it
// satisfies (spec.md §4.5 step 6).
type ArgumentValue struct {
	ParameterName     string
	Value             *Reference
	ResolvedParameter *Definition
}

// TraitReference is a Reference specialized for trait application: it
// additionally carries argument bindings and a latch recording whether
// they have been resolved (spec.md §4.5 step 6 "TraitReference.resolvedArguments
// is latched true").
type TraitReference struct {
	Reference
	Arguments         []*ArgumentValue
	ResolvedArguments bool
}

// NewTraitReference builds an unresolved trait reference.
func NewTraitReference(symbol string, inDoc *Document) *TraitReference {
	return &TraitReference{Reference: Reference{NamedReference: symbol, ExpectedType: Trait, InDocument: inDoc}}
}
