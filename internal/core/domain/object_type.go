package domain

// ObjectType tags a Definition or constrains what a Reference may resolve
// to (spec.md §3 "Definition").
type ObjectType int

const (
	Error ObjectType = iota
	Entity
	Trait
	Purpose
	DataType
	Parameter
	TypeAttribute
	EntityAttribute
	AttributeGroup
	ConstantEntity
	AttributeContext
	LocalEntityDeclaration
	ReferencedEntityDeclaration
)

func (t ObjectType) String() string {
	switch t {
	case Entity:
		return "entity"
	case Trait:
		return "trait"
	case Purpose:
		return "purpose"
	case DataType:
		return "dataType"
	case Parameter:
		return "parameter"
	case TypeAttribute:
		return "typeAttribute"
	case EntityAttribute:
		return "entityAttribute"
	case AttributeGroup:
		return "attributeGroup"
	case ConstantEntity:
		return "constantEntity"
	case AttributeContext:
		return "attributeContext"
	case LocalEntityDeclaration:
		return "localEntityDeclaration"
	case ReferencedEntityDeclaration:
		return "referencedEntityDeclaration"
	default:
		return "error"
	}
}

// parameterDataTypeKinds is the set of object types a parameter's declared
// data type may derive from, per spec §4.5 step 5: {entity, attribute,
// data-type, purpose, trait, attribute-group}. "attribute" covers both
// TypeAttribute and EntityAttribute.
var parameterDataTypeKinds = map[ObjectType]bool{
	Entity:          true,
	TypeAttribute:   true,
	EntityAttribute: true,
	DataType:        true,
	Purpose:         true,
	Trait:           true,
	AttributeGroup:  true,
}

// IsParameterDataTypeKind reports whether a parameter's declared data type
// derives from one of the kinds spec.md §4.5 requires coercion for.
func IsParameterDataTypeKind(t ObjectType) bool {
	return parameterDataTypeKinds[t]
}
