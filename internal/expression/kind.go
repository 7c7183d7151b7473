// Package expression defines the node kinds of a filter tree: their operators,
// attributes, row templates and value snapshots.
package expression

// Kind tags the variant of a node.
type Kind string

const (
	KindString     Kind = "string"
	KindNumber     Kind = "number"
	KindBool       Kind = "boolean"
	KindEnum       Kind = "enum"
	KindDate       Kind = "date"
	KindOptional   Kind = "optional"
	KindCollection Kind = "collection"
	KindLogical    Kind = "logical"
	KindCustom     Kind = "custom"
)

// IsLeaf reports whether the kind compares a single field value against a literal.
func (k Kind) IsLeaf() bool {
	switch k {
	case KindString, KindNumber, KindBool, KindEnum, KindDate:
		return true
	}
	return false
}

// Operators returns the ordered operator set of a built-in kind. Custom kinds
// declare their own set, see Template.Operators.
func (k Kind) Operators() []Operator {
	switch k {
	case KindString:
		return stringOperators
	case KindNumber:
		return numberOperators
	case KindBool:
		return boolOperators
	case KindEnum:
		return enumOperators
	case KindDate:
		return dateOperators
	case KindOptional:
		return optionalOperators
	case KindCollection:
		return collectionOperators
	case KindLogical:
		return logicalOperators
	}
	return nil
}
