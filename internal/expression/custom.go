package expression

import "github.com/nlstn/go-predicateview/internal/predicate"

// CustomKind is a host-defined node kind for fields whose comparison semantics
// do not fit the built-in kinds.
//
// Predicate returns a predicate over its own input variable; the compiler
// substitutes that variable with the record being filtered. Returning false
// means the value cannot be expressed and the node contributes no constraint.
type CustomKind interface {
	Title() string
	DefaultValue() any
	Operators() []Operator
	Predicate(value any, op Operator) (predicate.Predicate, bool)
}

// CustomDecoder is implemented by custom kinds that can recognise their own
// compiled shape. input is the variable the surrounding graph reads records from.
type CustomDecoder interface {
	Decode(e predicate.Expression, input *predicate.Variable) (op Operator, value any, ok bool)
}

// CustomFunc adapts plain functions to CustomKind. Match is optional; when set
// the kind also implements CustomDecoder.
type CustomFunc struct {
	Name    string
	Default any
	Ops     []Operator
	Build   func(value any, op Operator) (predicate.Predicate, bool)
	Match   func(e predicate.Expression, input *predicate.Variable) (Operator, any, bool)
}

func (c *CustomFunc) Title() string { return c.Name }

func (c *CustomFunc) DefaultValue() any { return c.Default }

func (c *CustomFunc) Operators() []Operator { return c.Ops }

func (c *CustomFunc) Predicate(value any, op Operator) (predicate.Predicate, bool) {
	if c.Build == nil {
		return predicate.Predicate{}, false
	}
	return c.Build(value, op)
}

func (c *CustomFunc) Decode(e predicate.Expression, input *predicate.Variable) (Operator, any, bool) {
	if c.Match == nil {
		return "", nil, false
	}
	return c.Match(e, input)
}
