// Package predicate implements the boolean computation graph that filter trees
// compile into and decode from.
//
// A Predicate binds an input Variable to an Expression. Expressions are small
// pointer structs that evaluate themselves against a set of variable Bindings.
// The node set mirrors what a predicate evaluator of a host data store would
// accept: key path access, literal values, equality and relational comparison,
// string containment and prefix tests, conjunction/disjunction, collection
// quantifiers over a per-element variable and optional unwrapping.
package predicate

import (
	"sync/atomic"
)

// Expression is a node of the computation graph.
//
// Host packages may supply their own node types. Such nodes evaluate normally but
// are opaque to the decoder and to SQL pushdown, and take part in variable
// substitution only if they also implement VariableReplacer.
type Expression interface {
	Evaluate(b Bindings) (any, error)
}

// ComparisonOperator selects the relational test of a Comparison.
type ComparisonOperator string

const (
	LessThan           ComparisonOperator = "<"
	LessThanOrEqual    ComparisonOperator = "<="
	GreaterThan        ComparisonOperator = ">"
	GreaterThanOrEqual ComparisonOperator = ">="
)

// CollectionOperation selects the quantifier of a SequencePredicate.
type CollectionOperation string

const (
	// OperationContains is true if at least one element passes the test.
	OperationContains CollectionOperation = "contains"
	// OperationAllSatisfy is true if every element passes the test (vacuously true when empty).
	OperationAllSatisfy CollectionOperation = "allSatisfy"
)

var variableSeq atomic.Uint64

// Variable is a bound input of the graph: the root record of a Predicate or the
// current element inside a SequencePredicate / OptionalFlatMap.
type Variable struct {
	Key uint64
}

// NewVariable returns a variable with a process-unique key.
func NewVariable() *Variable {
	return &Variable{Key: variableSeq.Add(1)}
}

// KeyPath reads a named field from the value of Root. Dotted names walk nested
// structs.
type KeyPath struct {
	Root  Expression
	Field string
}

// Value is a literal.
type Value struct {
	Value any
}

// NilLiteral is the absent value, compared against optional key paths.
type NilLiteral struct{}

// Equal tests LHS == RHS.
type Equal struct {
	LHS Expression
	RHS Expression
}

// NotEqual tests LHS != RHS.
type NotEqual struct {
	LHS Expression
	RHS Expression
}

// Comparison tests LHS <Op> RHS for ordered values.
type Comparison struct {
	LHS Expression
	RHS Expression
	Op  ComparisonOperator
}

// Conjunction is LHS && RHS with short-circuit evaluation.
type Conjunction struct {
	LHS Expression
	RHS Expression
}

// Disjunction is LHS || RHS with short-circuit evaluation.
type Disjunction struct {
	LHS Expression
	RHS Expression
}

// StringContains is a locale-aware substring test: case and diacritics are ignored.
type StringContains struct {
	Root  Expression
	Other Expression
}

// StartsWith is a literal prefix test.
type StartsWith struct {
	Base   Expression
	Prefix Expression
}

// SequencePredicate evaluates Test once per element of Sequence with Variable
// bound to the element and folds the results with Operation.
type SequencePredicate struct {
	Sequence  Expression
	Test      Expression
	Variable  *Variable
	Operation CollectionOperation
}

// ForcedUnwrap dereferences an optional value. Unwrapping an absent value is an
// evaluation error, so compiled graphs only reach it behind an OptionalFlatMap.
type ForcedUnwrap struct {
	Wrapped Expression
}

// OptionalFlatMap evaluates Transform with Variable bound to the unwrapped value
// of Wrapped, or yields nil when Wrapped is absent.
type OptionalFlatMap struct {
	Wrapped   Expression
	Variable  *Variable
	Transform Expression
}

// NilCoalesce yields LHS unless it is absent, in which case it yields RHS.
type NilCoalesce struct {
	LHS Expression
	RHS Expression
}

// Predicate is a boolean graph over a single input variable.
type Predicate struct {
	Input      *Variable
	Expression Expression
}

// New builds a predicate by handing a fresh input variable to build.
func New(build func(input *Variable) Expression) Predicate {
	input := NewVariable()
	return Predicate{Input: input, Expression: build(input)}
}

// True returns the predicate that accepts every record.
func True() Predicate {
	return New(func(*Variable) Expression { return &Value{Value: true} })
}

// IsTrue reports whether the predicate is the literal true.
func (p Predicate) IsTrue() bool {
	v, ok := p.Expression.(*Value)
	if !ok {
		return false
	}
	b, ok := v.Value.(bool)
	return ok && b
}

// Evaluate runs the predicate against one record.
func (p Predicate) Evaluate(record any) (bool, error) {
	if p.Input == nil || p.Expression == nil {
		return false, ErrIncompletePredicate
	}
	out, err := p.Expression.Evaluate(Bindings{p.Input.Key: record})
	if err != nil {
		return false, err
	}
	return asBool(out)
}

// String renders the predicate for logs.
func (p Predicate) String() string {
	if p.Expression == nil {
		return "<nil>"
	}
	return Format(p.Expression)
}

// Filter returns the records the predicate accepts, preserving order.
func Filter[T any](records []T, p Predicate) ([]T, error) {
	out := make([]T, 0, len(records))
	for _, r := range records {
		ok, err := p.Evaluate(r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	return out, nil
}
