package decoder

import (
	"time"

	"github.com/nlstn/go-predicateview/internal/expression"
	"github.com/nlstn/go-predicateview/internal/predicate"
	"github.com/nlstn/go-predicateview/internal/tree"
)

// operand tells whether an expression is the field a leaf reads.
type operand func(e predicate.Expression) bool

func keyPath(input *predicate.Variable, field string) operand {
	return func(e predicate.Expression) bool { return predicate.IsKeyPath(e, input, field) }
}

func unwrapped(input *predicate.Variable, field string) operand {
	return func(e predicate.Expression) bool { return predicate.IsUnwrappedKeyPath(e, input, field) }
}

var relational = map[predicate.ComparisonOperator]expression.Operator{
	predicate.LessThan:           expression.OpLessThan,
	predicate.LessThanOrEqual:    expression.OpLessThanOrEqual,
	predicate.GreaterThan:        expression.OpGreaterThan,
	predicate.GreaterThanOrEqual: expression.OpGreaterThanOrEqual,
}

// Start-of-day comparisons come from before/on-or-after, end-of-day ones from
// on-or-before/after. The literal is kept as is; recompiling normalises it to
// the same instant.
var dateRelational = map[predicate.ComparisonOperator]expression.Operator{
	predicate.LessThan:           expression.OpBefore,
	predicate.GreaterThanOrEqual: expression.OpOnOrAfter,
	predicate.LessThanOrEqual:    expression.OpOnOrBefore,
	predicate.GreaterThan:        expression.OpAfter,
}

// leaf runs the decoder of tmpl against e.
func (s *session) leaf(tmpl *expression.Template, e predicate.Expression, input *predicate.Variable) (*tree.Draft, bool) {
	switch tmpl.Kind {
	case expression.KindOptional:
		return s.optional(tmpl, e, input)
	case expression.KindCollection:
		return s.collection(tmpl, e, input)
	case expression.KindCustom:
		return s.custom(tmpl, e, input)
	}
	a, ok := attribute(tmpl.Kind, tmpl.Cases, e, keyPath(input, tmpl.Field))
	if !ok {
		return nil, false
	}
	n, ok := s.node(tmpl, a)
	if !ok {
		return nil, false
	}
	return tree.Leaf(n), true
}

// attribute recognises the comparison shapes of a leaf kind with lhs as field.
func attribute(kind expression.Kind, cases []any, e predicate.Expression, lhs operand) (expression.Attribute, bool) {
	switch kind {
	case expression.KindString:
		return stringAttribute(e, lhs)
	case expression.KindNumber:
		return numberAttribute(e, lhs)
	case expression.KindBool:
		return equality(e, lhs, func(v any) bool {
			_, ok := v.(bool)
			return ok
		})
	case expression.KindEnum:
		return equality(e, lhs, func(v any) bool {
			for _, c := range cases {
				if predicate.SameValue(c, v) {
					return true
				}
			}
			return false
		})
	case expression.KindDate:
		return dateAttribute(e, lhs)
	}
	return expression.Attribute{}, false
}

func stringAttribute(e predicate.Expression, lhs operand) (expression.Attribute, bool) {
	var op expression.Operator
	var field, other predicate.Expression
	switch n := e.(type) {
	case *predicate.Equal:
		op, field, other = expression.OpEquals, n.LHS, n.RHS
	case *predicate.StringContains:
		op, field, other = expression.OpContains, n.Root, n.Other
	case *predicate.StartsWith:
		op, field, other = expression.OpBeginsWith, n.Base, n.Prefix
	default:
		return expression.Attribute{}, false
	}
	if !lhs(field) {
		return expression.Attribute{}, false
	}
	v, ok := predicate.Literal(other)
	if _, isString := v.(string); !ok || !isString {
		return expression.Attribute{}, false
	}
	return expression.Attribute{Operator: op, Value: v}, true
}

func numberAttribute(e predicate.Expression, lhs operand) (expression.Attribute, bool) {
	var op expression.Operator
	var field, other predicate.Expression
	switch n := e.(type) {
	case *predicate.Equal:
		op, field, other = expression.OpEquals, n.LHS, n.RHS
	case *predicate.NotEqual:
		op, field, other = expression.OpNotEquals, n.LHS, n.RHS
	case *predicate.Comparison:
		op, field, other = relational[n.Op], n.LHS, n.RHS
	default:
		return expression.Attribute{}, false
	}
	if op == "" || !lhs(field) {
		return expression.Attribute{}, false
	}
	v, ok := predicate.Literal(other)
	if !ok {
		return expression.Attribute{}, false
	}
	if _, ok := predicate.ToDecimal(v); !ok {
		return expression.Attribute{}, false
	}
	return expression.Attribute{Operator: op, Value: v}, true
}

// equality recognises is / is not against a literal accepted by valid.
func equality(e predicate.Expression, lhs operand, valid func(any) bool) (expression.Attribute, bool) {
	var op expression.Operator
	var field, other predicate.Expression
	switch n := e.(type) {
	case *predicate.Equal:
		op, field, other = expression.OpIs, n.LHS, n.RHS
	case *predicate.NotEqual:
		op, field, other = expression.OpIsNot, n.LHS, n.RHS
	default:
		return expression.Attribute{}, false
	}
	if !lhs(field) {
		return expression.Attribute{}, false
	}
	v, ok := predicate.Literal(other)
	if !ok || !valid(v) {
		return expression.Attribute{}, false
	}
	return expression.Attribute{Operator: op, Value: v}, true
}

// dateAttribute recognises single relational date comparisons. The two-sided
// same-day/week/month shape is left to the logical decoder.
func dateAttribute(e predicate.Expression, lhs operand) (expression.Attribute, bool) {
	c, ok := e.(*predicate.Comparison)
	if !ok || !lhs(c.LHS) {
		return expression.Attribute{}, false
	}
	v, ok := predicate.Literal(c.RHS)
	if !ok {
		return expression.Attribute{}, false
	}
	at, ok := v.(time.Time)
	if !ok {
		return expression.Attribute{}, false
	}
	return expression.Attribute{Operator: dateRelational[c.Op], Value: at}, dateRelational[c.Op] != ""
}

func (s *session) optional(tmpl *expression.Template, e predicate.Expression, input *predicate.Variable) (*tree.Draft, bool) {
	field := keyPath(input, tmpl.Field)
	var op expression.Operator
	var wrapped *expression.Attribute

	switch n := e.(type) {
	case *predicate.Equal:
		if !field(n.LHS) || !predicate.IsNilLiteral(n.RHS) {
			return nil, false
		}
		op = expression.OpDoesNotExist
	case *predicate.NotEqual:
		if !field(n.LHS) || !predicate.IsNilLiteral(n.RHS) {
			return nil, false
		}
		op, wrapped = expression.OpExists, tmpl.DefaultWrapped()
	case *predicate.NilCoalesce:
		fm, ok := n.LHS.(*predicate.OptionalFlatMap)
		if !ok || !field(fm.Wrapped) {
			return nil, false
		}
		if v, ok := predicate.Literal(n.RHS); !ok || v != false {
			return nil, false
		}
		a, ok := attribute(tmpl.Inner, tmpl.Cases, fm.Transform, unwrapped(input, tmpl.Field))
		if !ok {
			return nil, false
		}
		a, err := tmpl.Unwrapped().NormalizeAttribute(a)
		if err != nil {
			return nil, false
		}
		op, wrapped = expression.OpExists, &a
	default:
		return nil, false
	}

	n, ok := s.node(tmpl, expression.Attribute{Operator: op})
	if !ok {
		return nil, false
	}
	n.Wrapped = wrapped
	return tree.Leaf(n), true
}

func (s *session) collection(tmpl *expression.Template, e predicate.Expression, input *predicate.Variable) (*tree.Draft, bool) {
	op := expression.OpContains
	if inner, ok := predicate.Negated(e); ok {
		e, op = inner, expression.OpDoesNotContain
	}
	seq, ok := e.(*predicate.SequencePredicate)
	if !ok || !predicate.IsKeyPath(seq.Sequence, input, tmpl.Field) || seq.Variable == nil {
		return nil, false
	}
	switch {
	case seq.Operation == predicate.OperationAllSatisfy && op == expression.OpContains:
		op = expression.OpAllSatisfy
	case seq.Operation != predicate.OperationContains:
		// a negated all-satisfy has no operator of its own
		return nil, false
	}

	n, ok := s.node(tmpl, expression.Attribute{Operator: op})
	if !ok {
		return nil, false
	}
	d := tree.Leaf(n)
	d.Group = s.elementGroup(seq.Test, seq.Variable, tmpl.Elements)
	return d, true
}

func (s *session) custom(tmpl *expression.Template, e predicate.Expression, input *predicate.Variable) (*tree.Draft, bool) {
	dec, ok := tmpl.Custom.(expression.CustomDecoder)
	if !ok {
		return nil, false
	}
	op, value, ok := dec.Decode(e, input)
	if !ok {
		return nil, false
	}
	n, ok := s.node(tmpl, expression.Attribute{Operator: op, Value: value})
	if !ok {
		return nil, false
	}
	return tree.Leaf(n), true
}
