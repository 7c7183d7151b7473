package compiler

import (
	"time"

	"github.com/nlstn/go-predicateview/internal/expression"
	"github.com/nlstn/go-predicateview/internal/predicate"
)

var relational = map[expression.Operator]predicate.ComparisonOperator{
	expression.OpLessThan:           predicate.LessThan,
	expression.OpLessThanOrEqual:    predicate.LessThanOrEqual,
	expression.OpGreaterThan:        predicate.GreaterThan,
	expression.OpGreaterThanOrEqual: predicate.GreaterThanOrEqual,
}

// Leaf compiles a single comparison of kind against lhs. It is shared by plain
// leaf nodes and by the wrapped attribute of optional nodes.
func (c *Compiler) Leaf(kind expression.Kind, a expression.Attribute, lhs predicate.Expression) (predicate.Expression, bool) {
	if a.Value == nil {
		return nil, false
	}
	value := &predicate.Value{Value: a.Value}
	switch kind {
	case expression.KindString:
		if s, ok := a.Value.(string); ok && s == "" {
			return nil, false
		}
		switch a.Operator {
		case expression.OpEquals:
			return &predicate.Equal{LHS: lhs, RHS: value}, true
		case expression.OpContains:
			return &predicate.StringContains{Root: lhs, Other: value}, true
		case expression.OpBeginsWith:
			return &predicate.StartsWith{Base: lhs, Prefix: value}, true
		}
	case expression.KindNumber:
		switch a.Operator {
		case expression.OpEquals:
			return &predicate.Equal{LHS: lhs, RHS: value}, true
		case expression.OpNotEquals:
			return &predicate.NotEqual{LHS: lhs, RHS: value}, true
		}
		if op, ok := relational[a.Operator]; ok {
			return &predicate.Comparison{LHS: lhs, RHS: value, Op: op}, true
		}
	case expression.KindBool, expression.KindEnum:
		switch a.Operator {
		case expression.OpIs:
			return &predicate.Equal{LHS: lhs, RHS: value}, true
		case expression.OpIsNot:
			return &predicate.NotEqual{LHS: lhs, RHS: value}, true
		}
	case expression.KindDate:
		if at, ok := a.Value.(time.Time); ok {
			return c.date(a.Operator, at, lhs)
		}
	}
	return nil, false
}

func (c *Compiler) date(op expression.Operator, at time.Time, lhs predicate.Expression) (predicate.Expression, bool) {
	compare := func(op predicate.ComparisonOperator, t time.Time) predicate.Expression {
		return &predicate.Comparison{LHS: lhs, RHS: &predicate.Value{Value: t}, Op: op}
	}
	switch op {
	case expression.OpBefore:
		return compare(predicate.LessThan, c.Calendar.StartOfDay(at)), true
	case expression.OpOnOrAfter:
		return compare(predicate.GreaterThanOrEqual, c.Calendar.StartOfDay(at)), true
	case expression.OpOnOrBefore:
		return compare(predicate.LessThanOrEqual, c.Calendar.EndOfDay(at)), true
	case expression.OpAfter:
		return compare(predicate.GreaterThan, c.Calendar.EndOfDay(at)), true
	}
	if iv, ok := c.Calendar.IntervalFor(op, at); ok {
		return &predicate.Conjunction{
			LHS: compare(predicate.GreaterThanOrEqual, iv.Start),
			RHS: compare(predicate.LessThan, iv.End),
		}, true
	}
	return nil, false
}
