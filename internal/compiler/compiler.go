// Package compiler reduces a filter tree to a single predicate graph.
//
// Compilation never fails. Nodes whose constraint cannot be expressed (an empty
// string, a custom kind that rejects its value, an empty group) contribute
// nothing, and a tree that contributes nothing compiles to the literal true.
package compiler

import (
	"log/slog"

	"github.com/nlstn/go-predicateview/internal/expression"
	"github.com/nlstn/go-predicateview/internal/predicate"
	"github.com/nlstn/go-predicateview/internal/tree"
)

// Compiler turns trees into predicates.
type Compiler struct {
	Calendar expression.Calendar
	Logger   *slog.Logger
}

// New returns a compiler using cal for date arithmetic.
func New(cal expression.Calendar, logger *slog.Logger) *Compiler {
	return &Compiler{Calendar: cal, Logger: logger}
}

func (c *Compiler) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// Compile returns the predicate of the whole tree.
func (c *Compiler) Compile(t *tree.Tree) predicate.Predicate {
	input := predicate.NewVariable()
	e, ok := c.CompileNode(t, t.Root(), input)
	if !ok {
		return predicate.Predicate{Input: input, Expression: &predicate.Value{Value: true}}
	}
	return predicate.Predicate{Input: input, Expression: e}
}

// CompileNode compiles the subtree at id against input, the expression that
// yields the record being tested. It reports false when the subtree imposes no
// constraint.
func (c *Compiler) CompileNode(t *tree.Tree, id tree.ID, input predicate.Expression) (predicate.Expression, bool) {
	n, ok := t.Node(id)
	if !ok {
		return nil, false
	}
	switch n.Kind {
	case expression.KindLogical:
		return c.group(t, n, input)
	case expression.KindCollection:
		return c.collection(t, n, input)
	case expression.KindOptional:
		return c.optional(n, input)
	case expression.KindCustom:
		return c.custom(n, input)
	default:
		return c.Leaf(n.Kind, n.Attribute, &predicate.KeyPath{Root: input, Field: n.Field()})
	}
}

func (c *Compiler) group(t *tree.Tree, n *expression.Node, input predicate.Expression) (predicate.Expression, bool) {
	parts := make([]predicate.Expression, 0, len(n.Children))
	for _, child := range n.Children {
		if e, ok := c.CompileNode(t, child, input); ok {
			parts = append(parts, e)
		}
	}
	if len(parts) == 0 {
		return nil, false
	}
	return reduce(n.Attribute.Operator, parts), true
}

// reduce folds parts pairwise into a balanced binary tree of conjunctions or
// disjunctions, preserving order.
func reduce(op expression.Operator, parts []predicate.Expression) predicate.Expression {
	switch len(parts) {
	case 1:
		return parts[0]
	case 2:
		return combine(op, parts[0], parts[1])
	}
	next := make([]predicate.Expression, 0, (len(parts)+1)/2)
	for i := 0; i < len(parts); i += 2 {
		end := min(i+2, len(parts))
		next = append(next, reduce(op, parts[i:end]))
	}
	return reduce(op, next)
}

func combine(op expression.Operator, lhs, rhs predicate.Expression) predicate.Expression {
	if op == expression.OpAny {
		return &predicate.Disjunction{LHS: lhs, RHS: rhs}
	}
	return &predicate.Conjunction{LHS: lhs, RHS: rhs}
}

func (c *Compiler) collection(t *tree.Tree, n *expression.Node, input predicate.Expression) (predicate.Expression, bool) {
	elem := predicate.NewVariable()
	test, ok := c.CompileNode(t, n.Group, elem)
	if !ok {
		return nil, false
	}
	operation := predicate.OperationContains
	if n.Attribute.Operator == expression.OpAllSatisfy {
		operation = predicate.OperationAllSatisfy
	}
	var e predicate.Expression = &predicate.SequencePredicate{
		Sequence:  &predicate.KeyPath{Root: input, Field: n.Field()},
		Test:      test,
		Variable:  elem,
		Operation: operation,
	}
	if n.Attribute.Operator == expression.OpDoesNotContain {
		e = &predicate.Equal{LHS: e, RHS: &predicate.Value{Value: false}}
	}
	return e, true
}

func (c *Compiler) optional(n *expression.Node, input predicate.Expression) (predicate.Expression, bool) {
	field := &predicate.KeyPath{Root: input, Field: n.Field()}
	if n.Attribute.Operator == expression.OpDoesNotExist {
		return &predicate.Equal{LHS: field, RHS: &predicate.NilLiteral{}}, true
	}
	if n.Wrapped != nil {
		test, ok := c.Leaf(n.Template.Inner, *n.Wrapped, &predicate.ForcedUnwrap{Wrapped: field})
		if ok {
			return &predicate.NilCoalesce{
				LHS: &predicate.OptionalFlatMap{
					Wrapped:   field,
					Variable:  predicate.NewVariable(),
					Transform: test,
				},
				RHS: &predicate.Value{Value: false},
			}, true
		}
	}
	return &predicate.NotEqual{LHS: field, RHS: &predicate.NilLiteral{}}, true
}

func (c *Compiler) custom(n *expression.Node, input predicate.Expression) (predicate.Expression, bool) {
	kind := n.Template.Custom
	p, ok := kind.Predicate(n.Attribute.Value, n.Attribute.Operator)
	if !ok || p.Expression == nil {
		return nil, false
	}
	e, err := predicate.Replace(p.Expression, p.Input, input)
	if err != nil {
		c.logger().Warn("Custom predicate could not be rebound, dropping constraint",
			"title", kind.Title(), "operator", n.Attribute.Operator, "error", err)
		return nil, false
	}
	return e, true
}
