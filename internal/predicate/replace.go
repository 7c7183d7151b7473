package predicate

import "fmt"

// VariableReplacer is implemented by host expression types that support variable
// substitution.
type VariableReplacer interface {
	ReplacingVariable(from *Variable, to Expression) (Expression, error)
}

// Replace returns a copy of e in which every reference to from is replaced by to.
// Variables bound inside e (sequence elements, optional values) are left alone.
func Replace(e Expression, from *Variable, to Expression) (Expression, error) {
	if from == nil || to == nil {
		return nil, fmt.Errorf("%w: missing variable", ErrNotReplaceable)
	}
	return replace(e, from, to)
}

func replace(e Expression, from *Variable, to Expression) (Expression, error) {
	switch n := e.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil expression", ErrNotReplaceable)
	case *Variable:
		if n.Key == from.Key {
			return to, nil
		}
		return n, nil
	case *Value, *NilLiteral:
		return n, nil
	case *KeyPath:
		root, err := replace(n.Root, from, to)
		if err != nil {
			return nil, err
		}
		return &KeyPath{Root: root, Field: n.Field}, nil
	case *Equal:
		l, r, err := replacePair(n.LHS, n.RHS, from, to)
		if err != nil {
			return nil, err
		}
		return &Equal{LHS: l, RHS: r}, nil
	case *NotEqual:
		l, r, err := replacePair(n.LHS, n.RHS, from, to)
		if err != nil {
			return nil, err
		}
		return &NotEqual{LHS: l, RHS: r}, nil
	case *Comparison:
		l, r, err := replacePair(n.LHS, n.RHS, from, to)
		if err != nil {
			return nil, err
		}
		return &Comparison{LHS: l, RHS: r, Op: n.Op}, nil
	case *Conjunction:
		l, r, err := replacePair(n.LHS, n.RHS, from, to)
		if err != nil {
			return nil, err
		}
		return &Conjunction{LHS: l, RHS: r}, nil
	case *Disjunction:
		l, r, err := replacePair(n.LHS, n.RHS, from, to)
		if err != nil {
			return nil, err
		}
		return &Disjunction{LHS: l, RHS: r}, nil
	case *StringContains:
		l, r, err := replacePair(n.Root, n.Other, from, to)
		if err != nil {
			return nil, err
		}
		return &StringContains{Root: l, Other: r}, nil
	case *StartsWith:
		l, r, err := replacePair(n.Base, n.Prefix, from, to)
		if err != nil {
			return nil, err
		}
		return &StartsWith{Base: l, Prefix: r}, nil
	case *SequencePredicate:
		seq, test, err := replacePair(n.Sequence, n.Test, from, to)
		if err != nil {
			return nil, err
		}
		return &SequencePredicate{Sequence: seq, Test: test, Variable: n.Variable, Operation: n.Operation}, nil
	case *ForcedUnwrap:
		w, err := replace(n.Wrapped, from, to)
		if err != nil {
			return nil, err
		}
		return &ForcedUnwrap{Wrapped: w}, nil
	case *OptionalFlatMap:
		w, t, err := replacePair(n.Wrapped, n.Transform, from, to)
		if err != nil {
			return nil, err
		}
		return &OptionalFlatMap{Wrapped: w, Variable: n.Variable, Transform: t}, nil
	case *NilCoalesce:
		l, r, err := replacePair(n.LHS, n.RHS, from, to)
		if err != nil {
			return nil, err
		}
		return &NilCoalesce{LHS: l, RHS: r}, nil
	case VariableReplacer:
		return n.ReplacingVariable(from, to)
	default:
		return nil, fmt.Errorf("%w: %T", ErrNotReplaceable, e)
	}
}

func replacePair(lhs, rhs Expression, from *Variable, to Expression) (Expression, Expression, error) {
	l, err := replace(lhs, from, to)
	if err != nil {
		return nil, nil, err
	}
	r, err := replace(rhs, from, to)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}
