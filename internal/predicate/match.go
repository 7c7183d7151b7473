package predicate

import "reflect"

// Helpers used by decoders to pattern-match graph shapes.

// IsKeyPath reports whether e reads field directly from input.
func IsKeyPath(e Expression, input *Variable, field string) bool {
	kp, ok := e.(*KeyPath)
	if !ok || kp.Field != field {
		return false
	}
	v, ok := kp.Root.(*Variable)
	return ok && input != nil && v.Key == input.Key
}

// IsUnwrappedKeyPath reports whether e is a forced unwrap of field on input.
func IsUnwrappedKeyPath(e Expression, input *Variable, field string) bool {
	fu, ok := e.(*ForcedUnwrap)
	return ok && IsKeyPath(fu.Wrapped, input, field)
}

// Literal returns the value of a Value node.
func Literal(e Expression) (any, bool) {
	v, ok := e.(*Value)
	if !ok {
		return nil, false
	}
	return v.Value, true
}

// IsNilLiteral reports whether e is the nil literal.
func IsNilLiteral(e Expression) bool {
	_, ok := e.(*NilLiteral)
	return ok
}

// Negated unwraps the `x == false` negation shape and returns x.
func Negated(e Expression) (Expression, bool) {
	eq, ok := e.(*Equal)
	if !ok {
		return nil, false
	}
	v, ok := Literal(eq.RHS)
	if !ok {
		return nil, false
	}
	b, ok := v.(bool)
	if !ok || b {
		return nil, false
	}
	return eq.LHS, true
}

// Equivalent reports whether two predicates have the same shape and literals,
// treating bound variables as equal when they appear in the same positions.
func Equivalent(a, b Predicate) bool {
	if a.Input == nil || b.Input == nil {
		return a.Input == nil && b.Input == nil
	}
	vars := map[uint64]uint64{a.Input.Key: b.Input.Key}
	return equivalent(a.Expression, b.Expression, vars)
}

func equivalent(a, b Expression, vars map[uint64]uint64) bool {
	switch x := a.(type) {
	case nil:
		return b == nil
	case *Variable:
		y, ok := b.(*Variable)
		return ok && vars[x.Key] == y.Key
	case *KeyPath:
		y, ok := b.(*KeyPath)
		return ok && x.Field == y.Field && equivalent(x.Root, y.Root, vars)
	case *Value:
		y, ok := b.(*Value)
		return ok && valuesEqual(x.Value, y.Value)
	case *NilLiteral:
		_, ok := b.(*NilLiteral)
		return ok
	case *Equal:
		y, ok := b.(*Equal)
		return ok && equivalent(x.LHS, y.LHS, vars) && equivalent(x.RHS, y.RHS, vars)
	case *NotEqual:
		y, ok := b.(*NotEqual)
		return ok && equivalent(x.LHS, y.LHS, vars) && equivalent(x.RHS, y.RHS, vars)
	case *Comparison:
		y, ok := b.(*Comparison)
		return ok && x.Op == y.Op && equivalent(x.LHS, y.LHS, vars) && equivalent(x.RHS, y.RHS, vars)
	case *Conjunction:
		y, ok := b.(*Conjunction)
		return ok && equivalent(x.LHS, y.LHS, vars) && equivalent(x.RHS, y.RHS, vars)
	case *Disjunction:
		y, ok := b.(*Disjunction)
		return ok && equivalent(x.LHS, y.LHS, vars) && equivalent(x.RHS, y.RHS, vars)
	case *StringContains:
		y, ok := b.(*StringContains)
		return ok && equivalent(x.Root, y.Root, vars) && equivalent(x.Other, y.Other, vars)
	case *StartsWith:
		y, ok := b.(*StartsWith)
		return ok && equivalent(x.Base, y.Base, vars) && equivalent(x.Prefix, y.Prefix, vars)
	case *SequencePredicate:
		y, ok := b.(*SequencePredicate)
		if !ok || x.Operation != y.Operation || !equivalent(x.Sequence, y.Sequence, vars) {
			return false
		}
		vars[x.Variable.Key] = y.Variable.Key
		return equivalent(x.Test, y.Test, vars)
	case *ForcedUnwrap:
		y, ok := b.(*ForcedUnwrap)
		return ok && equivalent(x.Wrapped, y.Wrapped, vars)
	case *OptionalFlatMap:
		y, ok := b.(*OptionalFlatMap)
		if !ok || !equivalent(x.Wrapped, y.Wrapped, vars) {
			return false
		}
		vars[x.Variable.Key] = y.Variable.Key
		return equivalent(x.Transform, y.Transform, vars)
	case *NilCoalesce:
		y, ok := b.(*NilCoalesce)
		return ok && equivalent(x.LHS, y.LHS, vars) && equivalent(x.RHS, y.RHS, vars)
	default:
		return reflect.DeepEqual(a, b)
	}
}
