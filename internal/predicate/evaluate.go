package predicate

import (
	"fmt"
	"reflect"
	"strings"
)

// Bindings maps variable keys to their current values.
type Bindings map[uint64]any

// with returns a copy of b that also binds v to value.
func (b Bindings) with(v *Variable, value any) Bindings {
	out := make(Bindings, len(b)+1)
	for k, x := range b {
		out[k] = x
	}
	out[v.Key] = value
	return out
}

// Evaluate returns the bound value.
func (v *Variable) Evaluate(b Bindings) (any, error) {
	value, ok := b[v.Key]
	if !ok {
		return nil, fmt.Errorf("%w: $%d", ErrUnboundVariable, v.Key)
	}
	return value, nil
}

// Evaluate reads the field from the root value. An absent intermediate value
// yields nil rather than an error.
func (k *KeyPath) Evaluate(b Bindings) (any, error) {
	root, err := k.Root.Evaluate(b)
	if err != nil {
		return nil, err
	}
	return lookupField(root, k.Field)
}

// Evaluate returns the literal.
func (v *Value) Evaluate(Bindings) (any, error) {
	return v.Value, nil
}

// Evaluate returns nil.
func (*NilLiteral) Evaluate(Bindings) (any, error) {
	return nil, nil
}

func (e *Equal) Evaluate(b Bindings) (any, error) {
	l, r, err := evaluatePair(b, e.LHS, e.RHS)
	if err != nil {
		return nil, err
	}
	return valuesEqual(l, r), nil
}

func (e *NotEqual) Evaluate(b Bindings) (any, error) {
	l, r, err := evaluatePair(b, e.LHS, e.RHS)
	if err != nil {
		return nil, err
	}
	return !valuesEqual(l, r), nil
}

func (c *Comparison) Evaluate(b Bindings) (any, error) {
	l, r, err := evaluatePair(b, c.LHS, c.RHS)
	if err != nil {
		return nil, err
	}
	cmp, err := compareValues(l, r)
	if err != nil {
		return nil, err
	}
	switch c.Op {
	case LessThan:
		return cmp < 0, nil
	case LessThanOrEqual:
		return cmp <= 0, nil
	case GreaterThan:
		return cmp > 0, nil
	case GreaterThanOrEqual:
		return cmp >= 0, nil
	default:
		return nil, fmt.Errorf("predicate: unknown comparison operator %q", c.Op)
	}
}

func (c *Conjunction) Evaluate(b Bindings) (any, error) {
	l, err := evaluateBool(b, c.LHS)
	if err != nil || !l {
		return false, err
	}
	return evaluateBool(b, c.RHS)
}

func (d *Disjunction) Evaluate(b Bindings) (any, error) {
	l, err := evaluateBool(b, d.LHS)
	if err != nil || l {
		return l, err
	}
	return evaluateBool(b, d.RHS)
}

func (s *StringContains) Evaluate(b Bindings) (any, error) {
	l, r, err := evaluatePair(b, s.Root, s.Other)
	if err != nil {
		return nil, err
	}
	root, ok := asString(l)
	if !ok {
		return nil, &TypeError{Op: "contains", Expected: "string", Got: l}
	}
	other, ok := asString(r)
	if !ok {
		return nil, &TypeError{Op: "contains", Expected: "string", Got: r}
	}
	return LocalizedContains(root, other), nil
}

func (s *StartsWith) Evaluate(b Bindings) (any, error) {
	l, r, err := evaluatePair(b, s.Base, s.Prefix)
	if err != nil {
		return nil, err
	}
	base, ok := asString(l)
	if !ok {
		return nil, &TypeError{Op: "begins with", Expected: "string", Got: l}
	}
	prefix, ok := asString(r)
	if !ok {
		return nil, &TypeError{Op: "begins with", Expected: "string", Got: r}
	}
	return strings.HasPrefix(base, prefix), nil
}

func (s *SequencePredicate) Evaluate(b Bindings) (any, error) {
	seq, err := s.Sequence.Evaluate(b)
	if err != nil {
		return nil, err
	}
	rv := reflect.ValueOf(deref(seq))
	if !rv.IsValid() {
		// An absent sequence behaves like an empty one.
		return s.Operation == OperationAllSatisfy, nil
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, &TypeError{Op: string(s.Operation), Expected: "sequence", Got: seq}
	}

	scope := b.with(s.Variable, nil)
	for i := 0; i < rv.Len(); i++ {
		scope[s.Variable.Key] = rv.Index(i).Interface()
		ok, err := evaluateBool(scope, s.Test)
		if err != nil {
			return nil, err
		}
		switch s.Operation {
		case OperationContains:
			if ok {
				return true, nil
			}
		case OperationAllSatisfy:
			if !ok {
				return false, nil
			}
		default:
			return nil, fmt.Errorf("predicate: unknown collection operation %q", s.Operation)
		}
	}
	return s.Operation == OperationAllSatisfy, nil
}

func (f *ForcedUnwrap) Evaluate(b Bindings) (any, error) {
	v, err := f.Wrapped.Evaluate(b)
	if err != nil {
		return nil, err
	}
	if isNil(v) {
		return nil, ErrNilUnwrap
	}
	return deref(v), nil
}

func (o *OptionalFlatMap) Evaluate(b Bindings) (any, error) {
	v, err := o.Wrapped.Evaluate(b)
	if err != nil {
		return nil, err
	}
	if isNil(v) {
		return nil, nil
	}
	return o.Transform.Evaluate(b.with(o.Variable, deref(v)))
}

func (n *NilCoalesce) Evaluate(b Bindings) (any, error) {
	v, err := n.LHS.Evaluate(b)
	if err != nil {
		return nil, err
	}
	if isNil(v) {
		return n.RHS.Evaluate(b)
	}
	return v, nil
}

func evaluatePair(b Bindings, lhs, rhs Expression) (any, any, error) {
	l, err := lhs.Evaluate(b)
	if err != nil {
		return nil, nil, err
	}
	r, err := rhs.Evaluate(b)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

func evaluateBool(b Bindings, e Expression) (bool, error) {
	v, err := e.Evaluate(b)
	if err != nil {
		return false, err
	}
	return asBool(v)
}

func asBool(v any) (bool, error) {
	rv := reflect.ValueOf(deref(v))
	if rv.Kind() != reflect.Bool {
		return false, &TypeError{Op: "condition", Expected: "bool", Got: v}
	}
	return rv.Bool(), nil
}

// lookupField resolves a dotted field path on a struct or string-keyed map.
func lookupField(root any, path string) (any, error) {
	current := root
	for _, segment := range strings.Split(path, ".") {
		if isNil(current) {
			return nil, nil
		}
		rv := reflect.ValueOf(current)
		for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
			if rv.IsNil() {
				return nil, nil
			}
			rv = rv.Elem()
		}
		switch rv.Kind() {
		case reflect.Struct:
			sf, ok := rv.Type().FieldByName(segment)
			if !ok || !sf.IsExported() {
				return nil, &FieldError{Field: segment, Type: rv.Type().String()}
			}
			fv, err := rv.FieldByIndexErr(sf.Index)
			if err != nil {
				// nil embedded pointer
				return nil, nil
			}
			current = fv.Interface()
		case reflect.Map:
			if rv.Type().Key().Kind() != reflect.String {
				return nil, &FieldError{Field: segment, Type: rv.Type().String()}
			}
			value := rv.MapIndex(reflect.ValueOf(segment).Convert(rv.Type().Key()))
			if !value.IsValid() {
				return nil, nil
			}
			current = value.Interface()
		default:
			return nil, &FieldError{Field: segment, Type: rv.Type().String()}
		}
	}
	return current, nil
}
