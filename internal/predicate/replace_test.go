package predicate

import (
	"errors"
	"strings"
	"testing"
)

type opaque struct{}

func (opaque) Evaluate(Bindings) (any, error) { return true, nil }

type lengthAtLeast struct {
	Of  Expression
	Min int
}

func (l *lengthAtLeast) Evaluate(b Bindings) (any, error) {
	v, err := l.Of.Evaluate(b)
	if err != nil {
		return nil, err
	}
	s, _ := asString(v)
	return len(s) >= l.Min, nil
}

func (l *lengthAtLeast) ReplacingVariable(from *Variable, to Expression) (Expression, error) {
	of, err := Replace(l.Of, from, to)
	if err != nil {
		return nil, err
	}
	return &lengthAtLeast{Of: of, Min: l.Min}, nil
}

func TestReplace(t *testing.T) {
	custom := New(func(in *Variable) Expression {
		return &Equal{LHS: field(in, "Title"), RHS: &Value{Value: "x"}}
	})
	outer := NewVariable()

	got, err := Replace(custom.Expression, custom.Input, outer)
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	if !IsKeyPath(got.(*Equal).LHS, outer, "Title") {
		t.Errorf("Replace() did not rebind key path: %s", Format(got))
	}
	if !IsKeyPath(custom.Expression.(*Equal).LHS, custom.Input, "Title") {
		t.Error("Replace() mutated its input")
	}
}

func TestReplaceKeepsBoundVariables(t *testing.T) {
	elem := NewVariable()
	p := New(func(in *Variable) Expression {
		return &SequencePredicate{
			Sequence:  field(in, "Tags"),
			Variable:  elem,
			Operation: OperationContains,
			Test:      &Equal{LHS: field(elem, "Name"), RHS: &Value{Value: "a"}},
		}
	})
	outer := NewVariable()
	got, err := Replace(p.Expression, p.Input, outer)
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	seq := got.(*SequencePredicate)
	if !IsKeyPath(seq.Sequence, outer, "Tags") {
		t.Errorf("sequence not rebound: %s", Format(got))
	}
	if !IsKeyPath(seq.Test.(*Equal).LHS, elem, "Name") {
		t.Errorf("element variable changed: %s", Format(got))
	}
}

func TestReplaceHostExpressions(t *testing.T) {
	in := NewVariable()
	outer := NewVariable()

	got, err := Replace(&lengthAtLeast{Of: field(in, "Title"), Min: 3}, in, outer)
	if err != nil {
		t.Fatalf("Replace() error = %v", err)
	}
	ok, err := (Predicate{Input: outer, Expression: got}).Evaluate(record{Title: "abcd"})
	if err != nil || !ok {
		t.Errorf("Evaluate() = %v, %v", ok, err)
	}

	if _, err := Replace(opaque{}, in, outer); !errors.Is(err, ErrNotReplaceable) {
		t.Errorf("expected ErrNotReplaceable, got %v", err)
	}
	if _, err := Replace(field(in, "Title"), nil, outer); !errors.Is(err, ErrNotReplaceable) {
		t.Errorf("expected ErrNotReplaceable for nil variable, got %v", err)
	}
}

func TestEquivalent(t *testing.T) {
	build := func(title string) Predicate {
		return New(func(in *Variable) Expression {
			elem := NewVariable()
			return &Conjunction{
				LHS: &StringContains{Root: field(in, "Title"), Other: &Value{Value: title}},
				RHS: &SequencePredicate{
					Sequence:  field(in, "Tags"),
					Variable:  elem,
					Operation: OperationAllSatisfy,
					Test:      &Equal{LHS: field(elem, "Name"), RHS: &Value{Value: "a"}},
				},
			}
		})
	}

	if !Equivalent(build("x"), build("x")) {
		t.Error("identical shapes over different variables should be equivalent")
	}
	if Equivalent(build("x"), build("y")) {
		t.Error("different literals should not be equivalent")
	}
	if Equivalent(build("x"), True()) {
		t.Error("different shapes should not be equivalent")
	}
}

func TestNegated(t *testing.T) {
	inner := &Value{Value: true}
	got, ok := Negated(&Equal{LHS: inner, RHS: &Value{Value: false}})
	if !ok || got != inner {
		t.Errorf("Negated() = %v, %v", got, ok)
	}
	if _, ok := Negated(&Equal{LHS: inner, RHS: &Value{Value: true}}); ok {
		t.Error("== true is not a negation")
	}
}

func TestFormat(t *testing.T) {
	p := New(func(in *Variable) Expression {
		return &Disjunction{
			LHS: &Equal{LHS: field(in, "Title"), RHS: &Value{Value: "x"}},
			RHS: &Comparison{LHS: field(in, "Count"), RHS: &Value{Value: 2}, Op: LessThan},
		}
	})
	got := p.String()
	for _, want := range []string{".Title == \"x\"", ".Count < 2", "||"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, missing %q", got, want)
		}
	}
}
