package predicate

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type address struct {
	City string
}

type tag struct {
	Name   string
	Weight int
}

type record struct {
	Title    string
	Count    int
	Price    decimal.Decimal
	Done     bool
	Due      time.Time
	Note     *string
	Tags     []tag
	Home     *address
	internal string
}

func field(input *Variable, name string) *KeyPath {
	return &KeyPath{Root: input, Field: name}
}

func strPtr(s string) *string { return &s }

func TestEvaluateComparisons(t *testing.T) {
	due := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	rec := record{
		Title: "Crème Brûlée",
		Count: 3,
		Price: decimal.RequireFromString("9.50"),
		Done:  true,
		Due:   due,
		Home:  &address{City: "Oslo"},
	}

	tests := []struct {
		name  string
		build func(in *Variable) Expression
		want  bool
	}{
		{
			name: "equal string",
			build: func(in *Variable) Expression {
				return &Equal{LHS: field(in, "Title"), RHS: &Value{Value: "Crème Brûlée"}}
			},
			want: true,
		},
		{
			name: "int equals decimal literal",
			build: func(in *Variable) Expression {
				return &Equal{LHS: field(in, "Count"), RHS: &Value{Value: decimal.NewFromInt(3)}}
			},
			want: true,
		},
		{
			name: "decimal scale ignored",
			build: func(in *Variable) Expression {
				return &Equal{LHS: field(in, "Price"), RHS: &Value{Value: decimal.RequireFromString("9.5")}}
			},
			want: true,
		},
		{
			name: "not equal bool",
			build: func(in *Variable) Expression {
				return &NotEqual{LHS: field(in, "Done"), RHS: &Value{Value: false}}
			},
			want: true,
		},
		{
			name: "less than",
			build: func(in *Variable) Expression {
				return &Comparison{LHS: field(in, "Count"), RHS: &Value{Value: 2}, Op: LessThan}
			},
			want: false,
		},
		{
			name: "greater or equal date",
			build: func(in *Variable) Expression {
				return &Comparison{LHS: field(in, "Due"), RHS: &Value{Value: due}, Op: GreaterThanOrEqual}
			},
			want: true,
		},
		{
			name: "contains ignores case and diacritics",
			build: func(in *Variable) Expression {
				return &StringContains{Root: field(in, "Title"), Other: &Value{Value: "creme BRU"}}
			},
			want: true,
		},
		{
			name: "starts with is exact",
			build: func(in *Variable) Expression {
				return &StartsWith{Base: field(in, "Title"), Prefix: &Value{Value: "crème"}}
			},
			want: false,
		},
		{
			name: "nested field",
			build: func(in *Variable) Expression {
				return &Equal{LHS: field(in, "Home.City"), RHS: &Value{Value: "Oslo"}}
			},
			want: true,
		},
		{
			name: "nil field equals nil",
			build: func(in *Variable) Expression {
				return &Equal{LHS: field(in, "Note"), RHS: &NilLiteral{}}
			},
			want: true,
		},
		{
			name: "disjunction short circuits",
			build: func(in *Variable) Expression {
				return &Disjunction{
					LHS: &Value{Value: true},
					RHS: &ForcedUnwrap{Wrapped: field(in, "Note")},
				}
			},
			want: true,
		},
		{
			name: "conjunction short circuits",
			build: func(in *Variable) Expression {
				return &Conjunction{
					LHS: &Value{Value: false},
					RHS: &ForcedUnwrap{Wrapped: field(in, "Note")},
				}
			},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := New(tt.build)
			got, err := p.Evaluate(rec)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate() = %v, want %v (%s)", got, tt.want, p)
			}
		})
	}
}

func TestEvaluateMapRecord(t *testing.T) {
	p := New(func(in *Variable) Expression {
		return &Conjunction{
			LHS: &Equal{LHS: field(in, "name"), RHS: &Value{Value: "ada"}},
			RHS: &Equal{LHS: field(in, "missing"), RHS: &NilLiteral{}},
		}
	})
	got, err := p.Evaluate(map[string]any{"name": "ada"})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !got {
		t.Error("expected map record to match")
	}
}

func TestSequencePredicate(t *testing.T) {
	heavy := func(op CollectionOperation) Predicate {
		return New(func(in *Variable) Expression {
			elem := NewVariable()
			return &SequencePredicate{
				Sequence:  field(in, "Tags"),
				Variable:  elem,
				Operation: op,
				Test:      &Comparison{LHS: field(elem, "Weight"), RHS: &Value{Value: 5}, Op: GreaterThan},
			}
		})
	}

	tests := []struct {
		name string
		op   CollectionOperation
		tags []tag
		want bool
	}{
		{"contains over empty", OperationContains, nil, false},
		{"all satisfy over empty", OperationAllSatisfy, nil, true},
		{"contains one match", OperationContains, []tag{{"a", 1}, {"b", 9}}, true},
		{"all satisfy one miss", OperationAllSatisfy, []tag{{"a", 1}, {"b", 9}}, false},
		{"all satisfy all match", OperationAllSatisfy, []tag{{"a", 6}, {"b", 9}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := heavy(tt.op).Evaluate(record{Tags: tt.tags})
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOptionalUnwrap(t *testing.T) {
	p := New(func(in *Variable) Expression {
		v := NewVariable()
		return &NilCoalesce{
			LHS: &OptionalFlatMap{
				Wrapped:  field(in, "Note"),
				Variable: v,
				Transform: &StringContains{
					Root:  &ForcedUnwrap{Wrapped: field(in, "Note")},
					Other: &Value{Value: "abc"},
				},
			},
			RHS: &Value{Value: false},
		}
	})

	got, err := p.Evaluate(record{})
	if err != nil {
		t.Fatalf("nil field: unexpected error %v", err)
	}
	if got {
		t.Error("nil field: expected false")
	}

	got, err = p.Evaluate(record{Note: strPtr("xxABCxx")})
	if err != nil {
		t.Fatalf("set field: unexpected error %v", err)
	}
	if !got {
		t.Error("set field: expected true")
	}
}

func TestEvaluateErrors(t *testing.T) {
	t.Run("forced unwrap of nil", func(t *testing.T) {
		p := New(func(in *Variable) Expression {
			return &Equal{LHS: &ForcedUnwrap{Wrapped: field(in, "Note")}, RHS: &Value{Value: "x"}}
		})
		if _, err := p.Evaluate(record{}); !errors.Is(err, ErrNilUnwrap) {
			t.Errorf("expected ErrNilUnwrap, got %v", err)
		}
	})

	t.Run("unknown field", func(t *testing.T) {
		p := New(func(in *Variable) Expression {
			return &Equal{LHS: field(in, "Nope"), RHS: &Value{Value: 1}}
		})
		_, err := p.Evaluate(record{})
		var fe *FieldError
		if !errors.As(err, &fe) || fe.Field != "Nope" {
			t.Errorf("expected FieldError for Nope, got %v", err)
		}
	})

	t.Run("unexported field", func(t *testing.T) {
		p := New(func(in *Variable) Expression {
			return &Equal{LHS: field(in, "internal"), RHS: &Value{Value: ""}}
		})
		var fe *FieldError
		if _, err := p.Evaluate(record{}); !errors.As(err, &fe) {
			t.Errorf("expected FieldError, got %v", err)
		}
	})

	t.Run("compare mismatched types", func(t *testing.T) {
		p := New(func(in *Variable) Expression {
			return &Comparison{LHS: field(in, "Title"), RHS: &Value{Value: 3}, Op: LessThan}
		})
		var te *TypeError
		if _, err := p.Evaluate(record{}); !errors.As(err, &te) {
			t.Errorf("expected TypeError, got %v", err)
		}
	})

	t.Run("non bool result", func(t *testing.T) {
		p := New(func(in *Variable) Expression { return field(in, "Title") })
		if _, err := p.Evaluate(record{}); err == nil {
			t.Error("expected error for non-boolean predicate")
		}
	})

	t.Run("incomplete predicate", func(t *testing.T) {
		if _, err := (Predicate{}).Evaluate(record{}); !errors.Is(err, ErrIncompletePredicate) {
			t.Errorf("expected ErrIncompletePredicate, got %v", err)
		}
	})
}

func TestFilter(t *testing.T) {
	records := []record{{Count: 1}, {Count: 5}, {Count: 7}}
	p := New(func(in *Variable) Expression {
		return &Comparison{LHS: field(in, "Count"), RHS: &Value{Value: 4}, Op: GreaterThan}
	})
	got, err := Filter(records, p)
	if err != nil {
		t.Fatalf("Filter() error = %v", err)
	}
	if len(got) != 2 || got[0].Count != 5 || got[1].Count != 7 {
		t.Errorf("Filter() = %+v", got)
	}
}

func TestTrue(t *testing.T) {
	p := True()
	if !p.IsTrue() {
		t.Error("True().IsTrue() = false")
	}
	ok, err := p.Evaluate(nil)
	if err != nil || !ok {
		t.Errorf("True().Evaluate() = %v, %v", ok, err)
	}
}
