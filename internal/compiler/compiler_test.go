package compiler

import (
	"errors"
	"testing"
	"time"

	"github.com/nlstn/go-predicateview/internal/expression"
	"github.com/nlstn/go-predicateview/internal/predicate"
	"github.com/nlstn/go-predicateview/internal/tree"
	"github.com/shopspring/decimal"
)

type tag struct {
	Name string
}

type task struct {
	Title string
	Count int
	Done  bool
	Due   time.Time
	Note  *string
	Tags  []tag
}

var (
	titleField = expression.StringField("Title", "Title")
	countField = expression.NumberField("Count", "Count")
	doneField  = expression.BoolField("Done", "Done")
	dueField   = expression.DateField("Due", "Due")
	noteField  = expression.Optional(expression.StringField("Note", "Note"))
	tagName    = expression.StringField("Name", "Name")
	tagsField  = expression.CollectionField("Tags", "Tags", tagName)
	templates  = []*expression.Template{titleField, countField, doneField, dueField, noteField, tagsField}
)

func newCompiler() *Compiler {
	return New(expression.Calendar{Location: time.UTC, FirstWeekday: time.Monday}, nil)
}

func mustAppend(t *testing.T, tr *tree.Tree, group tree.ID, tmpl *expression.Template, op expression.Operator, value any) tree.ID {
	t.Helper()
	id, err := tr.Append(group, tmpl)
	if err != nil {
		t.Fatalf("Append(%s) error = %v", tmpl, err)
	}
	if op != "" {
		if err := tr.SetOperator(id, op); err != nil {
			t.Fatalf("SetOperator(%s) error = %v", op, err)
		}
	}
	if value != nil {
		if err := tr.SetValue(id, value); err != nil {
			t.Fatalf("SetValue(%v) error = %v", value, err)
		}
	}
	return id
}

func TestEmptyTreeCompilesToTrue(t *testing.T) {
	tr := tree.New(templates)
	if p := newCompiler().Compile(tr); !p.IsTrue() {
		t.Errorf("Compile(empty) = %s, want true", p)
	}

	// rows without constraints behave like an empty tree
	g, _ := tr.AppendGroup(tr.Root(), expression.OpAny)
	mustAppend(t, tr, g, titleField, "", nil)
	mustAppend(t, tr, tr.Root(), titleField, expression.OpEquals, "")
	if p := newCompiler().Compile(tr); !p.IsTrue() {
		t.Errorf("Compile(empty strings) = %s, want true", p)
	}
}

func TestBalancedReduction(t *testing.T) {
	tr := tree.New(templates)
	for _, v := range []int{1, 2, 3, 4, 5} {
		mustAppend(t, tr, tr.Root(), countField, "", v)
	}
	p := newCompiler().Compile(tr)

	eq := func(in *predicate.Variable, n int64) predicate.Expression {
		return &predicate.Equal{
			LHS: &predicate.KeyPath{Root: in, Field: "Count"},
			RHS: &predicate.Value{Value: decimal.NewFromInt(n)},
		}
	}
	and := func(l, r predicate.Expression) predicate.Expression {
		return &predicate.Conjunction{LHS: l, RHS: r}
	}
	want := predicate.New(func(in *predicate.Variable) predicate.Expression {
		return and(and(and(eq(in, 1), eq(in, 2)), and(eq(in, 3), eq(in, 4))), eq(in, 5))
	})
	if !predicate.Equivalent(p, want) {
		t.Errorf("Compile() = %s\nwant %s", p, want)
	}
}

func TestLeafOperators(t *testing.T) {
	due := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	startOfDay := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	endOfDay := time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC).Add(-time.Nanosecond)

	tests := []struct {
		name  string
		tmpl  *expression.Template
		op    expression.Operator
		value any
		want  func(kp predicate.Expression) predicate.Expression
	}{
		{"string equals", titleField, expression.OpEquals, "a", func(kp predicate.Expression) predicate.Expression {
			return &predicate.Equal{LHS: kp, RHS: &predicate.Value{Value: "a"}}
		}},
		{"string contains", titleField, expression.OpContains, "a", func(kp predicate.Expression) predicate.Expression {
			return &predicate.StringContains{Root: kp, Other: &predicate.Value{Value: "a"}}
		}},
		{"string begins with", titleField, expression.OpBeginsWith, "a", func(kp predicate.Expression) predicate.Expression {
			return &predicate.StartsWith{Base: kp, Prefix: &predicate.Value{Value: "a"}}
		}},
		{"number not equal", countField, expression.OpNotEquals, 2, func(kp predicate.Expression) predicate.Expression {
			return &predicate.NotEqual{LHS: kp, RHS: &predicate.Value{Value: decimal.NewFromInt(2)}}
		}},
		{"number less or equal", countField, expression.OpLessThanOrEqual, 2, func(kp predicate.Expression) predicate.Expression {
			return &predicate.Comparison{LHS: kp, RHS: &predicate.Value{Value: decimal.NewFromInt(2)}, Op: predicate.LessThanOrEqual}
		}},
		{"bool is not", doneField, expression.OpIsNot, true, func(kp predicate.Expression) predicate.Expression {
			return &predicate.NotEqual{LHS: kp, RHS: &predicate.Value{Value: true}}
		}},
		{"date before", dueField, expression.OpBefore, due, func(kp predicate.Expression) predicate.Expression {
			return &predicate.Comparison{LHS: kp, RHS: &predicate.Value{Value: startOfDay}, Op: predicate.LessThan}
		}},
		{"date on or after", dueField, expression.OpOnOrAfter, due, func(kp predicate.Expression) predicate.Expression {
			return &predicate.Comparison{LHS: kp, RHS: &predicate.Value{Value: startOfDay}, Op: predicate.GreaterThanOrEqual}
		}},
		{"date on or before", dueField, expression.OpOnOrBefore, due, func(kp predicate.Expression) predicate.Expression {
			return &predicate.Comparison{LHS: kp, RHS: &predicate.Value{Value: endOfDay}, Op: predicate.LessThanOrEqual}
		}},
		{"date after", dueField, expression.OpAfter, due, func(kp predicate.Expression) predicate.Expression {
			return &predicate.Comparison{LHS: kp, RHS: &predicate.Value{Value: endOfDay}, Op: predicate.GreaterThan}
		}},
		{"same day", dueField, expression.OpSameDay, due, func(kp predicate.Expression) predicate.Expression {
			return &predicate.Conjunction{
				LHS: &predicate.Comparison{LHS: kp, RHS: &predicate.Value{Value: startOfDay}, Op: predicate.GreaterThanOrEqual},
				RHS: &predicate.Comparison{LHS: kp, RHS: &predicate.Value{Value: startOfDay.AddDate(0, 0, 1)}, Op: predicate.LessThan},
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := tree.New(templates)
			mustAppend(t, tr, tr.Root(), tt.tmpl, tt.op, tt.value)
			got := newCompiler().Compile(tr)
			want := predicate.New(func(in *predicate.Variable) predicate.Expression {
				return tt.want(&predicate.KeyPath{Root: in, Field: tt.tmpl.Field})
			})
			if !predicate.Equivalent(got, want) {
				t.Errorf("Compile() = %s\nwant %s", got, want)
			}
		})
	}
}

func TestSameDayEvaluation(t *testing.T) {
	tr := tree.New(templates)
	mustAppend(t, tr, tr.Root(), dueField, expression.OpSameDay, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC))
	p := newCompiler().Compile(tr)

	tests := []struct {
		due  time.Time
		want bool
	}{
		{time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), true},
		{time.Date(2024, 1, 15, 23, 59, 59, 0, time.UTC), true},
		{time.Date(2024, 1, 16, 0, 0, 0, 0, time.UTC), false},
		{time.Date(2024, 1, 14, 23, 59, 59, 0, time.UTC), false},
	}
	for _, tt := range tests {
		got, err := p.Evaluate(task{Due: tt.due})
		if err != nil {
			t.Fatalf("Evaluate(%s) error = %v", tt.due, err)
		}
		if got != tt.want {
			t.Errorf("Evaluate(%s) = %v, want %v", tt.due, got, tt.want)
		}
	}
}

func TestOptional(t *testing.T) {
	note := "xxABCxx"
	tests := []struct {
		name    string
		op      expression.Operator
		wrapped *expression.Attribute
		record  task
		want    bool
	}{
		{"exists contains on nil", expression.OpExists, &expression.Attribute{Operator: expression.OpContains, Value: "abc"}, task{}, false},
		{"exists contains on value", expression.OpExists, &expression.Attribute{Operator: expression.OpContains, Value: "abc"}, task{Note: &note}, true},
		{"exists without constraint", expression.OpExists, &expression.Attribute{Operator: expression.OpContains, Value: ""}, task{Note: &note}, true},
		{"exists without constraint on nil", expression.OpExists, &expression.Attribute{Operator: expression.OpContains, Value: ""}, task{}, false},
		{"has no value on nil", expression.OpDoesNotExist, nil, task{}, true},
		{"has no value on value", expression.OpDoesNotExist, nil, task{Note: &note}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := tree.New(templates)
			id := mustAppend(t, tr, tr.Root(), noteField, "", nil)
			if err := tr.SetOptionalAttribute(id, tt.op, tt.wrapped); err != nil {
				t.Fatalf("SetOptionalAttribute() error = %v", err)
			}
			got, err := newCompiler().Compile(tr).Evaluate(tt.record)
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOptionalFallbackShape(t *testing.T) {
	tr := tree.New(templates)
	id := mustAppend(t, tr, tr.Root(), noteField, "", nil)
	_ = tr.SetOptionalAttribute(id, expression.OpExists, &expression.Attribute{Operator: expression.OpEquals, Value: ""})

	p := newCompiler().Compile(tr)
	ne, ok := p.Expression.(*predicate.NotEqual)
	if !ok || !predicate.IsNilLiteral(ne.RHS) {
		t.Errorf("Compile() = %s, want a not-nil test", p)
	}
}

func TestCollection(t *testing.T) {
	tests := []struct {
		name string
		op   expression.Operator
		tags []tag
		want bool
	}{
		{"contains over empty", expression.OpContains, nil, false},
		{"all satisfy over empty", expression.OpAllSatisfy, nil, true},
		{"does not contain over empty", expression.OpDoesNotContain, nil, true},
		{"contains match", expression.OpContains, []tag{{"x"}, {"urgent"}}, true},
		{"does not contain match", expression.OpDoesNotContain, []tag{{"x"}, {"urgent"}}, false},
		{"all satisfy partial", expression.OpAllSatisfy, []tag{{"x"}, {"urgent"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := tree.New(templates)
			id := mustAppend(t, tr, tr.Root(), tagsField, tt.op, nil)
			n, _ := tr.Node(id)
			mustAppend(t, tr, n.Group, tagName, expression.OpEquals, "urgent")

			got, err := newCompiler().Compile(tr).Evaluate(task{Tags: tt.tags})
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEmptyCollectionContributesNothing(t *testing.T) {
	tr := tree.New(templates)
	mustAppend(t, tr, tr.Root(), tagsField, expression.OpAllSatisfy, nil)
	if p := newCompiler().Compile(tr); !p.IsTrue() {
		t.Errorf("Compile() = %s, want true", p)
	}
}

var errRejected = errors.New("rejected")

type overdue struct{}

// Evaluate has no variable to rebind, so substitution must fail.
func (overdue) Evaluate(predicate.Bindings) (any, error) { return nil, errRejected }

func TestCustom(t *testing.T) {
	longTitle := &expression.CustomFunc{
		Name:    "Long title",
		Default: 3,
		Ops:     []expression.Operator{"longer than"},
		Build: func(value any, op expression.Operator) (predicate.Predicate, bool) {
			n, ok := value.(int)
			if !ok || n <= 0 {
				return predicate.Predicate{}, false
			}
			return predicate.New(func(in *predicate.Variable) predicate.Expression {
				return &predicate.Disjunction{
					LHS: &predicate.StartsWith{Base: &predicate.KeyPath{Root: in, Field: "Title"}, Prefix: &predicate.Value{Value: "!"}},
					RHS: &predicate.Comparison{LHS: &predicate.KeyPath{Root: in, Field: "Count"}, RHS: &predicate.Value{Value: n}, Op: predicate.GreaterThan},
				}
			}), true
		},
	}
	opaqueKind := &expression.CustomFunc{
		Name: "Opaque",
		Ops:  []expression.Operator{"is"},
		Build: func(any, expression.Operator) (predicate.Predicate, bool) {
			return predicate.Predicate{Input: predicate.NewVariable(), Expression: overdue{}}, true
		},
	}
	custom := expression.Custom(longTitle)
	opaque := expression.Custom(opaqueKind)
	tr := tree.New([]*expression.Template{custom, opaque})

	mustAppend(t, tr, tr.Root(), custom, "", nil)
	mustAppend(t, tr, tr.Root(), opaque, "", nil)
	p := newCompiler().Compile(tr)

	got, err := p.Evaluate(task{Count: 5})
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if !got {
		t.Errorf("Evaluate() = false for %s", p)
	}

	if err := tr.SetValue(tr.Children(tr.Root())[0], 0); err != nil {
		t.Fatal(err)
	}
	if p := newCompiler().Compile(tr); !p.IsTrue() {
		t.Errorf("rejected values should compile to nothing, got %s", p)
	}
}
