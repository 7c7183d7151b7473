package sqlgen

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/nlstn/go-predicateview/internal/predicate"
	"github.com/shopspring/decimal"
	"gorm.io/gorm/schema"
)

// binding is what a predicate variable stands for in SQL: a row of a table
// (schema set) or a single column expression (column set).
type binding struct {
	schema    *schema.Schema
	qualifier string
	column    string
}

type fragment struct {
	sql      string
	vars     []any
	residual bool
}

type translator struct {
	dialect  string
	bindings map[uint64]binding
	aliases  int
}

var comparisonSQL = map[predicate.ComparisonOperator]string{
	predicate.LessThan:           "<",
	predicate.LessThanOrEqual:    "<=",
	predicate.GreaterThan:        ">",
	predicate.GreaterThanOrEqual: ">=",
}

// expr translates e. In strict mode nothing may be skipped, because the
// fragment ends up negated and a superset would turn into a subset.
func (t *translator) expr(e predicate.Expression, strict bool) (fragment, bool) {
	// `column == false` is a plain comparison, anything else is a negation
	if inner, ok := predicate.Negated(e); ok && !t.isColumn(inner) {
		f, ok := t.expr(inner, true)
		if !ok || f.residual {
			return fragment{}, false
		}
		return fragment{sql: fmt.Sprintf("NOT (%s)", f.sql), vars: f.vars}, true
	}

	switch n := e.(type) {
	case *predicate.Value:
		b, ok := n.Value.(bool)
		if !ok {
			return fragment{}, false
		}
		if b {
			return fragment{sql: "1 = 1"}, true
		}
		return fragment{sql: "1 = 0"}, true
	case *predicate.Conjunction:
		return t.conjunction(n, strict)
	case *predicate.Disjunction:
		return t.disjunction(n, strict)
	case *predicate.Equal:
		return t.equality(n.LHS, n.RHS, "=", "IS NULL")
	case *predicate.NotEqual:
		return t.equality(n.LHS, n.RHS, "<>", "IS NOT NULL")
	case *predicate.Comparison:
		return t.comparison(n)
	case *predicate.StringContains:
		// contains folds case and diacritics in memory, which neither LOWER nor
		// LIKE reproduce, so it is always left to in-memory filtering
		return fragment{}, false
	case *predicate.StartsWith:
		return t.startsWith(n, strict)
	case *predicate.SequencePredicate:
		return t.sequence(n, strict)
	case *predicate.NilCoalesce:
		return t.optional(n, strict)
	}
	return fragment{}, false
}

func (t *translator) conjunction(n *predicate.Conjunction, strict bool) (fragment, bool) {
	l, lok := t.expr(n.LHS, strict)
	r, rok := t.expr(n.RHS, strict)
	switch {
	case lok && rok:
		return fragment{
			sql:      fmt.Sprintf("(%s) AND (%s)", l.sql, r.sql),
			vars:     append(l.vars, r.vars...),
			residual: l.residual || r.residual,
		}, true
	case strict || (!lok && !rok):
		return fragment{}, false
	case lok:
		l.residual = true
		return l, true
	default:
		r.residual = true
		return r, true
	}
}

func (t *translator) disjunction(n *predicate.Disjunction, strict bool) (fragment, bool) {
	l, ok := t.expr(n.LHS, strict)
	if !ok {
		return fragment{}, false
	}
	r, ok := t.expr(n.RHS, strict)
	if !ok {
		return fragment{}, false
	}
	return fragment{
		sql:      fmt.Sprintf("(%s) OR (%s)", l.sql, r.sql),
		vars:     append(l.vars, r.vars...),
		residual: l.residual || r.residual,
	}, true
}

func (t *translator) equality(lhs, rhs predicate.Expression, op, nullTest string) (fragment, bool) {
	col, ok := t.column(lhs)
	if !ok {
		return fragment{}, false
	}
	if predicate.IsNilLiteral(rhs) {
		return fragment{sql: fmt.Sprintf("%s %s", col, nullTest)}, true
	}
	v, ok := t.literal(rhs)
	if !ok {
		return fragment{}, false
	}
	lhsSQL, rhsSQL := t.operands(col, v)
	return fragment{sql: fmt.Sprintf("%s %s %s", lhsSQL, op, rhsSQL), vars: []any{v}}, true
}

func (t *translator) comparison(n *predicate.Comparison) (fragment, bool) {
	op, ok := comparisonSQL[n.Op]
	if !ok {
		return fragment{}, false
	}
	col, ok := t.column(n.LHS)
	if !ok {
		return fragment{}, false
	}
	v, ok := t.literal(n.RHS)
	if !ok {
		return fragment{}, false
	}
	lhsSQL, rhsSQL := t.operands(col, v)
	return fragment{sql: fmt.Sprintf("%s %s %s", lhsSQL, op, rhsSQL), vars: []any{v}}, true
}

// operands returns both sides of a comparison between col and a bound literal.
// sqlite stores times as text with their offset, so times are compared as
// Julian day numbers there.
func (t *translator) operands(col string, v any) (string, string) {
	if _, ok := v.(time.Time); ok && t.dialect == "sqlite" {
		return "julianday(" + col + ")", "julianday(?)"
	}
	return col, "?"
}

func (t *translator) startsWith(n *predicate.StartsWith, strict bool) (fragment, bool) {
	col, ok := t.column(n.Base)
	if !ok {
		return fragment{}, false
	}
	s, ok := t.stringLiteral(n.Prefix)
	if !ok {
		return fragment{}, false
	}
	sql, vars := buildLikeComparison(col, s, false, true)
	// sqlite LIKE ignores ASCII case, so it only narrows the rows down
	residual := t.dialect == "sqlite"
	if residual && strict {
		return fragment{}, false
	}
	return fragment{sql: sql, vars: vars, residual: residual}, true
}

// sequence maps a quantifier over a has-many relation to a correlated
// subquery.
func (t *translator) sequence(n *predicate.SequencePredicate, strict bool) (fragment, bool) {
	kp, ok := n.Sequence.(*predicate.KeyPath)
	if !ok || n.Variable == nil {
		return fragment{}, false
	}
	parent, ok := t.record(kp.Root)
	if !ok {
		return fragment{}, false
	}
	rel, ok := parent.schema.Relationships.Relations[kp.Field]
	if !ok || rel.Type != schema.HasMany || rel.FieldSchema == nil {
		return fragment{}, false
	}

	t.aliases++
	alias := quoteIdent(fmt.Sprintf("%s_%d", rel.FieldSchema.Table, t.aliases))
	var joins []string
	var vars []any
	for _, ref := range rel.References {
		if ref.ForeignKey == nil {
			return fragment{}, false
		}
		fk := alias + "." + quoteIdent(ref.ForeignKey.DBName)
		switch {
		case ref.OwnPrimaryKey && ref.PrimaryKey != nil:
			joins = append(joins, fmt.Sprintf("%s = %s.%s", fk, parent.qualifier, quoteIdent(ref.PrimaryKey.DBName)))
		case ref.PrimaryValue != "":
			joins = append(joins, fk+" = ?")
			vars = append(vars, ref.PrimaryValue)
		default:
			return fragment{}, false
		}
	}
	if len(joins) == 0 {
		return fragment{}, false
	}

	t.bindings[n.Variable.Key] = binding{schema: rel.FieldSchema, qualifier: alias}
	defer delete(t.bindings, n.Variable.Key)
	test, ok := t.expr(n.Test, strict)
	if !ok {
		return fragment{}, false
	}

	from := fmt.Sprintf("SELECT 1 FROM %s AS %s WHERE %s", quoteIdent(rel.FieldSchema.Table), alias, strings.Join(joins, " AND "))
	var sql string
	switch n.Operation {
	case predicate.OperationContains:
		sql = fmt.Sprintf("EXISTS (%s AND (%s))", from, test.sql)
	case predicate.OperationAllSatisfy:
		sql = fmt.Sprintf("NOT EXISTS (%s AND NOT (%s))", from, test.sql)
	default:
		return fragment{}, false
	}
	return fragment{sql: sql, vars: append(vars, test.vars...), residual: test.residual}, true
}

// optional handles `(field ?> test) ?? false`, binding the flat-mapped
// variable to the column itself.
func (t *translator) optional(n *predicate.NilCoalesce, strict bool) (fragment, bool) {
	fallback, ok := predicate.Literal(n.RHS)
	if b, isBool := fallback.(bool); !ok || !isBool || b {
		return fragment{}, false
	}
	fm, ok := n.LHS.(*predicate.OptionalFlatMap)
	if !ok || fm.Variable == nil {
		return fragment{}, false
	}
	col, ok := t.column(fm.Wrapped)
	if !ok {
		return fragment{}, false
	}

	t.bindings[fm.Variable.Key] = binding{column: col}
	defer delete(t.bindings, fm.Variable.Key)
	test, ok := t.expr(fm.Transform, strict)
	if !ok {
		return fragment{}, false
	}
	return fragment{
		sql:      fmt.Sprintf("%s IS NOT NULL AND (%s)", col, test.sql),
		vars:     test.vars,
		residual: test.residual,
	}, true
}

// record resolves e to a row binding.
func (t *translator) record(e predicate.Expression) (binding, bool) {
	v, ok := e.(*predicate.Variable)
	if !ok {
		return binding{}, false
	}
	b, ok := t.bindings[v.Key]
	return b, ok && b.schema != nil
}

// column resolves e to a qualified, quoted column reference.
func (t *translator) column(e predicate.Expression) (string, bool) {
	switch n := e.(type) {
	case *predicate.ForcedUnwrap:
		return t.column(n.Wrapped)
	case *predicate.Variable:
		b, ok := t.bindings[n.Key]
		if !ok || b.column == "" {
			return "", false
		}
		return b.column, true
	case *predicate.KeyPath:
		b, ok := t.record(n.Root)
		if !ok {
			return "", false
		}
		field := lookupField(b.schema, n.Field)
		if field == nil || field.DBName == "" {
			return "", false
		}
		return b.qualifier + "." + quoteIdent(field.DBName), true
	}
	return "", false
}

func (t *translator) isColumn(e predicate.Expression) bool {
	_, ok := t.column(e)
	return ok
}

// lookupField finds the column of a struct field path. Dotted paths match
// fields of embedded structs by their Go field names.
func lookupField(s *schema.Schema, path string) *schema.Field {
	if !strings.Contains(path, ".") {
		return s.LookUpField(path)
	}
	segments := strings.Split(path, ".")
	for _, f := range s.Fields {
		if slices.Equal(f.BindNames, segments) {
			return f
		}
	}
	return nil
}

func (t *translator) literal(e predicate.Expression) (any, bool) {
	v, ok := predicate.Literal(e)
	if !ok || v == nil {
		return nil, false
	}
	return sqlValue(v), true
}

func (t *translator) stringLiteral(e predicate.Expression) (string, bool) {
	v, ok := predicate.Literal(e)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// sqlValue converts literals into values every driver binds natively.
func sqlValue(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		if x.IsInteger() {
			return x.IntPart()
		}
		return x.InexactFloat64()
	case *decimal.Decimal:
		if x == nil {
			return nil
		}
		return sqlValue(*x)
	case time.Time:
		return x.UTC()
	}
	return v
}
