// Package sqlgen pushes compiled predicates down to SQL through GORM.
//
// A predicate is translated against the GORM schema of a record model: key
// paths resolve to columns, collection quantifiers over has-many relations
// become EXISTS / NOT EXISTS subqueries and optional unwraps become IS NOT NULL
// guards.
//
// # Unsupported expressions
//
// Translation degrades the way filter pushdown encoders usually do:
//   - under AND, unsupported children are skipped and the clause is marked
//     Residual
//   - under OR or a negation, one unsupported operand makes the whole subtree
//     unsupported
//   - a predicate with nothing translatable yields an empty, Residual clause
//
// A Residual clause selects a superset of the matching rows. Callers must run
// the predicate in memory over the result, which Find does.
//
// String containment is never pushed down: it ignores case and diacritics,
// which LOWER and LIKE only do for ASCII if at all. Prefix tests become LIKE,
// marked Residual on sqlite where LIKE ignores ASCII case. Times are bound in
// UTC and compared with julianday on sqlite, which stores them as text.
package sqlgen

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nlstn/go-predicateview/internal/predicate"
	"gorm.io/gorm"
	gormclause "gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

// ErrUnsupportedModel is returned when the record model has no GORM schema.
var ErrUnsupportedModel = errors.New("sqlgen: unsupported model")

var schemaCache sync.Map

// Clause is a translated WHERE condition.
type Clause struct {
	SQL  string
	Vars []any
	// Residual is set when part of the predicate could not be translated and
	// the clause selects a superset of the matching rows.
	Residual bool
}

// Empty reports whether the clause places no constraint on the query.
func (c *Clause) Empty() bool {
	return c == nil || c.SQL == ""
}

// Scope applies the clause to a query.
func (c *Clause) Scope() func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if c.Empty() {
			return db
		}
		return db.Where(c.SQL, c.Vars...)
	}
}

// Translate converts p into a WHERE clause over the table of model.
func Translate(db *gorm.DB, model any, p predicate.Predicate) (*Clause, error) {
	if p.Input == nil || p.Expression == nil {
		return nil, predicate.ErrIncompletePredicate
	}
	if db == nil {
		return nil, fmt.Errorf("sqlgen: database cannot be nil")
	}
	s, err := parseSchema(db, model)
	if err != nil {
		return nil, err
	}
	if p.IsTrue() {
		return &Clause{}, nil
	}

	t := &translator{
		dialect:  getDatabaseDialect(db),
		bindings: map[uint64]binding{p.Input.Key: {schema: s, qualifier: quoteIdent(s.Table)}},
	}
	frag, ok := t.expr(p.Expression, false)
	if !ok {
		return &Clause{Residual: true}, nil
	}
	return &Clause{SQL: frag.sql, Vars: frag.vars, Residual: frag.residual}, nil
}

// Scope returns a GORM scope filtering by p. Translation errors are added to
// the query. Residual clauses are applied as they are, so the rows may include
// records p rejects; use Find when exact results are needed.
func Scope(p predicate.Predicate, model any) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		clause, err := Translate(db, model, p)
		if err != nil {
			_ = db.AddError(err)
			return db
		}
		return clause.Scope()(db)
	}
}

// Find loads the records of T matching p and returns them with the clause
// that was pushed down. When the clause is Residual, p is run in memory over
// the loaded rows, with the direct associations of T preloaded so collection
// tests see their elements.
func Find[T any](db *gorm.DB, p predicate.Predicate) ([]T, *Clause, error) {
	var model T
	clause, err := Translate(db, &model, p)
	if err != nil {
		return nil, nil, err
	}
	query := db.Scopes(clause.Scope())
	if clause.Residual {
		query = query.Preload(gormclause.Associations)
	}
	var rows []T
	if err := query.Find(&rows).Error; err != nil {
		return nil, clause, fmt.Errorf("failed to query records: %w", err)
	}
	if !clause.Residual {
		return rows, clause, nil
	}
	rows, err = predicate.Filter(rows, p)
	return rows, clause, err
}

func parseSchema(db *gorm.DB, model any) (*schema.Schema, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: model cannot be nil", ErrUnsupportedModel)
	}
	s, err := schema.Parse(model, &schemaCache, db.NamingStrategy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedModel, err)
	}
	return s, nil
}

// getDatabaseDialect returns the active database dialect name (e.g. "sqlite", "postgres").
func getDatabaseDialect(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	return db.Dialector.Name()
}
