package predicateview

import (
	"context"
	"reflect"

	"github.com/nlstn/go-predicateview/internal/compiler"
	"github.com/nlstn/go-predicateview/internal/decoder"
	"github.com/nlstn/go-predicateview/internal/observability"
	"github.com/nlstn/go-predicateview/internal/predicate"
	"github.com/nlstn/go-predicateview/internal/sqlgen"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

// Compile turns a tree into a predicate using cal for date rows. An empty tree
// compiles to the predicate that accepts everything.
func Compile(t *Tree, cal Calendar) Predicate {
	return compiler.New(cal, nil).Compile(t)
}

// Decode rebuilds a tree from p over the given row templates.
func Decode(p Predicate, templates []*Template) (*Tree, Stats) {
	return decoder.Decode(p, templates)
}

// Filter returns the records p accepts, preserving order.
func Filter[T any](records []T, p Predicate) ([]T, error) {
	return predicate.Filter(records, p)
}

// Scope returns a GORM scope restricting a query over model to the rows p
// accepts. Parts of p SQL cannot express are left out, so the query may
// return extra rows; Find removes them.
func Scope(p Predicate, model any) func(*gorm.DB) *gorm.DB {
	return sqlgen.Scope(p, model)
}

// Find loads the records of T that p accepts, pushing as much of p as possible
// down to the database.
func Find[T any](db *gorm.DB, p Predicate) ([]T, error) {
	rows, _, err := sqlgen.Find[T](db, p)
	return rows, err
}

// Translate converts the current predicate into a SQL clause over model.
func (c *Control) Translate(ctx context.Context, db *gorm.DB, model any) (*Clause, error) {
	p := c.Predicate()
	ctx, span := c.obs.Tracer().StartApply(ctx, modelName(model))
	defer span.End()

	if db != nil {
		db = db.WithContext(ctx)
	}
	clause, err := sqlgen.Translate(db, model, p)
	if err != nil {
		c.obs.Tracer().RecordError(span, err)
		return nil, err
	}
	c.recordApply(ctx, span, modelName(model), clause)
	return clause, nil
}

// InstrumentDB registers query tracing callbacks on db when the control was
// configured WithDetailedDBTracing and a tracer provider.
func (c *Control) InstrumentDB(db *gorm.DB) error {
	return observability.RegisterGORMCallbacks(db, c.obs)
}

// Query loads the records of T accepted by the control's current predicate.
func Query[T any](ctx context.Context, c *Control, db *gorm.DB) ([]T, error) {
	var model T
	name := modelName(model)
	ctx, span := c.obs.Tracer().StartApply(ctx, name)
	defer span.End()

	if db != nil {
		db = db.WithContext(ctx)
	}
	rows, clause, err := sqlgen.Find[T](db, c.Predicate())
	if clause != nil {
		c.recordApply(ctx, span, name, clause)
	}
	if err != nil {
		c.obs.Tracer().RecordError(span, err)
		return nil, err
	}
	return rows, nil
}

func (c *Control) recordApply(ctx context.Context, span trace.Span, model string, clause *Clause) {
	span.SetAttributes(observability.ResidualAttr(clause.Residual))
	c.obs.Metrics().RecordApply(ctx, model, clause.Residual)
	if clause.Residual {
		observability.LoggerWithTrace(ctx, c.logger).Debug("Predicate partially pushed down, filtering in memory", "model", model)
	}
}

func modelName(model any) string {
	t := reflect.TypeOf(model)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ""
	}
	return t.Name()
}
