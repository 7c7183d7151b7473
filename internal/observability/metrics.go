package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the predicate metric instruments.
type Metrics struct {
	compileDuration metric.Float64Histogram
	compileCount    metric.Int64Counter
	cacheHits       metric.Int64Counter
	decodedNodes    metric.Int64Counter
	droppedNodes    metric.Int64Counter
	applyCount      metric.Int64Counter
	dbQueryDuration metric.Float64Histogram
}

// NewMetrics creates a new Metrics instance with the given MeterProvider.
func NewMetrics(mp metric.MeterProvider) *Metrics {
	meter := mp.Meter(MeterName)
	m := &Metrics{}

	// Note: errors from meter instrument creation are unlikely in practice
	// and would only occur with invalid parameters. We fall back to the bare
	// instrument and continue with partial metrics on error.
	var err error

	m.compileDuration, err = meter.Float64Histogram(
		"predicateview.compile.duration",
		metric.WithDescription("Duration of tree compilations in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		m.compileDuration, _ = meter.Float64Histogram("predicateview.compile.duration")
	}

	m.compileCount, err = meter.Int64Counter(
		"predicateview.compile.count",
		metric.WithDescription("Total number of predicate recompiles"),
		metric.WithUnit("{compile}"),
	)
	if err != nil {
		m.compileCount, _ = meter.Int64Counter("predicateview.compile.count")
	}

	m.cacheHits, err = meter.Int64Counter(
		"predicateview.compile.cache_hits",
		metric.WithDescription("Recompiles served from the predicate cache"),
		metric.WithUnit("{compile}"),
	)
	if err != nil {
		m.cacheHits, _ = meter.Int64Counter("predicateview.compile.cache_hits")
	}

	m.decodedNodes, err = meter.Int64Counter(
		"predicateview.decode.decoded",
		metric.WithDescription("Tree nodes recovered from decoded predicates"),
		metric.WithUnit("{node}"),
	)
	if err != nil {
		m.decodedNodes, _ = meter.Int64Counter("predicateview.decode.decoded")
	}

	m.droppedNodes, err = meter.Int64Counter(
		"predicateview.decode.dropped",
		metric.WithDescription("Predicate nodes no row template recognised"),
		metric.WithUnit("{node}"),
	)
	if err != nil {
		m.droppedNodes, _ = meter.Int64Counter("predicateview.decode.dropped")
	}

	m.applyCount, err = meter.Int64Counter(
		"predicateview.apply.count",
		metric.WithDescription("Total number of predicates pushed down to SQL"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		m.applyCount, _ = meter.Int64Counter("predicateview.apply.count")
	}

	m.dbQueryDuration, err = meter.Float64Histogram(
		"predicateview.db.query.duration",
		metric.WithDescription("Duration of database queries in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		m.dbQueryDuration, _ = meter.Float64Histogram("predicateview.db.query.duration")
	}

	return m
}

// RecordCompile records a recompile. Cache hits count as compiles too.
func (m *Metrics) RecordCompile(ctx context.Context, duration time.Duration, cacheHit bool) {
	attrs := metric.WithAttributes(CacheHitAttr(cacheHit))
	m.compileDuration.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	m.compileCount.Add(ctx, 1, attrs)
	if cacheHit {
		m.cacheHits.Add(ctx, 1)
	}
}

// RecordDecode records the outcome of decoding a predicate.
func (m *Metrics) RecordDecode(ctx context.Context, decoded, dropped int) {
	m.decodedNodes.Add(ctx, int64(decoded))
	m.droppedNodes.Add(ctx, int64(dropped))
}

// RecordApply records a SQL pushdown.
func (m *Metrics) RecordApply(ctx context.Context, model string, residual bool) {
	m.applyCount.Add(ctx, 1, metric.WithAttributes(ModelAttr(model), ResidualAttr(residual)))
}

// RecordDBQuery records metrics for a database query.
func (m *Metrics) RecordDBQuery(ctx context.Context, operation string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("db.operation", operation))
	m.dbQueryDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
}
