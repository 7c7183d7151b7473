// Package observability provides OpenTelemetry-based instrumentation for
// predicate compilation, decoding and SQL pushdown.
//
// All observability features are opt-in. When not configured, no-op
// implementations are used with zero performance overhead.
package observability

import (
	"strconv"

	"go.opentelemetry.io/otel/attribute"
)

// Instrumentation identity constants
const (
	// TracerName is the instrumentation name for tracing.
	TracerName = "github.com/nlstn/go-predicateview"
	// MeterName is the instrumentation name for metrics.
	MeterName = "github.com/nlstn/go-predicateview"
)

// Semantic attribute keys following OpenTelemetry conventions.
const (
	AttrOperation = "predicateview.operation"

	// Tree attributes
	AttrNodeCount   = "predicateview.tree.node_count"
	AttrFingerprint = "predicateview.tree.fingerprint"
	AttrCacheHit    = "predicateview.compile.cache_hit"

	// Decode attributes
	AttrTemplateCount = "predicateview.decode.template_count"
	AttrDecoded       = "predicateview.decode.decoded"
	AttrDropped       = "predicateview.decode.dropped"

	// SQL pushdown attributes
	AttrModel    = "predicateview.sql.model"
	AttrResidual = "predicateview.sql.residual"
)

// Operation types for the predicateview.operation attribute.
const (
	OpCompile = "compile"
	OpDecode  = "decode"
	OpApply   = "apply"
)

// Log field keys for structured logging with trace context.
const (
	LogFieldTraceID     = "trace_id"
	LogFieldSpanID      = "span_id"
	LogFieldNodeCount   = "node_count"
	LogFieldFingerprint = "fingerprint"
	LogFieldDuration    = "duration_ms"
	LogFieldDecoded     = "decoded"
	LogFieldDropped     = "dropped"
	LogFieldError       = "error"
)

// OperationAttr creates an attribute for the operation type.
func OperationAttr(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// NodeCountAttr creates an attribute for the number of tree nodes.
func NodeCountAttr(n int) attribute.KeyValue {
	return attribute.Int(AttrNodeCount, n)
}

// FingerprintAttr creates an attribute for a tree fingerprint, rendered in hex.
func FingerprintAttr(fp uint64) attribute.KeyValue {
	return attribute.String(AttrFingerprint, strconv.FormatUint(fp, 16))
}

// CacheHitAttr creates an attribute telling whether a compile was served from cache.
func CacheHitAttr(hit bool) attribute.KeyValue {
	return attribute.Bool(AttrCacheHit, hit)
}

// ModelAttr creates an attribute for the record model of a SQL pushdown.
func ModelAttr(model string) attribute.KeyValue {
	return attribute.String(AttrModel, model)
}

// ResidualAttr creates an attribute telling whether a pushdown left work for memory.
func ResidualAttr(residual bool) attribute.KeyValue {
	return attribute.Bool(AttrResidual, residual)
}
