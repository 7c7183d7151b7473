package predicateview

import (
	"github.com/nlstn/go-predicateview/internal/decoder"
	"github.com/nlstn/go-predicateview/internal/expression"
	"github.com/nlstn/go-predicateview/internal/predicate"
	"github.com/nlstn/go-predicateview/internal/sqlgen"
	"github.com/nlstn/go-predicateview/internal/tree"
)

// Filter tree types.
type (
	// Tree is the editable filter tree. It is not safe for concurrent use;
	// reach it through Control.Edit and Control.View.
	Tree = tree.Tree
	// ID identifies a node within its tree.
	ID = tree.ID
	// Draft is a detached subtree a Tree can adopt.
	Draft = tree.Draft
	// Change is the notification a tree sends after a mutation.
	Change = tree.Change
	// Node is one filter row, group or wrapper.
	Node = expression.Node
	// Template describes an insertable row.
	Template = expression.Template
	// Attribute is the operator and value of a node.
	Attribute = expression.Attribute
	// Operator is a node's comparison or combination.
	Operator = expression.Operator
	// Kind tags the variant of a node.
	Kind = expression.Kind
	// Calendar supplies the time zone and week start for date operators.
	Calendar = expression.Calendar
	// Snapshot is the id-free value of a subtree.
	Snapshot = expression.Snapshot
	// CurrentValue is the canonical encoding of a Snapshot.
	CurrentValue = expression.CurrentValue
	// CustomKind is a host-defined row kind.
	CustomKind = expression.CustomKind
	// CustomDecoder lets a custom kind recognise its own predicates.
	CustomDecoder = expression.CustomDecoder
	// CustomFunc implements CustomKind and CustomDecoder from plain functions.
	CustomFunc = expression.CustomFunc
	// ValueError describes a rejected attribute value.
	ValueError = expression.ValueError
	// Stats counts what a decode recovered and what it dropped.
	Stats = decoder.Stats
)

// Predicate graph types.
type (
	// Predicate is a boolean graph over a single input variable.
	Predicate = predicate.Predicate
	// Expression is a node of the predicate graph.
	Expression = predicate.Expression
	// Variable is a bound input of the predicate graph.
	Variable = predicate.Variable
	// Bindings maps variable keys to values during evaluation.
	Bindings = predicate.Bindings
	// VariableReplacer lets host expressions take part in variable substitution.
	VariableReplacer = predicate.VariableReplacer
	// Clause is a predicate translated to a SQL WHERE condition.
	Clause = sqlgen.Clause
)

// Kinds
const (
	KindString     = expression.KindString
	KindNumber     = expression.KindNumber
	KindBool       = expression.KindBool
	KindEnum       = expression.KindEnum
	KindDate       = expression.KindDate
	KindOptional   = expression.KindOptional
	KindCollection = expression.KindCollection
	KindLogical    = expression.KindLogical
	KindCustom     = expression.KindCustom
)

// Operators
const (
	OpEquals             = expression.OpEquals
	OpContains           = expression.OpContains
	OpBeginsWith         = expression.OpBeginsWith
	OpNotEquals          = expression.OpNotEquals
	OpLessThan           = expression.OpLessThan
	OpLessThanOrEqual    = expression.OpLessThanOrEqual
	OpGreaterThan        = expression.OpGreaterThan
	OpGreaterThanOrEqual = expression.OpGreaterThanOrEqual
	OpIs                 = expression.OpIs
	OpIsNot              = expression.OpIsNot
	OpBefore             = expression.OpBefore
	OpAfter              = expression.OpAfter
	OpOnOrBefore         = expression.OpOnOrBefore
	OpOnOrAfter          = expression.OpOnOrAfter
	OpSameDay            = expression.OpSameDay
	OpSameWeek           = expression.OpSameWeek
	OpSameMonth          = expression.OpSameMonth
	OpExists             = expression.OpExists
	OpDoesNotExist       = expression.OpDoesNotExist
	OpDoesNotContain     = expression.OpDoesNotContain
	OpAllSatisfy         = expression.OpAllSatisfy
	OpAll                = expression.OpAll
	OpAny                = expression.OpAny
)

// Row template constructors.
var (
	StringField     = expression.StringField
	NumberField     = expression.NumberField
	BoolField       = expression.BoolField
	DateField       = expression.DateField
	EnumField       = expression.EnumField
	Optional        = expression.Optional
	CollectionField = expression.CollectionField
	Custom          = expression.Custom
)

// DefaultCalendar uses the local time zone and weeks starting on Sunday.
func DefaultCalendar() Calendar {
	return expression.DefaultCalendar()
}

// NewPredicate builds a predicate by handing a fresh input variable to build.
func NewPredicate(build func(input *Variable) Expression) Predicate {
	return predicate.New(build)
}
