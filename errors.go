package predicateview

import (
	"errors"

	"github.com/nlstn/go-predicateview/internal/expression"
	"github.com/nlstn/go-predicateview/internal/predicate"
	"github.com/nlstn/go-predicateview/internal/sqlgen"
	"github.com/nlstn/go-predicateview/internal/tree"
)

// Sentinel errors returned by tree edits, evaluation and SQL pushdown.
// These can be used with errors.Is() for error handling.
var (
	// ErrNoTemplates indicates a control created without any row template.
	ErrNoTemplates = errors.New("predicateview: no row templates")

	// ErrNodeNotFound indicates an id that is not part of the tree.
	ErrNodeNotFound = tree.ErrNodeNotFound

	// ErrNotGroup indicates a group operation on a node that is not a logical group.
	ErrNotGroup = tree.ErrNotGroup

	// ErrNotOptional indicates an optional-attribute edit on a non-optional node.
	ErrNotOptional = tree.ErrNotOptional

	// ErrRootNode indicates an attempt to remove or ungroup the root or a
	// collection's element group.
	ErrRootNode = tree.ErrRootNode

	// ErrTemplateNotInScope indicates a template the target group does not offer.
	ErrTemplateNotInScope = tree.ErrTemplateNotInScope

	// ErrInvalidOperator indicates an operator outside the node kind's operator set.
	ErrInvalidOperator = expression.ErrInvalidOperator

	// ErrInvalidValue indicates a value of the wrong type for the node kind.
	ErrInvalidValue = expression.ErrInvalidValue

	// ErrInvalidTemplate indicates a row template that cannot be instantiated.
	ErrInvalidTemplate = expression.ErrInvalidTemplate

	// ErrIncompletePredicate indicates a predicate without input or expression.
	ErrIncompletePredicate = predicate.ErrIncompletePredicate

	// ErrNotReplaceable indicates a host expression that cannot have its variables substituted.
	ErrNotReplaceable = predicate.ErrNotReplaceable

	// ErrUnsupportedModel indicates a record model GORM cannot describe.
	ErrUnsupportedModel = sqlgen.ErrUnsupportedModel
)
