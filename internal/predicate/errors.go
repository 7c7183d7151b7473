package predicate

import (
	"errors"
	"fmt"
)

// Sentinel errors returned while evaluating or rewriting a graph.
var (
	// ErrIncompletePredicate indicates a predicate without input variable or expression.
	ErrIncompletePredicate = errors.New("predicate: incomplete predicate")

	// ErrUnboundVariable indicates a variable that has no value in the current bindings.
	ErrUnboundVariable = errors.New("predicate: unbound variable")

	// ErrNilUnwrap indicates a forced unwrap of an absent value.
	ErrNilUnwrap = errors.New("predicate: forced unwrap of nil value")

	// ErrNotReplaceable indicates a node type that does not support variable substitution.
	ErrNotReplaceable = errors.New("predicate: expression does not support variable replacement")
)

// FieldError reports a key path that could not be resolved on a value.
type FieldError struct {
	Field string
	Type  string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("predicate: no field %q on %s", e.Field, e.Type)
}

// TypeError reports an operand of the wrong type for an operation.
type TypeError struct {
	Op       string
	Expected string
	Got      any
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("predicate: %s expects %s, got %T", e.Op, e.Expected, e.Got)
}
