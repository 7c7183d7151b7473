package expression

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOperator indicates an operator outside the node kind's operator set.
	ErrInvalidOperator = errors.New("expression: invalid operator")

	// ErrInvalidValue indicates a value of the wrong type for the node kind.
	ErrInvalidValue = errors.New("expression: invalid value")

	// ErrInvalidTemplate indicates a row template that cannot be instantiated.
	ErrInvalidTemplate = errors.New("expression: invalid template")
)

// ValueError describes a rejected attribute value.
type ValueError struct {
	Kind   Kind
	Value  any
	Reason string
}

func (e *ValueError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("expression: invalid %s value %v: %s", e.Kind, e.Value, e.Reason)
	}
	return fmt.Sprintf("expression: invalid %s value %v (%T)", e.Kind, e.Value, e.Value)
}

// Unwrap lets errors.Is match ErrInvalidValue.
func (e *ValueError) Unwrap() error { return ErrInvalidValue }
