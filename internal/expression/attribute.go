package expression

import (
	"fmt"
	"reflect"
	"time"

	"github.com/nlstn/go-predicateview/internal/predicate"
	"github.com/shopspring/decimal"
)

// Attribute is the operator/value pair of a node. Logical groups and collections
// only use the operator; a collection's element group is its metadata payload
// and lives in Node.Group.
type Attribute struct {
	Operator Operator
	Value    any
}

// Equal compares two attributes structurally. Values compare semantically, so
// decimals with different scale or instants in different zones are equal.
func (a Attribute) Equal(b Attribute) bool {
	if a.Operator != b.Operator {
		return false
	}
	if a.Value == nil || b.Value == nil {
		return a.Value == nil && b.Value == nil
	}
	return predicate.SameValue(a.Value, b.Value)
}

func (a Attribute) String() string {
	if a.Value == nil {
		return a.Operator.String()
	}
	return fmt.Sprintf("%s %v", a.Operator, a.Value)
}

// dateLayouts are accepted when a date value arrives as text.
var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// normalizeValue converts v into the canonical Go type of a leaf kind.
func normalizeValue(kind Kind, cases []any, v any) (any, error) {
	switch kind {
	case KindString:
		if s, ok := v.(string); ok {
			return s, nil
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.String {
			return rv.String(), nil
		}
	case KindNumber:
		if d, ok := predicate.ToDecimal(v); ok {
			return d, nil
		}
		if s, ok := v.(string); ok {
			d, err := decimal.NewFromString(s)
			if err != nil {
				return nil, &ValueError{Kind: kind, Value: v, Reason: err.Error()}
			}
			return d, nil
		}
	case KindBool:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case KindDate:
		switch t := v.(type) {
		case time.Time:
			return t, nil
		case *time.Time:
			if t != nil {
				return *t, nil
			}
		case string:
			for _, layout := range dateLayouts {
				if parsed, err := time.Parse(layout, t); err == nil {
					return parsed, nil
				}
			}
			return nil, &ValueError{Kind: kind, Value: v, Reason: "unrecognised date format"}
		}
	case KindEnum:
		for _, c := range cases {
			if predicate.SameValue(c, v) {
				return c, nil
			}
		}
		// text input from a picker or fixture file
		if s, ok := v.(string); ok {
			for _, c := range cases {
				if fmt.Sprint(c) == s {
					return c, nil
				}
			}
		}
		return nil, &ValueError{Kind: kind, Value: v, Reason: "not one of the enumeration cases"}
	default:
		return nil, &ValueError{Kind: kind, Value: v, Reason: "kind has no value"}
	}
	return nil, &ValueError{Kind: kind, Value: v}
}
