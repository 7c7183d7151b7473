package expression

import (
	"fmt"
	"reflect"
	"time"

	"github.com/shopspring/decimal"
)

// Template describes an insertable row: a field of the record type together
// with the node kind that filters it. Nodes are instantiated from templates with
// a fresh id.
type Template struct {
	Kind  Kind
	Title string
	// Field is the record field read by the node, dotted for nested structs.
	Field string
	// Inner is the wrapped leaf kind of an optional template.
	Inner Kind
	// Cases lists the values of an enumeration, in menu order.
	Cases []any
	// Elements are the row templates available inside a collection's group.
	Elements []*Template
	Custom   CustomKind
}

// StringField returns a template for a string field.
func StringField(title, field string) *Template {
	return &Template{Kind: KindString, Title: title, Field: field}
}

// NumberField returns a template for a numeric field.
func NumberField(title, field string) *Template {
	return &Template{Kind: KindNumber, Title: title, Field: field}
}

// BoolField returns a template for a boolean field.
func BoolField(title, field string) *Template {
	return &Template{Kind: KindBool, Title: title, Field: field}
}

// DateField returns a template for a time.Time field.
func DateField(title, field string) *Template {
	return &Template{Kind: KindDate, Title: title, Field: field}
}

// EnumField returns a template for a field restricted to cases.
func EnumField(title, field string, cases ...any) *Template {
	return &Template{Kind: KindEnum, Title: title, Field: field, Cases: cases}
}

// Optional wraps a leaf template for a nullable field.
func Optional(inner *Template) *Template {
	return &Template{
		Kind:  KindOptional,
		Title: inner.Title,
		Field: inner.Field,
		Inner: inner.Kind,
		Cases: inner.Cases,
	}
}

// CollectionField returns a template for a slice field whose elements are
// filtered with the given element templates.
func CollectionField(title, field string, elements ...*Template) *Template {
	return &Template{Kind: KindCollection, Title: title, Field: field, Elements: elements}
}

// Custom returns a template for a host-defined kind.
func Custom(kind CustomKind) *Template {
	return &Template{Kind: KindCustom, Title: kind.Title(), Custom: kind}
}

// Validate checks that the template can be instantiated.
func (t *Template) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: nil template", ErrInvalidTemplate)
	}
	switch t.Kind {
	case KindString, KindNumber, KindBool, KindDate:
	case KindEnum:
		if len(t.Cases) == 0 {
			return fmt.Errorf("%w: enumeration %q has no cases", ErrInvalidTemplate, t.Title)
		}
	case KindOptional:
		if !t.Inner.IsLeaf() {
			return fmt.Errorf("%w: optional %q wraps %q", ErrInvalidTemplate, t.Title, t.Inner)
		}
		if t.Inner == KindEnum && len(t.Cases) == 0 {
			return fmt.Errorf("%w: enumeration %q has no cases", ErrInvalidTemplate, t.Title)
		}
	case KindCollection:
		for _, e := range t.Elements {
			if err := e.Validate(); err != nil {
				return fmt.Errorf("collection %q: %w", t.Title, err)
			}
		}
	case KindCustom:
		if t.Custom == nil || len(t.Custom.Operators()) == 0 {
			return fmt.Errorf("%w: custom %q has no operators", ErrInvalidTemplate, t.Title)
		}
		return nil
	default:
		return fmt.Errorf("%w: kind %q", ErrInvalidTemplate, t.Kind)
	}
	if t.Field == "" {
		return fmt.Errorf("%w: %s %q has no field", ErrInvalidTemplate, t.Kind, t.Title)
	}
	return nil
}

// Operators returns the ordered operator set offered for the template.
func (t *Template) Operators() []Operator {
	if t.Kind == KindCustom && t.Custom != nil {
		return t.Custom.Operators()
	}
	return t.Kind.Operators()
}

// Unwrapped returns the leaf template an optional template wraps.
func (t *Template) Unwrapped() *Template {
	if t.Kind != KindOptional {
		return t
	}
	return &Template{Kind: t.Inner, Title: t.Title, Field: t.Field, Cases: t.Cases}
}

// DefaultAttribute returns the attribute a freshly inserted row starts with.
func (t *Template) DefaultAttribute() Attribute {
	switch t.Kind {
	case KindString:
		return Attribute{Operator: OpContains, Value: ""}
	case KindNumber:
		return Attribute{Operator: OpEquals, Value: decimal.Zero}
	case KindBool:
		return Attribute{Operator: OpIs, Value: true}
	case KindEnum:
		var first any
		if len(t.Cases) > 0 {
			first = t.Cases[0]
		}
		return Attribute{Operator: OpIs, Value: first}
	case KindDate:
		return Attribute{Operator: OpBefore, Value: time.Now()}
	case KindOptional:
		return Attribute{Operator: OpExists}
	case KindCollection:
		return Attribute{Operator: OpContains}
	case KindLogical:
		return Attribute{Operator: OpAll}
	case KindCustom:
		var op Operator
		if ops := t.Operators(); len(ops) > 0 {
			op = ops[0]
		}
		return Attribute{Operator: op, Value: t.Custom.DefaultValue()}
	}
	return Attribute{}
}

// DefaultWrapped returns the wrapped attribute an optional row starts with.
func (t *Template) DefaultWrapped() *Attribute {
	if t.Kind != KindOptional {
		return nil
	}
	a := t.Unwrapped().DefaultAttribute()
	return &a
}

// NormalizeAttribute validates a against the template and converts its value to
// the kind's canonical type.
func (t *Template) NormalizeAttribute(a Attribute) (Attribute, error) {
	if !containsOperator(t.Operators(), a.Operator) {
		return Attribute{}, fmt.Errorf("%w: %q for %s %q", ErrInvalidOperator, a.Operator, t.Kind, t.Title)
	}
	switch {
	case t.Kind.IsLeaf():
		v, err := normalizeValue(t.Kind, t.Cases, a.Value)
		if err != nil {
			return Attribute{}, err
		}
		return Attribute{Operator: a.Operator, Value: v}, nil
	case t.Kind == KindCustom:
		if err := t.checkCustomValue(a.Value); err != nil {
			return Attribute{}, err
		}
		return a, nil
	case a.Value != nil:
		return Attribute{}, &ValueError{Kind: t.Kind, Value: a.Value, Reason: "kind has no value"}
	}
	return a, nil
}

func (t *Template) checkCustomValue(v any) error {
	def := t.Custom.DefaultValue()
	if def == nil || v == nil {
		return nil
	}
	want, got := reflect.TypeOf(def), reflect.TypeOf(v)
	if !got.AssignableTo(want) {
		return &ValueError{Kind: KindCustom, Value: v, Reason: fmt.Sprintf("want %s", want)}
	}
	return nil
}

func (t *Template) String() string {
	return fmt.Sprintf("%s %q", t.Kind, t.Title)
}
