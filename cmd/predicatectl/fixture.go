package main

import (
	"fmt"
	"os"

	"github.com/nlstn/go-predicateview"
	"gopkg.in/yaml.v3"
)

// fixture is a filter together with the books it is run against.
type fixture struct {
	Filter *rowSpec `yaml:"filter"`
	Books  []Book   `yaml:"books"`
}

// rowSpec describes one row of a filter tree. A spec with All or Any is a
// group; otherwise Field names the row template.
type rowSpec struct {
	All   []*rowSpec `yaml:"all,omitempty"`
	Any   []*rowSpec `yaml:"any,omitempty"`
	Field string     `yaml:"field,omitempty"`
	Op    string     `yaml:"op,omitempty"`
	Value any        `yaml:"value,omitempty"`
	// Is is the operator applied to the value of an optional field that exists.
	Is string `yaml:"is,omitempty"`
	// Where holds the element conditions of a collection row.
	Where *rowSpec `yaml:"where,omitempty"`
}

func (s *rowSpec) group() (predicateview.Operator, []*rowSpec, bool) {
	switch {
	case s.All != nil:
		return predicateview.OpAll, s.All, true
	case s.Any != nil:
		return predicateview.OpAny, s.Any, true
	}
	return "", nil, false
}

func loadFixture(path string) (*fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}
	var f fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// build fills the tree with the rows of spec, starting at its root.
func build(tr *predicateview.Tree, spec *rowSpec) error {
	if spec == nil {
		return nil
	}
	return fill(tr, tr.Root(), spec)
}

// fill applies spec to group: group specs set its operator and add their rows,
// row specs are appended to it.
func fill(tr *predicateview.Tree, group predicateview.ID, spec *rowSpec) error {
	op, children, ok := spec.group()
	if !ok {
		return appendRow(tr, group, spec)
	}
	if err := tr.SetOperator(group, op); err != nil {
		return err
	}
	for _, child := range children {
		if err := appendSpec(tr, group, child); err != nil {
			return err
		}
	}
	return nil
}

func appendSpec(tr *predicateview.Tree, group predicateview.ID, spec *rowSpec) error {
	op, _, ok := spec.group()
	if !ok {
		return appendRow(tr, group, spec)
	}
	id, err := tr.AppendGroup(group, op)
	if err != nil {
		return err
	}
	return fill(tr, id, spec)
}

func appendRow(tr *predicateview.Tree, group predicateview.ID, spec *rowSpec) error {
	tmpl := findTemplate(tr.Templates(group), spec.Field)
	if tmpl == nil {
		return fmt.Errorf("no row template for field %q", spec.Field)
	}
	id, err := tr.Append(group, tmpl)
	if err != nil {
		return err
	}
	op := predicateview.Operator(spec.Op)

	switch tmpl.Kind {
	case predicateview.KindOptional:
		if op == "" {
			op = predicateview.OpExists
		}
		var wrapped *predicateview.Attribute
		if spec.Is != "" || spec.Value != nil {
			a := tmpl.Unwrapped().DefaultAttribute()
			if spec.Is != "" {
				a.Operator = predicateview.Operator(spec.Is)
			}
			if spec.Value != nil {
				a.Value = spec.Value
			}
			wrapped = &a
		}
		return tr.SetOptionalAttribute(id, op, wrapped)
	case predicateview.KindCollection:
		if op != "" {
			if err := tr.SetOperator(id, op); err != nil {
				return err
			}
		}
		if spec.Where == nil {
			return nil
		}
		n, _ := tr.Node(id)
		return fill(tr, n.Group, spec.Where)
	}

	if op != "" {
		if err := tr.SetOperator(id, op); err != nil {
			return err
		}
	}
	if spec.Value != nil {
		return tr.SetValue(id, spec.Value)
	}
	return nil
}

func findTemplate(templates []*predicateview.Template, field string) *predicateview.Template {
	for _, t := range templates {
		if t.Field == field {
			return t
		}
	}
	return nil
}
