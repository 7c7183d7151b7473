package tree

import (
	"fmt"
	"slices"

	"github.com/nlstn/go-predicateview/internal/expression"
)

// Append instantiates tmpl with a fresh id at the end of group. Collections get
// an empty element group scoped to the template's element templates.
func (t *Tree) Append(group ID, tmpl *expression.Template) (ID, error) {
	g, err := t.group(group)
	if err != nil {
		return ID{}, err
	}
	if !slices.Contains(g.Scope, tmpl) {
		return ID{}, fmt.Errorf("%w: %s", ErrTemplateNotInScope, tmpl)
	}
	if err := tmpl.Validate(); err != nil {
		return ID{}, err
	}
	n := expression.NewNode(tmpl)
	t.attach(g, n)
	if n.Kind == expression.KindCollection {
		elems := expression.NewGroup(expression.OpAll, tmpl.Elements)
		n.Group = elems.ID
		t.nodes[elems.ID] = elems
		t.parents[elems.ID] = n.ID
	}
	t.notify(group)
	return n.ID, nil
}

// AppendGroup adds an empty nested group at the end of group. The new group
// offers the same templates as its parent.
func (t *Tree) AppendGroup(group ID, op expression.Operator) (ID, error) {
	g, err := t.group(group)
	if err != nil {
		return ID{}, err
	}
	if op != expression.OpAll && op != expression.OpAny {
		return ID{}, fmt.Errorf("%w: %q for group", expression.ErrInvalidOperator, op)
	}
	n := expression.NewGroup(op, g.Scope)
	t.attach(g, n)
	t.notify(group)
	return n.ID, nil
}

func (t *Tree) attach(g, n *expression.Node) {
	t.nodes[n.ID] = n
	t.parents[n.ID] = g.ID
	g.Children = append(g.Children, n.ID)
}

// Remove deletes the node and all of its descendants. Siblings keep their order.
func (t *Tree) Remove(id ID) error {
	if _, err := t.lookup(id); err != nil {
		return err
	}
	parent, err := t.detachable(id)
	if err != nil {
		return err
	}
	parent.Children = slices.DeleteFunc(parent.Children, func(c ID) bool { return c == id })
	t.drop(id)
	t.notify(parent.ID)
	return nil
}

// detachable returns the group holding id, refusing the root and element groups.
func (t *Tree) detachable(id ID) (*expression.Node, error) {
	pid, ok := t.parents[id]
	if !ok {
		return nil, fmt.Errorf("%w: root group", ErrRootNode)
	}
	parent := t.nodes[pid]
	if !parent.IsGroup() {
		return nil, fmt.Errorf("%w: element group of %q", ErrRootNode, parent.Title())
	}
	return parent, nil
}

func (t *Tree) drop(id ID) {
	n, ok := t.nodes[id]
	if !ok {
		return
	}
	for _, c := range n.Children {
		t.drop(c)
	}
	if n.Kind == expression.KindCollection {
		t.drop(n.Group)
	}
	delete(t.nodes, id)
	delete(t.parents, id)
}

// Ungroup replaces the nested group with its children, spliced into the parent
// at the group's position in their original order.
func (t *Tree) Ungroup(group ID) error {
	g, err := t.group(group)
	if err != nil {
		return err
	}
	parent, err := t.detachable(group)
	if err != nil {
		return err
	}
	pos := slices.Index(parent.Children, group)
	parent.Children = slices.Replace(parent.Children, pos, pos+1, g.Children...)
	for _, c := range g.Children {
		t.parents[c] = parent.ID
	}
	delete(t.nodes, group)
	delete(t.parents, group)
	t.notify(parent.ID)
	return nil
}

// Clear removes every child of group.
func (t *Tree) Clear(group ID) error {
	g, err := t.group(group)
	if err != nil {
		return err
	}
	for _, c := range g.Children {
		t.drop(c)
	}
	g.Children = nil
	t.notify(group)
	return nil
}

// SetOperator changes the node's operator, keeping its value. Optional nodes
// gain the default wrapped attribute when switched to exists and lose it
// otherwise.
func (t *Tree) SetOperator(id ID, op expression.Operator) error {
	n, err := t.lookup(id)
	if err != nil {
		return err
	}
	switch n.Kind {
	case expression.KindLogical:
		if op != expression.OpAll && op != expression.OpAny {
			return fmt.Errorf("%w: %q for group", expression.ErrInvalidOperator, op)
		}
		n.Attribute.Operator = op
	case expression.KindOptional:
		if _, err := n.Template.NormalizeAttribute(expression.Attribute{Operator: op}); err != nil {
			return err
		}
		if op != n.Attribute.Operator {
			n.Wrapped = nil
			if op == expression.OpExists {
				n.Wrapped = n.Template.DefaultWrapped()
			}
		}
		n.Attribute.Operator = op
	default:
		a, err := n.Template.NormalizeAttribute(expression.Attribute{Operator: op, Value: n.Attribute.Value})
		if err != nil {
			return err
		}
		n.Attribute = a
	}
	t.notify(id)
	return nil
}

// SetValue changes the node's value. On an optional node it sets the wrapped
// value, which requires the exists operator.
func (t *Tree) SetValue(id ID, value any) error {
	n, err := t.lookup(id)
	if err != nil {
		return err
	}
	switch {
	case n.Kind == expression.KindOptional:
		if n.Wrapped == nil {
			return &expression.ValueError{Kind: n.Kind, Value: value, Reason: "field is tested for absence"}
		}
		w, err := n.Template.Unwrapped().NormalizeAttribute(expression.Attribute{Operator: n.Wrapped.Operator, Value: value})
		if err != nil {
			return err
		}
		n.Wrapped = &w
	case n.Template != nil:
		a, err := n.Template.NormalizeAttribute(expression.Attribute{Operator: n.Attribute.Operator, Value: value})
		if err != nil {
			return err
		}
		n.Attribute = a
	default:
		return &expression.ValueError{Kind: n.Kind, Value: value, Reason: "kind has no value"}
	}
	t.notify(id)
	return nil
}

// SetOptionalAttribute replaces the operator and wrapped attribute of an optional
// node in one step. wrapped must be nil unless op is exists; a nil wrapped
// attribute with exists selects the default.
func (t *Tree) SetOptionalAttribute(id ID, op expression.Operator, wrapped *expression.Attribute) error {
	n, err := t.lookup(id)
	if err != nil {
		return err
	}
	if n.Kind != expression.KindOptional {
		return fmt.Errorf("%w: %s", ErrNotOptional, id)
	}
	if _, err := n.Template.NormalizeAttribute(expression.Attribute{Operator: op}); err != nil {
		return err
	}
	var w *expression.Attribute
	switch {
	case op != expression.OpExists && wrapped != nil:
		return &expression.ValueError{Kind: n.Kind, Value: wrapped, Reason: "only exists carries a wrapped attribute"}
	case op == expression.OpExists && wrapped == nil:
		w = n.Template.DefaultWrapped()
	case wrapped != nil:
		a, err := n.Template.Unwrapped().NormalizeAttribute(*wrapped)
		if err != nil {
			return err
		}
		w = &a
	}
	n.Attribute = expression.Attribute{Operator: op}
	n.Wrapped = w
	t.notify(id)
	return nil
}
