package expression

import (
	"slices"

	"github.com/google/uuid"
)

// ID identifies a node within a tree. It is stable across edits.
type ID = uuid.UUID

// Node is one element of a filter tree. Which fields are meaningful depends on
// Kind:
//
//   - leaf and custom kinds use Attribute
//   - optional nodes use Attribute.Operator and Wrapped, the latter present
//     exactly when the operator is OpExists
//   - collections use Attribute.Operator and Group, the id of the logical group
//     holding the element conditions
//   - logical groups use Attribute.Operator, Children and Scope
type Node struct {
	ID        ID
	Kind      Kind
	Template  *Template
	Attribute Attribute
	Wrapped   *Attribute
	Children  []ID
	Group     ID
	// Scope lists the row templates that may be inserted into a logical group.
	Scope []*Template
}

// NewNode instantiates a template with a fresh id and its default attribute.
// Collections still need their element group attached by the tree.
func NewNode(t *Template) *Node {
	return &Node{
		ID:        uuid.New(),
		Kind:      t.Kind,
		Template:  t,
		Attribute: t.DefaultAttribute(),
		Wrapped:   t.DefaultWrapped(),
	}
}

// NewGroup returns an empty logical group.
func NewGroup(op Operator, scope []*Template) *Node {
	return &Node{
		ID:        uuid.New(),
		Kind:      KindLogical,
		Attribute: Attribute{Operator: op},
		Scope:     scope,
	}
}

// Title is the row title shown in the token.
func (n *Node) Title() string {
	if n.Template != nil {
		return n.Template.Title
	}
	return ""
}

// Field is the record field the node reads, empty for groups and custom nodes.
func (n *Node) Field() string {
	if n.Template != nil {
		return n.Template.Field
	}
	return ""
}

// IsGroup reports whether the node is a logical group.
func (n *Node) IsGroup() bool { return n.Kind == KindLogical }

// Clone copies the node keeping its id. Child ids are copied, not the children.
func (n *Node) Clone() *Node {
	c := *n
	c.Children = slices.Clone(n.Children)
	c.Scope = slices.Clone(n.Scope)
	if n.Wrapped != nil {
		w := *n.Wrapped
		c.Wrapped = &w
	}
	return &c
}
