// Package tree holds a filter tree as an arena of nodes keyed by id.
//
// The arena keeps parent links so that removal, ungrouping and change
// notification never need to search. A Tree is not safe for concurrent use;
// hosts that share one across goroutines serialise access themselves.
package tree

import (
	"fmt"
	"slices"

	"github.com/nlstn/go-predicateview/internal/expression"
)

// ID identifies a node.
type ID = expression.ID

// Change is delivered to observers after every successful mutation. ID names the
// mutated node, or the parent group for structural edits.
type Change struct {
	ID    ID
	Value expression.CurrentValue
}

// Tree is a filter tree rooted at a logical group.
type Tree struct {
	nodes     map[ID]*expression.Node
	parents   map[ID]ID
	root      ID
	observers []func(Change)
}

// New returns a tree holding an empty AND root offering templates.
func New(templates []*expression.Template) *Tree {
	root := expression.NewGroup(expression.OpAll, templates)
	return &Tree{
		nodes:   map[ID]*expression.Node{root.ID: root},
		parents: map[ID]ID{},
		root:    root.ID,
	}
}

// Root returns the id of the root group.
func (t *Tree) Root() ID { return t.root }

// Len returns the number of nodes, the root and element groups included.
func (t *Tree) Len() int { return len(t.nodes) }

// Node returns a copy of the node with the given id.
func (t *Tree) Node(id ID) (*expression.Node, bool) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, false
	}
	return n.Clone(), true
}

// Children returns the child ids of a logical group in order.
func (t *Tree) Children(id ID) []ID {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	return slices.Clone(n.Children)
}

// Parent returns the id of the node's parent. The root has none.
func (t *Tree) Parent(id ID) (ID, bool) {
	p, ok := t.parents[id]
	return p, ok
}

// Templates returns the row templates that may be appended to group.
func (t *Tree) Templates(group ID) []*expression.Template {
	n, ok := t.nodes[group]
	if !ok || !n.IsGroup() {
		return nil
	}
	return slices.Clone(n.Scope)
}

// Walk visits nodes depth first, collection element groups included. Returning
// false from fn skips the node's descendants.
func (t *Tree) Walk(fn func(n *expression.Node, depth int) bool) {
	t.walk(t.root, 0, fn)
}

func (t *Tree) walk(id ID, depth int, fn func(*expression.Node, int) bool) {
	n, ok := t.nodes[id]
	if !ok || !fn(n.Clone(), depth) {
		return
	}
	switch n.Kind {
	case expression.KindLogical:
		for _, c := range n.Children {
			t.walk(c, depth+1, fn)
		}
	case expression.KindCollection:
		t.walk(n.Group, depth+1, fn)
	}
}

// Snapshot returns the user-visible state of the subtree at id.
func (t *Tree) Snapshot(id ID) *expression.Snapshot {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	switch n.Kind {
	case expression.KindLogical:
		s := &expression.Snapshot{Kind: n.Kind, Operator: n.Attribute.Operator}
		for _, c := range n.Children {
			s.Children = append(s.Children, t.Snapshot(c))
		}
		return s
	case expression.KindCollection:
		if g := t.Snapshot(n.Group); g != nil {
			return expression.LeafSnapshot(n, g)
		}
	}
	return expression.LeafSnapshot(n)
}

// CurrentValue returns the canonical value of the subtree at id. It does not
// depend on node ids.
func (t *Tree) CurrentValue(id ID) expression.CurrentValue {
	s := t.Snapshot(id)
	if s == nil {
		return ""
	}
	return s.Encode()
}

// Observe registers fn for change notifications and returns a function that
// unregisters it.
func (t *Tree) Observe(fn func(Change)) (cancel func()) {
	t.observers = append(t.observers, fn)
	idx := len(t.observers) - 1
	return func() { t.observers[idx] = nil }
}

func (t *Tree) notify(id ID) {
	if len(t.observers) == 0 {
		return
	}
	c := Change{ID: id, Value: t.CurrentValue(id)}
	for _, fn := range t.observers {
		if fn != nil {
			fn(c)
		}
	}
}

func (t *Tree) lookup(id ID) (*expression.Node, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return n, nil
}

func (t *Tree) group(id ID) (*expression.Node, error) {
	n, err := t.lookup(id)
	if err != nil {
		return nil, err
	}
	if !n.IsGroup() {
		return nil, fmt.Errorf("%w: %s", ErrNotGroup, id)
	}
	return n, nil
}
