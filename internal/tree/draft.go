package tree

import "github.com/nlstn/go-predicateview/internal/expression"

// Draft is a detached subtree, built outside the arena and then adopted by a
// tree. Logical drafts list their children; collection drafts carry their
// element group in Group.
type Draft struct {
	Node     *expression.Node
	Children []*Draft
	Group    *Draft
}

// Leaf returns a draft for a single node.
func Leaf(n *expression.Node) *Draft {
	return &Draft{Node: n}
}

// GroupDraft returns a draft for a logical group with the given children.
func GroupDraft(op expression.Operator, children ...*Draft) *Draft {
	return &Draft{Node: expression.NewGroup(op, nil), Children: children}
}

// Operator returns the draft node's operator.
func (d *Draft) Operator() expression.Operator {
	return d.Node.Attribute.Operator
}

// IsGroup reports whether the draft is a logical group.
func (d *Draft) IsGroup() bool {
	return d.Node.IsGroup()
}

// FromDraft builds a tree whose root is root, or an AND group holding root
// when root is not a logical group. A nil root gives an empty tree.
func FromDraft(root *Draft, templates []*expression.Template) *Tree {
	t := New(templates)
	t.adoptRoot(root, templates)
	return t
}

// Replace discards the current contents and adopts root as in FromDraft. The
// root id changes and observers are notified once for the new root.
func (t *Tree) Replace(root *Draft) {
	templates := t.nodes[t.root].Scope
	t.nodes = map[ID]*expression.Node{}
	t.parents = map[ID]ID{}
	fresh := expression.NewGroup(expression.OpAll, templates)
	t.nodes[fresh.ID] = fresh
	t.root = fresh.ID
	t.adoptRoot(root, templates)
	t.notify(t.root)
}

func (t *Tree) adoptRoot(root *Draft, templates []*expression.Template) {
	if root == nil {
		return
	}
	if !root.IsGroup() {
		t.adoptChild(t.nodes[t.root], root)
		return
	}
	delete(t.nodes, t.root)
	n := root.Node.Clone()
	n.Children = nil
	n.Scope = templates
	t.nodes[n.ID] = n
	t.root = n.ID
	for _, c := range root.Children {
		t.adoptChild(n, c)
	}
}

func (t *Tree) adoptChild(parent *expression.Node, d *Draft) {
	n := d.Node.Clone()
	n.Children = nil
	t.attach(parent, n)
	switch n.Kind {
	case expression.KindLogical:
		n.Scope = parent.Scope
		for _, c := range d.Children {
			t.adoptChild(n, c)
		}
	case expression.KindCollection:
		var elems []*expression.Template
		if n.Template != nil {
			elems = n.Template.Elements
		}
		g := expression.NewGroup(expression.OpAll, elems)
		if d.Group != nil {
			g.ID = d.Group.Node.ID
			g.Attribute = d.Group.Node.Attribute
		}
		n.Group = g.ID
		t.nodes[g.ID] = g
		t.parents[g.ID] = n.ID
		if d.Group != nil {
			for _, c := range d.Group.Children {
				t.adoptChild(g, c)
			}
		}
	}
}
