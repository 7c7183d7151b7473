// Package decoder recognises predicate graphs produced by the compiler (or
// written by hand in the same shapes) and rebuilds filter trees from them.
//
// Each row template contributes a decoder for the shapes its kind compiles to;
// conjunctions and disjunctions fall through to a logical decoder that rebuilds
// groups. Inside a group the first decoder that matches wins and subexpressions
// no decoder recognises are dropped. Decoding is best effort and never fails.
package decoder

import (
	"github.com/nlstn/go-predicateview/internal/expression"
	"github.com/nlstn/go-predicateview/internal/predicate"
	"github.com/nlstn/go-predicateview/internal/tree"
)

// Stats counts what a decode recognised.
type Stats struct {
	// Decoded is the number of non-group nodes rebuilt.
	Decoded int
	// Dropped is the number of subexpressions no decoder recognised.
	Dropped int
}

// Decode rebuilds a tree offering templates from p.
func Decode(p predicate.Predicate, templates []*expression.Template) (*tree.Tree, Stats) {
	d, stats := DecodeDraft(p, templates)
	return tree.FromDraft(d, templates), stats
}

// DecodeDraft is Decode without building the tree, for hosts that replace the
// contents of an existing tree. The draft is nil when nothing was recognised.
func DecodeDraft(p predicate.Predicate, templates []*expression.Template) (*tree.Draft, Stats) {
	var st Stats
	if p.Expression == nil || p.IsTrue() {
		return nil, st
	}
	s := &session{stats: &st}

	// At the top level every decoder gets a say, not just the first match.
	var results []*tree.Draft
	for _, tmpl := range templates {
		if d, ok := s.leaf(tmpl, p.Expression, p.Input); ok {
			results = append(results, d)
		}
	}
	if d, ok := s.logical(p.Expression, p.Input, templates); ok {
		results = append(results, d)
	}

	switch {
	case len(results) == 0:
		st.Dropped++
		return nil, st
	case len(results) == 1 && results[0].IsGroup():
		return results[0], st
	}
	return tree.GroupDraft(expression.OpAll, results...), st
}

type session struct {
	stats *Stats
}

// one decodes e with the first matching decoder, templates in order and the
// logical decoder last.
func (s *session) one(e predicate.Expression, input *predicate.Variable, templates []*expression.Template) (*tree.Draft, bool) {
	for _, tmpl := range templates {
		if d, ok := s.leaf(tmpl, e, input); ok {
			return d, true
		}
	}
	return s.logical(e, input, templates)
}

// logical rebuilds a group from a conjunction or disjunction. Operands that
// decode to a group with the same operator are flattened into it.
func (s *session) logical(e predicate.Expression, input *predicate.Variable, templates []*expression.Template) (*tree.Draft, bool) {
	var op expression.Operator
	var lhs, rhs predicate.Expression
	switch n := e.(type) {
	case *predicate.Conjunction:
		op, lhs, rhs = expression.OpAll, n.LHS, n.RHS
	case *predicate.Disjunction:
		op, lhs, rhs = expression.OpAny, n.LHS, n.RHS
	default:
		return nil, false
	}

	g := tree.GroupDraft(op)
	for _, operand := range []predicate.Expression{lhs, rhs} {
		d, ok := s.one(operand, input, templates)
		if !ok {
			s.stats.Dropped++
			continue
		}
		if d.IsGroup() && d.Operator() == op {
			g.Children = append(g.Children, d.Children...)
			continue
		}
		g.Children = append(g.Children, d)
	}
	return g, true
}

// elementGroup decodes the test of a collection into its element group.
func (s *session) elementGroup(test predicate.Expression, elem *predicate.Variable, templates []*expression.Template) *tree.Draft {
	d, ok := s.one(test, elem, templates)
	switch {
	case !ok:
		s.stats.Dropped++
		return tree.GroupDraft(expression.OpAll)
	case d.IsGroup():
		return d
	}
	return tree.GroupDraft(expression.OpAll, d)
}

// node instantiates tmpl with a, reporting false when the template rejects it.
func (s *session) node(tmpl *expression.Template, a expression.Attribute) (*expression.Node, bool) {
	a, err := tmpl.NormalizeAttribute(a)
	if err != nil {
		return nil, false
	}
	n := expression.NewNode(tmpl)
	n.Attribute = a
	s.stats.Decoded++
	return n, true
}
