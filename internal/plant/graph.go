package plant

import (
	"fmt"
	"iter"
	"slices"

	"github.com/google/uuid"
)

// Link joins two InterfacePoints on different Elements. Side A is the
// process side by convention.
type Link struct {
	ID   string
	Name string
	A    *InterfacePoint
	B    *InterfacePoint
}

// Other returns the endpoint opposite p, or nil when p is not an endpoint.
func (l *Link) Other(p *InterfacePoint) *InterfacePoint {
	switch p {
	case l.A:
		return l.B
	case l.B:
		return l.A
	}
	return nil
}

// Graph is one named instance hierarchy with the links between its Elements.
type Graph struct {
	Name string

	roots []*Element
	links []*Link
}

// NewGraph creates an empty hierarchy.
func NewGraph(name string) *Graph {
	return &Graph{Name: name}
}

// AddRoot appends a top-level Element.
func (g *Graph) AddRoot(e *Element) error {
	if g.Root(e.Name) != nil {
		return fmt.Errorf("%w: top-level %q", ErrDuplicateName, e.Name)
	}
	e.parent = nil
	g.roots = append(g.roots, e)
	return nil
}

// Root returns the top-level Element with the given name, or nil.
func (g *Graph) Root(name string) *Element {
	for _, r := range g.roots {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// Roots returns the top-level Elements in document order.
func (g *Graph) Roots() []*Element { return slices.Clone(g.roots) }

// RemoveRoot drops a top-level Element and every link touching its subtree.
func (g *Graph) RemoveRoot(name string) {
	idx := slices.IndexFunc(g.roots, func(e *Element) bool { return e.Name == name })
	if idx < 0 {
		return
	}
	removed := make(map[*Element]bool)
	for e := range Subtree(g.roots[idx]) {
		removed[e] = true
	}
	g.roots = slices.Delete(g.roots, idx, idx+1)
	g.links = slices.DeleteFunc(g.links, func(l *Link) bool {
		return removed[l.A.owner] || removed[l.B.owner]
	})
}

// Link creates a named link from a (process side) to b.
func (g *Graph) Link(name string, a, b *InterfacePoint) (*Link, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("%w: %q has a missing endpoint", ErrInvalidLink, name)
	}
	if a.owner == b.owner {
		return nil, fmt.Errorf("%w: %q joins %q to itself", ErrInvalidLink, name, a.owner.Name)
	}
	l := &Link{
		ID:   uuid.New().String(),
		Name: name,
		A:    a,
		B:    b,
	}
	g.links = append(g.links, l)
	return l, nil
}

// Links returns every link in creation order.
func (g *Graph) Links() []*Link { return slices.Clone(g.links) }

// LinksOf yields the links with an endpoint on p.
func (g *Graph) LinksOf(p *InterfacePoint) iter.Seq[*Link] {
	return func(yield func(*Link) bool) {
		for _, l := range g.links {
			if l.A == p || l.B == p {
				if !yield(l) {
					return
				}
			}
		}
	}
}

// Peers yields the Elements linked to any InterfacePoint of e with the given kind.
func (g *Graph) Peers(e *Element, kind InterfaceKind) iter.Seq[*Element] {
	return func(yield func(*Element) bool) {
		for _, p := range e.interfaces {
			if p.Kind != kind {
				continue
			}
			for l := range g.LinksOf(p) {
				if !yield(l.Other(p).owner) {
					return
				}
			}
		}
	}
}

// Walk yields every Element depth-first in document order.
func (g *Graph) Walk() iter.Seq[*Element] {
	return func(yield func(*Element) bool) {
		for _, r := range g.roots {
			for e := range Subtree(r) {
				if !yield(e) {
					return
				}
			}
		}
	}
}

// Find yields the Elements matching every predicate, in document order.
func (g *Graph) Find(preds ...Predicate) iter.Seq[*Element] {
	return Filter(g.Walk(), And(preds...))
}

// InterfaceByID returns the InterfacePoint with the given id, or nil.
func (g *Graph) InterfaceByID(id string) *InterfacePoint {
	for e := range g.Walk() {
		for _, p := range e.interfaces {
			if p.ID == id {
				return p
			}
		}
	}
	return nil
}
