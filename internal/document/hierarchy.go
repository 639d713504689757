package document

import (
	"fmt"
	"strconv"

	"github.com/nerrad567/plantline/internal/plant"
)

// Hierarchy is the stored form of one plant graph.
type Hierarchy struct {
	Name     string        `yaml:"name"`
	Elements []ElementNode `yaml:"elements,omitempty"`
	Links    []LinkNode    `yaml:"links,omitempty"`
}

// ElementNode is the stored form of a plant.Element and its subtree.
type ElementNode struct {
	ID         string          `yaml:"id"`
	Name       string          `yaml:"name"`
	Roles      []string        `yaml:"roles,omitempty,flow"`
	Attributes []AttributeNode `yaml:"attributes,omitempty"`
	Interfaces []InterfaceNode `yaml:"interfaces,omitempty"`
	Children   []ElementNode   `yaml:"children,omitempty"`
}

// AttributeNode is one typed attribute. Numbers are stored in their
// shortest decimal form.
type AttributeNode struct {
	Name  string `yaml:"name"`
	Kind  string `yaml:"kind"`
	Value string `yaml:"value"`
}

// InterfaceNode is one interface point.
type InterfaceNode struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`
}

// LinkNode joins two interface points by id. A is the process side.
type LinkNode struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	A    string `yaml:"a"`
	B    string `yaml:"b"`
}

// FromGraph converts g to its stored form.
func FromGraph(g *plant.Graph) Hierarchy {
	h := Hierarchy{Name: g.Name}
	for _, root := range g.Roots() {
		h.Elements = append(h.Elements, elementNode(root))
	}
	for _, l := range g.Links() {
		h.Links = append(h.Links, LinkNode{ID: l.ID, Name: l.Name, A: l.A.ID, B: l.B.ID})
	}
	return h
}

func elementNode(e *plant.Element) ElementNode {
	n := ElementNode{ID: e.ID, Name: e.Name}
	for _, r := range e.Roles() {
		n.Roles = append(n.Roles, string(r))
	}
	for _, a := range e.Attributes() {
		n.Attributes = append(n.Attributes, AttributeNode{Name: a.Name, Kind: string(a.Value.Kind), Value: a.Value.String()})
	}
	for _, p := range e.Interfaces() {
		n.Interfaces = append(n.Interfaces, InterfaceNode{ID: p.ID, Name: p.Name, Kind: string(p.Kind)})
	}
	for _, c := range e.Children() {
		n.Children = append(n.Children, elementNode(c))
	}
	return n
}

// Graph rebuilds the plant graph, keeping every stored id.
func (h *Hierarchy) Graph() (*plant.Graph, error) {
	g := plant.NewGraph(h.Name)
	points := make(map[string]*plant.InterfacePoint)

	for i := range h.Elements {
		e, err := buildElement(&h.Elements[i], points)
		if err != nil {
			return nil, err
		}
		if err := g.AddRoot(e); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
	}

	for _, ln := range h.Links {
		a, b := points[ln.A], points[ln.B]
		if a == nil || b == nil {
			return nil, fmt.Errorf("%w: link %q refers to an unknown interface", ErrInvalidDocument, ln.Name)
		}
		l, err := g.Link(ln.Name, a, b)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
		if ln.ID != "" {
			l.ID = ln.ID
		}
	}
	return g, nil
}

func buildElement(n *ElementNode, points map[string]*plant.InterfacePoint) (*plant.Element, error) {
	roles := make([]plant.Role, len(n.Roles))
	for i, r := range n.Roles {
		roles[i] = plant.Role(r)
	}
	e := plant.NewElement(n.Name, roles...)
	if n.ID != "" {
		e.ID = n.ID
	}

	for _, a := range n.Attributes {
		v, err := parseValue(a)
		if err != nil {
			return nil, fmt.Errorf("%w: element %q: %w", ErrInvalidDocument, n.Name, err)
		}
		e.Set(a.Name, v)
	}

	for _, in := range n.Interfaces {
		p := e.AddInterface(in.Name, plant.InterfaceKind(in.Kind))
		if in.ID != "" {
			p.ID = in.ID
		}
		if _, dup := points[p.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate interface id %s", ErrInvalidDocument, p.ID)
		}
		points[p.ID] = p
	}

	for i := range n.Children {
		c, err := buildElement(&n.Children[i], points)
		if err != nil {
			return nil, err
		}
		if err := e.AddChild(c); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
		}
	}
	return e, nil
}

func parseValue(a AttributeNode) (plant.Value, error) {
	switch plant.ValueKind(a.Kind) {
	case plant.KindNumber:
		f, err := strconv.ParseFloat(a.Value, 64)
		if err != nil {
			return plant.Value{}, fmt.Errorf("attribute %q: %w", a.Name, err)
		}
		return plant.Number(f), nil
	case plant.KindEnum:
		return plant.Enum(a.Value), nil
	case plant.KindString, "":
		return plant.String(a.Value), nil
	}
	return plant.Value{}, fmt.Errorf("attribute %q has unknown kind %q", a.Name, a.Kind)
}

// Graph rebuilds the instance hierarchy called name.
func (d *Document) Graph(name string) (*plant.Graph, error) {
	h := d.Hierarchy(name)
	if h == nil {
		return nil, fmt.Errorf("%w: %s", ErrHierarchyNotFound, name)
	}
	return h.Graph()
}

// PutGraph stores g, replacing a hierarchy of the same name.
func (d *Document) PutGraph(g *plant.Graph) {
	h := FromGraph(g)
	if existing := d.Hierarchy(g.Name); existing != nil {
		*existing = h
		return
	}
	d.InstanceHierarchies = append(d.InstanceHierarchies, h)
}

// LoadGraph reads the hierarchy called name from the document at path.
func LoadGraph(path, name string) (*plant.Graph, error) {
	d, err := Load(path)
	if err != nil {
		return nil, err
	}
	return d.Graph(name)
}

// SaveGraph writes g as the only hierarchy of a new document at path.
func SaveGraph(g *plant.Graph, path string) error {
	d := New(g.Name)
	d.PutGraph(g)
	return d.Save(path)
}
