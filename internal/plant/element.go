package plant

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/google/uuid"
)

// ValueKind is the type of an attribute value.
type ValueKind string

// Attribute value kinds.
const (
	KindNumber ValueKind = "number"
	KindString ValueKind = "string"
	KindEnum   ValueKind = "enum"
)

// Value is a typed attribute value.
type Value struct {
	Kind ValueKind
	Num  float64
	Text string
}

// Number returns a numeric Value.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// String returns a free-text Value.
func String(s string) Value { return Value{Kind: KindString, Text: s} }

// Enum returns a Value drawn from a closed vocabulary (side, color, type).
func Enum(s string) Value { return Value{Kind: KindEnum, Text: s} }

// String renders the value the way documents store it.
func (v Value) String() string {
	if v.Kind == KindNumber {
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	}
	return v.Text
}

// Equal reports whether v and w have the same kind and value.
func (v Value) Equal(w Value) bool {
	if v.Kind != w.Kind {
		return false
	}
	if v.Kind == KindNumber {
		return v.Num == w.Num
	}
	return v.Text == w.Text
}

// Attribute is one named value in an Element's ordered attribute list.
type Attribute struct {
	Name  string
	Value Value
}

// InterfacePoint is a typed connection point on an Element.
type InterfacePoint struct {
	ID    string
	Name  string
	Kind  InterfaceKind
	owner *Element
}

// Owner returns the Element the point belongs to.
func (p *InterfacePoint) Owner() *Element { return p.owner }

// Element is a node of the plant graph.
type Element struct {
	ID   string
	Name string

	roles      []Role
	attrs      []Attribute
	children   []*Element
	interfaces []*InterfacePoint
	parent     *Element
}

// NewElement creates a detached Element with a fresh id.
func NewElement(name string, roles ...Role) *Element {
	return &Element{
		ID:    uuid.New().String(),
		Name:  name,
		roles: slices.Clone(roles),
	}
}

// Roles returns the Element's roles in insertion order.
func (e *Element) Roles() []Role { return slices.Clone(e.roles) }

// HasRole reports whether the Element carries any of the given roles.
func (e *Element) HasRole(roles ...Role) bool {
	for _, r := range roles {
		if slices.Contains(e.roles, r) {
			return true
		}
	}
	return false
}

// AddRole tags the Element with r unless it already carries it.
func (e *Element) AddRole(r Role) {
	if !slices.Contains(e.roles, r) {
		e.roles = append(e.roles, r)
	}
}

// StepRole returns the process step role of the Element, if any.
func (e *Element) StepRole() (Role, bool) {
	for _, r := range e.roles {
		if r.IsStep() {
			return r, true
		}
	}
	return "", false
}

// Set assigns an attribute, keeping the original position when it already exists.
func (e *Element) Set(name string, v Value) *Element {
	for i := range e.attrs {
		if e.attrs[i].Name == name {
			e.attrs[i].Value = v
			return e
		}
	}
	e.attrs = append(e.attrs, Attribute{Name: name, Value: v})
	return e
}

// Attr returns the named attribute.
func (e *Element) Attr(name string) (Value, bool) {
	for _, a := range e.attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return Value{}, false
}

// Attributes returns the ordered attribute list.
func (e *Element) Attributes() []Attribute { return slices.Clone(e.attrs) }

// Int returns a numeric attribute truncated to int.
func (e *Element) Int(name string) (int, bool) {
	v, ok := e.Attr(name)
	if !ok || v.Kind != KindNumber {
		return 0, false
	}
	return int(v.Num), true
}

// Float returns a numeric attribute.
func (e *Element) Float(name string) (float64, bool) {
	v, ok := e.Attr(name)
	if !ok || v.Kind != KindNumber {
		return 0, false
	}
	return v.Num, true
}

// Str returns a string or enum attribute.
func (e *Element) Str(name string) (string, bool) {
	v, ok := e.Attr(name)
	if !ok || v.Kind == KindNumber {
		return "", false
	}
	return v.Text, true
}

// AddChild appends c to the Element's children. Names are unique among siblings.
func (e *Element) AddChild(c *Element) error {
	if e.Child(c.Name) != nil {
		return fmt.Errorf("%w: %q under %q", ErrDuplicateName, c.Name, e.Name)
	}
	c.parent = e
	e.children = append(e.children, c)
	return nil
}

// Children returns the owned children in document order.
func (e *Element) Children() []*Element { return slices.Clone(e.children) }

// Child returns the direct child with the given name, or nil.
func (e *Element) Child(name string) *Element {
	for _, c := range e.children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Parent returns the owning Element, or nil for a hierarchy root.
func (e *Element) Parent() *Element { return e.parent }

// AddInterface creates a new InterfacePoint on the Element.
func (e *Element) AddInterface(name string, kind InterfaceKind) *InterfacePoint {
	p := &InterfacePoint{
		ID:    uuid.New().String(),
		Name:  name,
		Kind:  kind,
		owner: e,
	}
	e.interfaces = append(e.interfaces, p)
	return p
}

// Interfaces returns the Element's InterfacePoints in creation order.
func (e *Element) Interfaces() []*InterfacePoint { return slices.Clone(e.interfaces) }

// Interface returns the first InterfacePoint of the given kind, or nil.
func (e *Element) Interface(kind InterfaceKind) *InterfacePoint {
	for _, p := range e.interfaces {
		if p.Kind == kind {
			return p
		}
	}
	return nil
}
