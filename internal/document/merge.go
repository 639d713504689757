package document

import (
	"fmt"
	"slices"

	"gopkg.in/yaml.v3"
)

// Category selects a top-level section of a document.
type Category string

// Document sections.
const (
	InstanceHierarchies Category = "instance_hierarchies"
	SystemUnitClassLibs Category = "system_unit_class_libs"
	RoleClassLibs       Category = "role_class_libs"
	InterfaceClassLibs  Category = "interface_class_libs"
	AttributeTypeLibs   Category = "attribute_type_libs"
)

// Categories lists the sections in document order.
var Categories = []Category{InstanceHierarchies, SystemUnitClassLibs, RoleClassLibs, InterfaceClassLibs, AttributeTypeLibs}

// ImportNamedSubtrees copies the named top-level entries of source into
// target. An entry replaces a target entry of the same name in place;
// otherwise it is appended. Target entries not named are left untouched.
// Every name must exist in source; nothing is copied if one is missing.
func ImportNamedSubtrees(target, source *Document, names map[Category][]string) error {
	for _, cat := range Categories {
		for _, name := range names[cat] {
			if !source.has(cat, name) {
				return fmt.Errorf("%w: %s %q", ErrSubtreeNotFound, cat, name)
			}
		}
	}

	for _, cat := range Categories {
		for _, name := range names[cat] {
			if cat == InstanceHierarchies {
				h := cloneHierarchy(*source.Hierarchy(name))
				if existing := target.Hierarchy(name); existing != nil {
					*existing = h
				} else {
					target.InstanceHierarchies = append(target.InstanceHierarchies, h)
				}
				continue
			}
			src := *source.libraries(cat)
			lib := src[slices.IndexFunc(src, byName(name))]
			lib.Content = *cloneNode(&lib.Content)

			dst := target.libraries(cat)
			if i := slices.IndexFunc(*dst, byName(name)); i >= 0 {
				(*dst)[i] = lib
			} else {
				*dst = append(*dst, lib)
			}
		}
	}
	return nil
}

func byName(name string) func(Library) bool {
	return func(l Library) bool { return l.Name == name }
}

func (d *Document) has(cat Category, name string) bool {
	if cat == InstanceHierarchies {
		return d.Hierarchy(name) != nil
	}
	libs := d.libraries(cat)
	return libs != nil && slices.ContainsFunc(*libs, byName(name))
}

// libraries returns the library section for cat, or nil for hierarchies
// and unknown categories.
func (d *Document) libraries(cat Category) *[]Library {
	switch cat {
	case SystemUnitClassLibs:
		return &d.SystemUnitClassLibs
	case RoleClassLibs:
		return &d.RoleClassLibs
	case InterfaceClassLibs:
		return &d.InterfaceClassLibs
	case AttributeTypeLibs:
		return &d.AttributeTypeLibs
	}
	return nil
}

// Library returns the library called name in section cat, or nil.
func (d *Document) Library(cat Category, name string) *Library {
	libs := d.libraries(cat)
	if libs == nil {
		return nil
	}
	if i := slices.IndexFunc(*libs, byName(name)); i >= 0 {
		return &(*libs)[i]
	}
	return nil
}

func cloneHierarchy(h Hierarchy) Hierarchy {
	out := Hierarchy{Name: h.Name, Links: slices.Clone(h.Links)}
	for _, e := range h.Elements {
		out.Elements = append(out.Elements, cloneElement(e))
	}
	return out
}

func cloneElement(e ElementNode) ElementNode {
	out := ElementNode{
		ID:         e.ID,
		Name:       e.Name,
		Roles:      slices.Clone(e.Roles),
		Attributes: slices.Clone(e.Attributes),
		Interfaces: slices.Clone(e.Interfaces),
	}
	for _, c := range e.Children {
		out.Children = append(out.Children, cloneElement(c))
	}
	return out
}

func cloneNode(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}
	out := *n
	out.Alias = cloneNode(n.Alias)
	out.Content = nil
	for _, c := range n.Content {
		out.Content = append(out.Content, cloneNode(c))
	}
	return &out
}
