// Package document stores plant graphs as YAML documents.
//
// A document holds named instance hierarchies (one plant graph each) and
// four kinds of class libraries:
//
//	header:
//	  writer: plantline
//	  version: "1"
//	instance_hierarchies:
//	  - name: PlantProject
//	    elements: [...]   # element tree with roles, attributes, interfaces
//	    links: [...]      # interface id pairs
//	system_unit_class_libs: [...]
//	role_class_libs: [...]
//	interface_class_libs: [...]
//	attribute_type_libs: [...]
//
// Library bodies are kept as opaque YAML nodes: plantline reads the
// hierarchies and only copies libraries between documents.
//
// ImportNamedSubtrees merges whole named top-level entries from one
// document into another, which is how exports pick up the blueprint
// libraries and how a plant document inherits the topology hierarchy.
package document
